package flow

import (
	"context"

	"github.com/mbolis/timed-survey/forms"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/store"
	"github.com/pkg/errors"
)

type Status string

const (
	StatusParticipated Status = "participated"
	StatusTimeout      Status = "timeout"
)

type OutcomeKind int

const (
	Proceed OutcomeKind = iota
	Redirect
	NotFound
)

// Outcome is the verdict of a guard: go on with Survey, redirect to
// Location, or answer not found.
type Outcome struct {
	Kind     OutcomeKind
	Survey   model.Survey
	Status   Status
	Location string
}

func proceed(survey model.Survey) Outcome {
	return Outcome{Kind: Proceed, Survey: survey}
}

func redirect(status Status, location string) Outcome {
	return Outcome{Kind: Redirect, Status: status, Location: location}
}

var notFound = Outcome{Kind: NotFound}

// Guard decides whether userID may work on a survey step.
//
// A missing or expired survey is not found. A user who already answered is
// sent to the participated page. An attempt whose time ran out is finalized
// right away with whatever was collected, and the user is sent to the
// timeout page of the resulting response.
func (c *Controller) Guard(ctx context.Context, userID, surveyID int) (Outcome, error) {
	survey, out, err := c.survey(ctx, userID, surveyID)
	if err != nil || out.Kind != Proceed {
		return out, err
	}

	state, err := c.sessions.Peek(ctx, userID, surveyID)
	if err != nil {
		return out, err
	}
	if state == nil || !state.TimedOut() {
		return out, nil
	}

	logger := c.logger(userID, surveyID, state.Attempt)
	logger.Info("flow: attempt timed out")
	response, err := c.finalize(ctx, userID, survey, state, true)
	if err != nil {
		if !isInconsistent(err) {
			return out, err
		}
		logger.WithError(err).Warn("flow: could not save timed out attempt")
		return redirect(StatusTimeout, ListURL), nil
	}
	return redirect(StatusTimeout, TimeoutURL(response.ID)), nil
}

// Instructions guards the instructions page: an attempt in progress resumes
// the survey, an existing response goes to the participated page.
func (c *Controller) Instructions(ctx context.Context, userID, surveyID int) (Outcome, error) {
	_, out, err := c.survey(ctx, userID, surveyID)
	if err != nil || out.Kind != Proceed {
		return out, err
	}

	state, err := c.sessions.Peek(ctx, userID, surveyID)
	if err != nil {
		return out, err
	}
	if state != nil {
		return Outcome{Kind: Redirect, Location: forms.SurveyURL(surveyID)}, nil
	}
	return out, nil
}

// survey loads the survey and rules out expired and already answered ones.
func (c *Controller) survey(ctx context.Context, userID, surveyID int) (model.Survey, Outcome, error) {
	survey, err := c.catalog.GetSurvey(ctx, surveyID)
	if errors.Is(err, store.ErrNotFound) {
		return survey, notFound, nil
	}
	if err != nil {
		return survey, notFound, err
	}
	if survey.Expired(c.Now()) {
		return survey, notFound, nil
	}

	response, err := c.catalog.FindResponse(ctx, surveyID, userID)
	if err != nil {
		return survey, notFound, err
	}
	if response != nil {
		if err = c.sessions.Clear(ctx, userID, surveyID); err != nil {
			log.WithError(err).Warn("flow: clear session of participated user")
		}
		return survey, redirect(StatusParticipated, ParticipatedURL), nil
	}

	return survey, proceed(survey), nil
}

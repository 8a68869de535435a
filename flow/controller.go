// Package flow drives a user through a timed survey: it guards access,
// shows one step at a time, collects values in the session and turns them
// into a response on completion or timeout.
package flow

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mbolis/timed-survey/forms"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/session"
	"github.com/mbolis/timed-survey/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrStepNotFound = errors.New("flow: no such step")
	ErrNoAttempt    = errors.New("flow: no attempt in progress")
	ErrNotTimedOut  = errors.New("flow: attempt still has time left")
)

const TimeoutSlack = 2 * time.Second

type Catalog interface {
	GetSurvey(ctx context.Context, id int) (model.Survey, error)
	FindResponse(ctx context.Context, surveyID, userID int) (*model.Response, error)
	forms.Saver
}

type Controller struct {
	catalog  Catalog
	sessions *session.Tracker

	// SinglePage shows every question on one page instead of one per step.
	SinglePage bool
	Now        func() time.Time
}

func New(catalog Catalog, sessions *session.Tracker) *Controller {
	return &Controller{catalog: catalog, sessions: sessions, Now: time.Now}
}

type Action string

const (
	ActionPrev Action = "prev"
	ActionNext Action = "next"
)

// ParseAction reads the navigation button of a step form. Anything but a
// request to go back moves forward.
func ParseAction(v string) Action {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "prev", "previous", "back":
		return ActionPrev
	}
	return ActionNext
}

type SurveyInfo struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// View is what a step page shows.
type View struct {
	Survey        SurveyInfo  `json:"survey"`
	Form          *forms.Form `json:"form"`
	TimeRemaining int         `json:"time_remaining"`
	CurrentURL    string      `json:"current_url"`
	PrevURL       string      `json:"prev_url,omitempty"`
	NextURL       string      `json:"next_url,omitempty"`
}

// Result of a step submission: either a redirect to Location, or the View
// to render again with its errors.
type Result struct {
	Location string
	View     *View
	Response *model.Response
}

// Step resolves the step to show. Without an explicit step the survey
// starts from the first one, unless the controller runs single page.
func (c *Controller) Step(survey model.Survey, step *int) (*int, error) {
	if step == nil {
		if c.SinglePage || len(survey.Questions) == 0 {
			return nil, nil
		}
		first := 0
		return &first, nil
	}
	if *step < 0 || *step >= len(survey.Questions) {
		return nil, ErrStepNotFound
	}
	return step, nil
}

// Show starts or resumes the attempt and builds the page of a step.
func (c *Controller) Show(ctx context.Context, userID int, survey model.Survey, step *int) (*View, error) {
	step, err := c.Step(survey, step)
	if err != nil {
		return nil, err
	}
	state, err := c.start(ctx, userID, survey)
	if err != nil {
		return nil, err
	}

	form := forms.New(survey, forms.Options{
		UserID:  userID,
		Step:    step,
		Session: state.Values,
	})
	return c.view(form, state), nil
}

// Submit validates the values posted for a step, stores them in the session
// and moves along.
//
// Going back lands on the previous step, or once on the fallback recorded
// when the attempt started. Going forward past the last step saves the
// response.
func (c *Controller) Submit(ctx context.Context, userID int, survey model.Survey, step *int, action Action, data url.Values) (*Result, error) {
	step, err := c.Step(survey, step)
	if err != nil {
		return nil, err
	}
	state, err := c.start(ctx, userID, survey)
	if err != nil {
		return nil, err
	}
	logger := c.logger(userID, survey.ID, state.Attempt)

	if data == nil {
		data = url.Values{}
	}
	form := forms.New(survey, forms.Options{
		UserID:  userID,
		Step:    step,
		Data:    data,
		Session: state.Values,
	})
	if !form.Valid() {
		logger.WithError(form.Err()).Debug("flow: invalid step")
		return &Result{View: c.view(form, state)}, nil
	}

	state, err = c.sessions.Merge(ctx, userID, survey.ID, form.Cleaned())
	if err != nil {
		return nil, err
	}

	if action == ActionPrev {
		location := form.PrevStepURL()
		if location == "" && state.Prev != "" {
			location, state.Prev = state.Prev, ""
			if err = c.sessions.Save(ctx, userID, survey.ID, state); err != nil {
				return nil, err
			}
		}
		if location == "" {
			location = form.CurrentStepURL()
		}
		return &Result{Location: location}, nil
	}

	if location := form.NextStepURL(); location != "" {
		return &Result{Location: location}, nil
	}

	response, err := c.finalize(ctx, userID, survey, state, false)
	if err != nil {
		if !isInconsistent(err) {
			return nil, err
		}
		logger.WithError(err).Warn("flow: session does not make a valid response")
		return &Result{Location: ListURL}, nil
	}
	return &Result{Location: ConfirmURL(response.ID), Response: &response}, nil
}

// Timeout finalizes the attempt of userID with the values collected so far,
// once its time is up. The client countdown may fire up to TimeoutSlack
// before the server deadline.
func (c *Controller) Timeout(ctx context.Context, userID, surveyID int) (model.Response, error) {
	survey, out, err := c.survey(ctx, userID, surveyID)
	if err != nil {
		return model.Response{}, err
	}
	switch out.Kind {
	case NotFound:
		return model.Response{}, store.ErrNotFound
	case Redirect:
		return model.Response{}, ErrNoAttempt
	}

	state, err := c.sessions.Peek(ctx, userID, surveyID)
	if err != nil {
		return model.Response{}, err
	}
	if state == nil {
		return model.Response{}, ErrNoAttempt
	}
	logger := c.logger(userID, surveyID, state.Attempt)
	if state.Remaining > TimeoutSlack.Seconds() {
		logger.WithField("remaining", state.Remaining).Debug("flow: early timeout signal")
		return model.Response{}, ErrNotTimedOut
	}

	logger.Info("flow: timeout signalled")
	return c.finalize(ctx, userID, survey, state, true)
}

// start touches the attempt. A new attempt gets the survey list as the
// target of "previous" on its first step.
func (c *Controller) start(ctx context.Context, userID int, survey model.Survey) (*session.State, error) {
	existing, err := c.sessions.Peek(ctx, userID, survey.ID)
	if err != nil {
		return nil, err
	}
	state, err := c.sessions.Touch(ctx, userID, survey)
	if err != nil || existing != nil {
		return state, err
	}
	state.Prev = ListURL
	return state, c.sessions.Save(ctx, userID, survey.ID, state)
}

// finalize saves the session values as the response and tears the attempt
// down. Values that no longer make a valid response drop the attempt too;
// storage failures keep it for another try.
func (c *Controller) finalize(ctx context.Context, userID int, survey model.Survey, state *session.State, partial bool) (model.Response, error) {
	values := state.Values
	if values == nil {
		values = url.Values{}
	}
	form := forms.New(survey, forms.Options{
		UserID:  userID,
		Data:    values,
		Partial: partial,
	})

	response, err := form.Save(ctx, c.catalog)
	if err != nil && !isInconsistent(err) {
		return response, err
	}
	if cerr := c.sessions.Clear(ctx, userID, survey.ID); cerr != nil {
		c.logger(userID, survey.ID, state.Attempt).WithError(cerr).Warn("flow: clear session")
	}
	if err != nil {
		return response, err
	}

	c.logger(userID, survey.ID, state.Attempt).WithFields(log.Fields{
		"response_id": response.ID,
		"answers":     len(response.Answers),
		"partial":     partial,
	}).Info("flow: response saved")
	return response, nil
}

func (c *Controller) view(form *forms.Form, state *session.State) *View {
	survey := form.Survey
	return &View{
		Survey: SurveyInfo{
			ID:          survey.ID,
			Title:       survey.Title,
			Description: survey.Description,
			Duration:    survey.Duration,
		},
		Form:          form,
		TimeRemaining: int(state.Remaining),
		CurrentURL:    form.CurrentStepURL(),
		PrevURL:       form.PrevStepURL(),
		NextURL:       form.NextStepURL(),
	}
}

func (c *Controller) logger(userID, surveyID int, attempt string) *logrus.Entry {
	return log.WithFields(log.Fields{
		"user_id":   userID,
		"survey_id": surveyID,
		"attempt":   attempt,
	})
}

// isInconsistent tells apart session values that cannot be saved from
// storage failures.
func isInconsistent(err error) bool {
	return model.IsValidation(err) || errors.Is(err, store.ErrNotFound)
}

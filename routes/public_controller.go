package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/timed-survey/app"
	"github.com/mbolis/timed-survey/flow"
	"github.com/mbolis/timed-survey/forms"
	"github.com/mbolis/timed-survey/httpx"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/routes/middlewares"
	"github.com/mbolis/timed-survey/store"
	"github.com/pkg/errors"
)

const stepTypeField = "step_type"

const (
	statusConfirmed = "confirmed"
	statusTimedOut  = "timeout"
)

type SurveyItem struct {
	flow.SurveyInfo
	InstructionsURL string `json:"instructions_url"`
}

func ListAvailableSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		surveys, err := app.Store.ListAvailableSurveys(r.Context(), userID)
		if err != nil {
			httpx.LogInternalError(w, "db.list_available_surveys", err)
			return
		}

		items := make([]SurveyItem, 0, len(surveys))
		for _, s := range surveys {
			items = append(items, SurveyItem{
				SurveyInfo:      surveyInfo(s),
				InstructionsURL: flow.InstructionsURL(s.ID),
			})
		}
		render.JSON(w, r, items)
	}
}

func Participated(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":  string(flow.StatusParticipated),
		"message": "You have already taken part in this survey.",
	})
}

func Instructions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		surveyID, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		out, err := app.Flow.Instructions(r.Context(), userID, surveyID)
		if !handleOutcome(w, r, "flow.instructions", surveyID, out, err) {
			return
		}

		render.JSON(w, r, map[string]any{
			"survey":          surveyInfo(out.Survey),
			"questions_count": len(out.Survey.Questions),
			"start_url":       forms.SurveyURL(surveyID),
		})
	}
}

// SurveyStep serves both the whole survey and its single steps. GET shows
// the step; POST submits it and redirects, or renders it again with errors.
func SurveyStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		surveyID, ok := urlInt(w, r, "id")
		if !ok {
			return
		}
		var step *int
		if chi.URLParam(r, "step") != "" {
			n, ok := urlInt(w, r, "step")
			if !ok {
				return
			}
			step = &n
		}

		out, err := app.Flow.Guard(r.Context(), userID, surveyID)
		if !handleOutcome(w, r, "flow.guard", surveyID, out, err) {
			return
		}

		if r.Method == http.MethodGet {
			view, err := app.Flow.Show(r.Context(), userID, out.Survey, step)
			if errors.Is(err, flow.ErrStepNotFound) {
				httpx.LogNotFound(w, "flow.show.step", chi.URLParam(r, "step"))
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "flow.show", err)
				return
			}
			render.JSON(w, r, view)
			return
		}

		if err = r.ParseForm(); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form", "invalid form data: %s", err)
			return
		}
		action := flow.ParseAction(r.PostForm.Get(stepTypeField))
		res, err := app.Flow.Submit(r.Context(), userID, out.Survey, step, action, r.PostForm)
		if errors.Is(err, flow.ErrStepNotFound) {
			httpx.LogNotFound(w, "flow.submit.step", chi.URLParam(r, "step"))
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "flow.submit", err)
			return
		}

		if res.View != nil {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, res.View)
			return
		}
		redirect(w, r, res.Location)
	}
}

type OutcomeView struct {
	Status   string          `json:"status"`
	Survey   flow.SurveyInfo `json:"survey"`
	Response model.Response  `json:"response"`
	Form     *forms.Form     `json:"form"`
}

// ResponseOutcome shows a saved response to its owner or to staff, as a
// read-only form filled with the stored answers.
func ResponseOutcome(app app.App, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		responseID, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		response, err := app.Store.GetResponse(r.Context(), responseID)
		if err != nil {
			httpx.LogStoreError(w, r, "db.get_response", responseID, err)
			return
		}
		owner := response.UserID != nil && *response.UserID == userID
		if !owner && !middlewares.IsStaff(r) {
			httpx.LogNotFound(w, "get_response.not_owner", responseID)
			return
		}

		survey, err := app.Store.GetSurvey(r.Context(), response.SurveyID)
		if err != nil {
			httpx.LogStoreError(w, r, "db.get_survey", response.SurveyID, err)
			return
		}

		render.JSON(w, r, OutcomeView{
			Status:   status,
			Survey:   surveyInfo(survey),
			Response: response,
			Form: forms.New(survey, forms.Options{
				UserID:   userID,
				Existing: &response,
			}),
		})
	}
}

// SurveyTimeout is called by the client when the countdown ends.
func SurveyTimeout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		surveyID, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		response, err := app.Flow.Timeout(r.Context(), userID, surveyID)
		if err != nil && !timeoutRefused(err) {
			httpx.LogInternalError(w, "flow.timeout", err)
			return
		}
		if err != nil {
			log.WithFields(log.Fields{"user_id": userID, "survey_id": surveyID}).
				WithError(err).
				Debug("survey_timeout: failed")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]any{"status": "fail"})
			return
		}

		render.JSON(w, r, map[string]any{
			"status":      "success",
			"response_id": response.ID,
		})
	}
}

func timeoutRefused(err error) bool {
	return errors.Is(err, flow.ErrNoAttempt) ||
		errors.Is(err, flow.ErrNotTimedOut) ||
		errors.Is(err, store.ErrNotFound) ||
		model.IsValidation(err)
}

// handleOutcome answers the request unless the guard let it proceed.
func handleOutcome(w http.ResponseWriter, r *http.Request, code string, surveyID int, out flow.Outcome, err error) bool {
	if err != nil {
		httpx.LogInternalError(w, code, err)
		return false
	}
	switch out.Kind {
	case flow.NotFound:
		httpx.LogNotFound(w, code, surveyID)
		return false
	case flow.Redirect:
		redirect(w, r, out.Location)
		return false
	}
	return true
}

// redirect answers 303 to non-GET requests so that the client follows with
// a GET, and 302 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	status := http.StatusFound
	if r.Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, location, status)
}

func currentUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := middlewares.UserID(r)
	if !ok {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "request.user_id")
	}
	return userID, ok
}

func urlInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	value := chi.URLParam(r, key)
	n, err := strconv.Atoi(value)
	if err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+key, "invalid %s %q", key, value)
		return 0, false
	}
	return n, true
}

func surveyInfo(s model.Survey) flow.SurveyInfo {
	return flow.SurveyInfo{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Duration:    s.Duration,
	}
}

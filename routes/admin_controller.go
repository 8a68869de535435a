package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/timed-survey/app"
	"github.com/mbolis/timed-survey/httpx"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/routes/middlewares"
)

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		survey.CreatedBy, _ = middlewares.UserID(r)

		err = app.CreateSurvey(r.Context(), &survey)
		if err != nil {
			httpx.LogStoreError(w, r, "db.insert_survey", nil, err)
			return
		}

		log.WithFields(log.Fields{
			"survey_id": survey.ID,
			"questions": len(survey.Questions),
		}).Info("admin: survey created")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": survey.ID,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		survey, err := app.GetSurvey(r.Context(), surveyId)
		if err != nil {
			httpx.LogStoreError(w, r, "db.get_survey", surveyId, err)
			return
		}

		render.JSON(w, r, survey)
	}
}

// UpdateSurvey changes the survey metadata. The body must carry the version
// it was read at; a stale version is answered with 409.
func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		survey.ID = surveyId

		version, err := app.UpdateSurvey(r.Context(), survey)
		if err != nil {
			httpx.LogStoreError(w, r, "db.update_survey", surveyId, err)
			return
		}

		render.JSON(w, r, map[string]any{
			"id":      surveyId,
			"version": version,
		})
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		err := app.DeleteSurvey(r.Context(), surveyId)
		if err != nil {
			httpx.LogStoreError(w, r, "db.delete_survey", surveyId, err)
			return
		}

		log.WithFields(log.Fields{"survey_id": surveyId}).Info("admin: survey deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

func AddQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		question := model.Question{}
		err := render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		question.SurveyID = surveyId

		err = app.AddQuestion(r.Context(), &question)
		if err != nil {
			httpx.LogStoreError(w, r, "db.insert_question", surveyId, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":       question.ID,
			"position": question.Position,
		})
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		question := model.Question{}
		err := render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		question.ID = questionId

		err = app.UpdateQuestion(r.Context(), question)
		if err != nil {
			httpx.LogStoreError(w, r, "db.update_question", questionId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		err := app.DeleteQuestion(r.Context(), questionId)
		if err != nil {
			httpx.LogStoreError(w, r, "db.delete_question", questionId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlInt(w, r, "id")
		if !ok {
			return
		}

		// 404 on unknown surveys rather than an empty list
		if _, err := app.GetSurvey(r.Context(), surveyId); err != nil {
			httpx.LogStoreError(w, r, "db.get_survey", surveyId, err)
			return
		}

		responses, err := app.ListResponses(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

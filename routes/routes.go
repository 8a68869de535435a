package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/timed-survey/app"
	"github.com/mbolis/timed-survey/routes/middlewares"
)

const (
	surveyPattern = `{id:[0-9]+}`
	stepPattern   = `{id:[0-9]+}-{step:[0-9]+}`
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Get(middlewares.LoginPath, LoginInfo)

	root.Group(func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.BearerServer), middlewares.Authenticated(app.TokenSecret))

		r.Get("/", ListAvailableSurveys(app))
		r.Get("/survey-participated/", Participated)
		r.Get("/survey/"+surveyPattern+"/instructions/", Instructions(app))

		r.Get("/survey/"+surveyPattern+"/", SurveyStep(app))
		r.Post("/survey/"+surveyPattern+"/", SurveyStep(app))
		r.Get("/"+stepPattern+"/", SurveyStep(app))
		r.Post("/"+stepPattern+"/", SurveyStep(app))

		r.Get("/survey/"+surveyPattern+"/confirm/", ResponseOutcome(app, statusConfirmed))
		r.Get("/survey/"+surveyPattern+"/timeout/", ResponseOutcome(app, statusTimedOut))
	})

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.With(middlewares.CookieAuth(app.BearerServer), middlewares.Authenticated(app.TokenSecret)).
		Post("/survey/"+surveyPattern+"/timeout/", SurveyTimeout(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get("/surveys/"+surveyPattern, GetSurveyById(app))
		r.Put("/surveys/"+surveyPattern, UpdateSurvey(app))
		r.Delete("/surveys/"+surveyPattern, DeleteSurvey(app))

		r.Post("/surveys/"+surveyPattern+"/questions", AddQuestion(app))
		r.Put("/questions/"+surveyPattern, UpdateQuestion(app))
		r.Delete("/questions/"+surveyPattern, DeleteQuestion(app))

		r.Get("/surveys/"+surveyPattern+"/responses", GetSurveyResponses(app))
	})

	return api
}

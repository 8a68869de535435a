package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mbolis/timed-survey/app"
	"github.com/mbolis/timed-survey/config"
	"github.com/mbolis/timed-survey/database"
	"github.com/mbolis/timed-survey/flow"
	"github.com/mbolis/timed-survey/httpx"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/routes"
	"github.com/mbolis/timed-survey/session"
	"github.com/mbolis/timed-survey/store"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetJSON(cfg.LogJSON)

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	kv, err := session.Open(cfg.SessionDir)
	if err != nil {
		log.Fatal("main.session.open:", err)
	}
	defer kv.Close()

	st := store.New(db)
	if cfg.AdminUser != "" {
		admin, err := st.EnsureUser(context.Background(), cfg.AdminUser, cfg.AdminPass, true)
		if err != nil {
			log.Fatal("main.admin:", err)
		}
		log.WithFields(log.Fields{"username": admin.Username, "user_id": admin.ID}).Info("admin account ready")
	}

	ctrl := flow.New(st, session.NewTracker(kv))
	ctrl.SinglePage = cfg.SinglePage

	app := app.App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(st, cfg),
		Config:       cfg,
		Flow:         ctrl,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}

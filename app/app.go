package app

import (
	"github.com/go-chi/oauth"
	"github.com/mbolis/timed-survey/config"
	"github.com/mbolis/timed-survey/flow"
	"github.com/mbolis/timed-survey/store"
)

// App is what every handler is built from.
type App struct {
	*store.Store
	*oauth.BearerServer
	config.Config
	Flow *flow.Controller
}

package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mbolis/timed-survey/app"
	"github.com/mbolis/timed-survey/httpx"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/routes/middlewares"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login trades basic auth credentials for a token pair, answered as JSON
// and set as cookies for browser use.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}.Encode()
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body)))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, r)
		if resp.Status() == http.StatusOK {
			tokens := middlewares.Tokens{}
			if err := resp.DecodeJSON(&tokens); err != nil {
				httpx.LogInternalError(w, "login.decode_tokens", err)
				return
			}
			middlewares.SetTokenCookies(w, tokens)
			log.WithFields(log.Fields{"username": user}).Info("login: token issued")
		}
		resp.Flush(w)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		tokens, status, err := middlewares.Refresh(app.BearerServer, match[1])
		if err != nil {
			httpx.LogInternalError(w, "refresh.grant", err)
			return
		}
		if status != http.StatusOK {
			httpx.LogStatus(w, status, log.DebugLevel, "refresh.rejected")
			return
		}

		middlewares.SetTokenCookies(w, tokens)
		render.JSON(w, r, tokens)
	}
}

// LoginInfo is where unauthenticated browsers land.
func LoginInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"login": "/api/login",
		"next":  r.URL.Query().Get("next"),
	})
}

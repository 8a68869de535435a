package middlewares

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/timed-survey/httpx"
	"github.com/mbolis/timed-survey/log"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	LoginPath = "/login/"
)

// Authenticated rejects requests without a valid bearer token.
func Authenticated(secret string) func(http.Handler) http.Handler {
	return oauth.Authorize(secret, nil)
}

// Admin middleware to check for the 'admin' role in an OAuth token.
func Admin(secret string) func(http.Handler) http.Handler {
	return chi.Chain(Authenticated(secret), admin).Handler
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStaff(r) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claims(r *http.Request) map[string]string {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	return claims
}

// UserID reads the authenticated user from the token claims.
func UserID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(claims(r)[httpx.ClaimUserID])
	return id, err == nil
}

func IsStaff(r *http.Request) bool {
	for _, role := range strings.Split(claims(r)[httpx.ClaimRoles], ",") {
		if role == httpx.RoleAdmin {
			return true
		}
	}
	return false
}

// Tokens is the body the bearer server answers a grant with.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func SetTokenCookies(w http.ResponseWriter, tokens Tokens) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    tokens.AccessToken,
		MaxAge:   tokens.ExpiresIn,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		MaxAge:   int(httpx.RefreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieAuth lets browsers authenticate with token cookies. An expired access
// token is renewed with the refresh token on GET; without a usable token GET
// requests are sent to the login page.
func CookieAuth(bearerServer *oauth.BearerServer) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie(AccessTokenCookie)
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				httpx.LogInternalError(w, "cookie_auth.access_token", err)
				return
			}

			if r.Method != http.MethodGet {
				if err == nil {
					r.Header.Set("authorization", "Bearer "+token.Value)
				}
				h.ServeHTTP(w, r)
				return
			}

			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
			}

			loginLocation := LoginPath + "?next=" + url.QueryEscape(r.RequestURI)

			// token was empty or unauthorized
			refreshToken, err := r.Cookie(RefreshTokenCookie)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					httpx.LogInternalError(w, "cookie_auth.refresh_token", err)
					return
				}
				http.Redirect(w, r, loginLocation, http.StatusTemporaryRedirect)
				return
			}

			tokens, status, err := Refresh(bearerServer, refreshToken.Value)
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.refresh", err)
				return
			}
			if status == http.StatusUnauthorized {
				log.Debug("cookie_auth.refresh: refresh token rejected")
				http.SetCookie(w, &http.Cookie{
					Path:   "/",
					Name:   RefreshTokenCookie,
					Value:  "",
					MaxAge: -1,
				})
				http.Redirect(w, r, loginLocation, http.StatusTemporaryRedirect)
				return
			}
			if status != http.StatusOK {
				http.Error(w, http.StatusText(status), status)
				return
			}

			SetTokenCookies(w, tokens)
			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}

// Refresh redeems a refresh token against the bearer server. A status other
// than 200 comes back with empty tokens.
func Refresh(bearerServer *oauth.BearerServer, refreshToken string) (Tokens, int, error) {
	tokens := Tokens{}
	body := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}.Encode()

	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return tokens, 0, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := httpx.NewResponseBuffer()
	bearerServer.UserCredentials(resp, req)
	if resp.Status() != http.StatusOK {
		return tokens, resp.Status(), nil
	}
	return tokens, http.StatusOK, resp.DecodeJSON(&tokens)
}

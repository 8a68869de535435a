package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/timed-survey/config"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/store"
	"github.com/pkg/errors"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	ClaimUserID = "user_id"
	ClaimRoles  = "roles"
)

// RefreshTTL bounds how long a refresh token can be redeemed.
const RefreshTTL = 8760 * time.Hour

var errNotSupported = errors.New("not supported")

type credentialsVerifier struct {
	store *store.Store
}

func CredentialsVerifier(st *store.Store) oauth.CredentialsVerifier {
	return &credentialsVerifier{st}
}

// NewBearerServer issues password-grant tokens carrying the user id and
// roles as claims.
func NewBearerServer(st *store.Store, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(st), nil)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	_, err := cs.store.Authenticate(r.Context(), username, password)
	if err != nil {
		log.WithFields(log.Fields{"username": username}).Debug("login: ", err)
	}
	return err
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.StoreToken(context.Background(), credential, tokenID, refreshTokenID, cs.store.Now().Add(RefreshTTL))
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	err := cs.store.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		return errors.Wrap(err, "could not refresh")
	}
	return nil
}
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := cs.store.UserByName(r.Context(), credential)
	if err != nil {
		return nil, err
	}

	roles := RoleUser
	if user.Staff {
		roles = RoleAdmin + "," + RoleUser
	}
	return map[string]string{
		ClaimUserID: strconv.Itoa(user.ID),
		ClaimRoles:  roles,
	}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errNotSupported
}

package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mbolis/timed-survey/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) CreateUser(ctx context.Context, username, password string, staff bool) (model.User, error) {
	user := model.User{Username: strings.TrimSpace(username), Staff: staff}
	if user.Username == "" {
		return user, &model.ValidationError{Field: "username", Msg: "username must not be empty"}
	}
	if password == "" {
		return user, &model.ValidationError{Field: "password", Msg: "password must not be empty"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user, errors.Wrap(err, "hash password")
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO user (username, password_hash, is_staff, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		user.Username,
		hash,
		staff,
		s.now(),
	).Scan(&user.ID)
	return user, errors.Wrap(err, "insert user")
}

// EnsureUser creates the account unless a user with that name exists.
func (s *Store) EnsureUser(ctx context.Context, username, password string, staff bool) (model.User, error) {
	user, err := s.UserByName(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}
	return s.CreateUser(ctx, username, password, staff)
}

func (s *Store) UserByName(ctx context.Context, username string) (model.User, error) {
	user := model.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, is_staff
		FROM user
		WHERE username = ?`,
		username,
	).Scan(&user.ID, &user.Username, &user.Staff)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, errors.Wrap(err, "get user")
}

// Authenticate checks password against the stored hash of username.
func (s *Store) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	user := model.User{}
	var hash []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, is_staff, password_hash
		FROM user
		WHERE username = ?`,
		username,
	).Scan(&user.ID, &user.Username, &user.Staff, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	if err != nil {
		return user, errors.Wrap(err, "get user")
	}

	return user, bcrypt.CompareHashAndPassword(hash, []byte(password))
}

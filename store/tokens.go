package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// StoreToken records an issued token pair so that its refresh token can be
// redeemed once before expiration.
func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username,
		tokenID,
		refreshTokenID,
		expiration.UTC(),
	)
	return errors.Wrap(err, "insert token")
}

// ConsumeToken deletes a token pair, failing with ErrNotFound if it was never
// issued or already redeemed, and with ErrExpired past its expiration.
func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) error {
	var expiration time.Time
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "delete token")
	}

	if !s.now().Before(expiration) {
		return ErrExpired
	}
	return nil
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestConsumeToken(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Now = func() time.Time { return now }

	if err := st.StoreToken(ctx, "alice", "t1", "r1", now.Add(time.Hour)); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	if err := st.ConsumeToken(ctx, "alice", "t1", "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a foreign refresh id, got %v", err)
	}
	if err := st.ConsumeToken(ctx, "alice", "t1", "r1"); err != nil {
		t.Errorf("ConsumeToken: %v", err)
	}
	if err := st.ConsumeToken(ctx, "alice", "t1", "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a token to be redeemed once, got %v", err)
	}

	if err := st.StoreToken(ctx, "alice", "t2", "r2", now.Add(-time.Minute)); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	if err := st.ConsumeToken(ctx, "alice", "t2", "r2"); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	user, err := st.Authenticate(ctx, "alice", "alice")
	if err != nil || user.ID != userID {
		t.Errorf("Authenticate = %+v, %v", user, err)
	}
	if _, err := st.Authenticate(ctx, "alice", "nope"); err == nil {
		t.Error("Expected a wrong password to fail")
	}
	if _, err := st.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

package repository

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionGetByToken(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db)
	repo := NewSessionRepository(db, slog.New(slog.DiscardHandler))

	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	sessID := uuid.New()
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO sessions (id, token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		sessID.String(), "tok-123", user.ID.String(), expires, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}

	sess, u, err := repo.GetByToken(ctx, "tok-123")
	if err != nil {
		t.Fatalf("GetByToken() error: %v", err)
	}
	if sess.ID != sessID || sess.UserID != user.ID {
		t.Errorf("session = %+v", sess)
	}
	if !sess.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, expires)
	}
	if u.ID != user.ID || u.Email != user.Email {
		t.Errorf("user = %+v", u)
	}

	if _, _, err := repo.GetByToken(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token err = %v, want ErrNotFound", err)
	}
}

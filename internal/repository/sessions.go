package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/entity"
)

type SessionRepository interface {
	// GetByToken returns the session and its user for an opaque token.
	GetByToken(ctx context.Context, token string) (*entity.Session, *entity.User, error)
}

type sessionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSessionRepository(db *DB, logger *slog.Logger) SessionRepository {
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*entity.Session, *entity.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT s.id, s.token, s.user_id, s.expires_at, s.created_at,
			u.id, u.name, u.email, u.image, u.created_at, u.updated_at
		FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`), token)

	var sessIDStr, sessUserIDStr, userIDStr string
	var image sql.NullString
	var sess entity.Session
	var user entity.User
	err := row.Scan(&sessIDStr, &sess.Token, &sessUserIDStr, &sess.ExpiresAt, &sess.CreatedAt,
		&userIDStr, &user.Name, &user.Email, &image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("query session: %w", err)
	}

	if sess.ID, err = uuid.Parse(sessIDStr); err != nil {
		return nil, nil, fmt.Errorf("parse session id: %w", err)
	}
	if sess.UserID, err = uuid.Parse(sessUserIDStr); err != nil {
		return nil, nil, fmt.Errorf("parse session user id: %w", err)
	}
	if user.ID, err = uuid.Parse(userIDStr); err != nil {
		return nil, nil, fmt.Errorf("parse user id: %w", err)
	}
	user.Image = image.String
	return &sess, &user, nil
}

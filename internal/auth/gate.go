package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m-nakagawa/cookmark/internal/entity"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

var (
	// ErrUnauthenticated means the token is missing, unknown, or expired.
	ErrUnauthenticated = errors.New("認証が必要です")
	// ErrForbidden means the account is valid but not on the allow list.
	ErrForbidden = errors.New("このアカウントは許可されていません")
)

// Gate checks a session token against the store and the account allow list.
// Accounts and sessions are provisioned by an external auth service; this
// side only reads them.
type Gate struct {
	sessions repository.SessionRepository
	allowed  map[string]struct{}
	logger   *slog.Logger
}

func NewGate(sessions repository.SessionRepository, allowedEmails []string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Gate{sessions: sessions, allowed: allowed, logger: logger}
}

// Authenticate resolves a session token to its user and applies the allow
// list. An empty allow list admits any valid session.
func (g *Gate) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	sess, user, err := g.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		g.logger.Info("auth.session_expired", "user_id", sess.UserID)
		return nil, ErrUnauthenticated
	}
	if !g.IsAllowedEmail(user.Email) {
		g.logger.Warn("auth.email_not_allowed", "email", user.Email)
		return nil, ErrForbidden
	}
	return user, nil
}

func (g *Gate) IsAllowedEmail(email string) bool {
	if len(g.allowed) == 0 {
		return true
	}
	_, ok := g.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

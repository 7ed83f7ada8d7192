package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/m-nakagawa/cookmark/internal/auth"
	"github.com/m-nakagawa/cookmark/internal/entity"
)

const userContextKey = "cookmark.user"

// RequireAuth resolves the session token (Authorization bearer or session
// cookie) through the gate and stores the user in the request context.
func RequireAuth(gate *auth.Gate, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := gate.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
			case errors.Is(err, auth.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": auth.ErrForbidden.Error()})
			default:
				logger.Error("auth.lookup_failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
			}
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := c.Cookie("session_token"); err == nil {
		return cookie
	}
	return ""
}

func currentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*entity.User)
	return user
}

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/session"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID       = "user_id"
	ContextUserRole     = "user_role"
	ContextUserEmail    = "user_email"
	ContextSessionToken = "session_token"
)

type Middleware struct {
	sessions session.Store
	identity IdentityProvider
	users    repositories.UserRepository
	logger   utils.Logger
}

func NewMiddleware(sessions session.Store, identity IdentityProvider, users repositories.UserRepository, logger utils.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		identity: identity,
		users:    users,
		logger:   logger,
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// BearerToken extracts the token of an Authorization: Bearer header. SSE
// clients cannot set headers, so access_token in the query is accepted too.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("access_token")
}

// RequireAuth resolves the caller from a session token, falling back to an
// identity provider access token.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		ctx := c.Request.Context()
		sess, err := m.sessions.Get(ctx, token)
		switch {
		case err == nil:
			c.Set(ContextUserID, sess.UserID)
			c.Set(ContextUserRole, sess.Role)
			c.Set(ContextUserEmail, sess.Email)
			c.Set(ContextSessionToken, token)
			c.Next()
			return
		case !errors.Is(err, session.ErrSessionNotFound):
			m.logger.LogError(err, "Session lookup failed")
			abort(c, http.StatusServiceUnavailable, "Authentication temporarily unavailable")
			return
		}

		identity, err := m.identity.VerifyToken(ctx, token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		user, err := m.users.GetByID(ctx, nil, identity.UserID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				abort(c, http.StatusUnauthorized, "Unknown user")
				return
			}
			m.logger.LogError(err, "Failed to load user profile", "user_id", identity.UserID)
			abort(c, http.StatusInternalServerError, "Failed to load user profile")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, user.Role)
		c.Set(ContextUserEmail, user.Email)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := UserRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func UserRole(c *gin.Context) models.UserRole {
	if v, ok := c.Get(ContextUserRole); ok {
		if role, ok := v.(models.UserRole); ok {
			return role
		}
	}
	return ""
}

// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	keyUserID    = "user_id"
	keyUsername  = "username"
	keyName      = "name"
	keyJTI       = "jti"
	keyExpiresAt = "token_expires_at"
)

type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
	TouchSession(ctx context.Context, userID int64, jti string) error
}

type AuthMiddleware struct {
	validator SessionValidator
}

func NewAuthMiddleware(validator SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
	}
}

// Auth validates the bearer token and puts the session identity on the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		// Activity tracking never blocks the request.
		_ = m.validator.TouchSession(c.Request.Context(), claims.UserID, claims.ID)

		c.Set(keyUserID, claims.UserID)
		c.Set(keyUsername, claims.Username)
		c.Set(keyName, claims.Name)
		c.Set(keyJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(keyExpiresAt, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

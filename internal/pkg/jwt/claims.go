// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the logged-in user. The token id (jti) keys the session.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Device   string `json:"device,omitempty"`
	jwt.RegisteredClaims
}

// HasAudience checks if the expected audience is listed in the claims.
func (c *Claims) HasAudience(audience string) bool {
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}

// internal/middleware/helpers.go
package middleware

import (
	"time"

	"minicrm-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(keyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// GetJTI gets the session's token id from context
func GetJTI(c *gin.Context) (string, bool) {
	v, ok := c.Get(keyJTI)
	if !ok {
		return "", false
	}
	jti, ok := v.(string)
	return jti, ok && jti != ""
}

// MustGetJTI gets JTI from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, exists := GetJTI(c)
	if !exists {
		panic("jti not found in context")
	}
	return jti
}

// GetTokenExpiry returns when the request's token stops being valid.
func GetTokenExpiry(c *gin.Context) time.Time {
	v, _ := c.Get(keyExpiresAt)
	t, _ := v.(time.Time)
	return t
}

// CurrentUser rebuilds the logged-in user from the token claims.
func CurrentUser(c *gin.Context) (*auth.User, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return nil, false
	}
	return &auth.User{
		ID:       id,
		Username: c.GetString(keyUsername),
		Name:     c.GetString(keyName),
	}, true
}

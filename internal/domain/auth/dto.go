// internal/domain/auth/dto.go
package auth

import "time"

// LoginRequest for user login
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	SessionID   string    `json:"-"`
	User        UserInfo  `json:"user"`
}

// UserInfo minimal user information
type UserInfo struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (u *User) Info() UserInfo {
	return UserInfo{UserID: u.ID, Username: u.Username, Name: u.Name}
}

// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/middleware"
	xerrors "minicrm-service/internal/pkg/errors"
	"minicrm-service/internal/pkg/response"
	"minicrm-service/internal/pkg/session"
	authUsecase "minicrm-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authenticator interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	Logout(ctx context.Context, userID int64, jti string, expiresAt time.Time) error
	GetSession(ctx context.Context, userID int64, jti string) (*session.SessionData, error)
	ActiveSessions(ctx context.Context, userID int64) ([]*session.SessionData, error)
}

// SessionHooks open and close the per-session application state.
type SessionHooks interface {
	Open(ctx context.Context, jti string, user *auth.User) error
	Close(jti string)
}

type AuthHandler struct {
	authService Authenticator
	hooks       SessionHooks
	logger      *zap.Logger
}

func NewAuthHandler(authService Authenticator, hooks SessionHooks, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		hooks:       hooks,
		logger:      logger,
	}
}

// ========== Login ==========

// Login checks the credentials, issues a token and loads the customer snapshot.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if errors.Is(err, authUsecase.ErrInvalidCredentials) {
		response.Fail(c, http.StatusUnauthorized, "invalid_credentials", "Ungültige Anmeldedaten")
		return
	}
	if err != nil {
		h.logger.Error("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Fail(c, http.StatusBadGateway, "backend_unavailable", "Anmeldung derzeit nicht möglich")
		return
	}

	user := &auth.User{
		ID:       loginResp.User.UserID,
		Username: loginResp.User.Username,
		Name:     loginResp.User.Name,
	}
	if err := h.hooks.Open(c.Request.Context(), loginResp.SessionID, user); err != nil {
		h.logger.Warn("initial customer load failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Logout ==========

// Logout ends the session and discards its state.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	jti := middleware.MustGetJTI(c)

	h.hooks.Close(jti)

	if err := h.authService.Logout(c.Request.Context(), userID, jti, middleware.GetTokenExpiry(c)); err != nil {
		h.logger.Error("logout failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "logout failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// ========== Profile ==========

// GetMe returns the logged-in user and session facts.
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	jti := middleware.MustGetJTI(c)

	sess, err := h.authService.GetSession(c.Request.Context(), user.ID, jti)
	if errors.Is(err, xerrors.ErrSessionExpired) {
		response.Unauthorized(c, "session expired")
		return
	}
	if err != nil {
		h.logger.Error("failed to read session", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to read session", nil)
		return
	}

	active, err := h.authService.ActiveSessions(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Warn("failed to list active sessions", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	response.Success(c, http.StatusOK, "user retrieved", gin.H{
		"user":             user.Info(),
		"login_at":         sess.LoginAt,
		"last_activity_at": sess.LastActivityAt,
		"expires_at":       sess.ExpiresAt,
		"active_sessions":  len(active),
	})
}

// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minicrm-service/internal/domain/auth"
	xerrors "minicrm-service/internal/pkg/errors"
	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/session"

	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrTokenRevoked = errors.New("token has been revoked")

type UserRepository interface {
	FindUserByUsername(ctx context.Context, username string) (*auth.User, error)
}

// LogoutNotifier is told when a session ends so live connections can be closed.
type LogoutNotifier interface {
	ForceLogout(userID int64, jti, reason string)
}

type AuthService struct {
	userRepo       UserRepository
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	passwords      PasswordMode
	notifier       LogoutNotifier
	logger         *zap.Logger
}

func NewAuthService(
	userRepo UserRepository,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	passwords PasswordMode,
	notifier LogoutNotifier,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		passwords:      passwords,
		notifier:       notifier,
		logger:         logger,
	}
}

// Authenticate checks a username and password against the credentials table.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*auth.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.passwords.Matches(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates, issues an access token and records the session.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected", zap.String("username", req.Username), zap.String("ip", req.IPAddress))
		}
		return nil, err
	}

	issued, err := s.jwtManager.Generator.Generate(jwt.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Device:   req.Device,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := time.Now()
	sessionData := &session.SessionData{
		JTI:            issued.JTI,
		UserID:         user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Device:         req.Device,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      issued.ExpiresAt,
	}
	if err := s.sessionManager.CreateSession(ctx, sessionData); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("jti", issued.JTI))

	return &auth.LoginResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtManager.Generator.TTL().Seconds()),
		ExpiresAt:   issued.ExpiresAt,
		SessionID:   issued.JTI,
		User:        user.Info(),
	}, nil
}

// Logout ends the session and keeps its token unusable until it expires.
func (s *AuthService) Logout(ctx context.Context, userID int64, jti string, expiresAt time.Time) error {
	if err := s.sessionManager.InvalidateSession(ctx, userID, jti); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ForceLogout(userID, jti, "logged out")
	}

	s.logger.Info("user logged out", zap.Int64("user_id", userID), zap.String("jti", jti))
	return nil
}

// ValidateToken verifies the signature and that the session is still live.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrTokenRevoked
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UserID, claims.ID); err != nil {
		return nil, fmt.Errorf("session not found or expired: %w", err)
	}

	return claims, nil
}

// TouchSession records activity on a live session.
func (s *AuthService) TouchSession(ctx context.Context, userID int64, jti string) error {
	return s.sessionManager.Touch(ctx, userID, jti)
}

// ActiveSessions lists the user's live sessions.
func (s *AuthService) ActiveSessions(ctx context.Context, userID int64) ([]*session.SessionData, error) {
	return s.sessionManager.GetUserActiveSessions(ctx, userID)
}

// GetSession returns the stored session data behind a token id.
func (s *AuthService) GetSession(ctx context.Context, userID int64, jti string) (*session.SessionData, error) {
	return s.sessionManager.GetSession(ctx, userID, jti)
}

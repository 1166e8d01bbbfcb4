// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "minicrm-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	client *redis.Client
	logger *zap.Logger
}

func NewManager(client *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		logger: logger,
	}
}

// CreateSession stores a new session in Redis until it expires.
func (m *Manager) CreateSession(ctx context.Context, session *SessionData) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return xerrors.Wrap(xerrors.ErrSessionExpired, "create session")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := m.sessionKey(session.UserID, session.JTI)
	if err := m.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}

	return nil
}

// GetSession returns the stored session or ErrSessionExpired when Redis no
// longer has it.
func (m *Manager) GetSession(ctx context.Context, userID int64, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(userID, jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Touch records activity on a session without changing its expiry.
func (m *Manager) Touch(ctx context.Context, userID int64, jti string) error {
	session, err := m.GetSession(ctx, userID, jti)
	if err != nil {
		return err
	}

	session.LastActivityAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(userID, jti), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// InvalidateSession removes a session from Redis.
func (m *Manager) InvalidateSession(ctx context.Context, userID int64, jti string) error {
	if err := m.client.Del(ctx, m.sessionKey(userID, jti)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetUserActiveSessions returns all live sessions of a user.
func (m *Manager) GetUserActiveSessions(ctx context.Context, userID int64) ([]*SessionData, error) {
	pattern := fmt.Sprintf("session:%d:*", userID)

	var sessions []*SessionData
	iter := m.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var session SessionData
		if err := json.Unmarshal(data, &session); err != nil {
			m.logger.Warn("skipping unreadable session", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		sessions = append(sessions, &session)
	}

	return sessions, iter.Err()
}

// IsTokenBlacklisted checks if a token is blacklisted
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := m.client.Exists(ctx, m.blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistToken keeps a logged-out token unusable until it would have expired.
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := m.client.Set(ctx, m.blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (m *Manager) sessionKey(userID int64, jti string) string {
	return fmt.Sprintf("session:%d:%s", userID, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}

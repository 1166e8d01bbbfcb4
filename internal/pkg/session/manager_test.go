package session

import (
	"context"
	"testing"
	"time"

	xerrors "minicrm-service/internal/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewManager(client, zap.NewNop()), mr
}

func testSession(jti string) *SessionData {
	now := time.Now()
	return &SessionData{
		JTI:       jti,
		UserID:    1,
		Username:  "admin",
		Name:      "Admin",
		LoginAt:   now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("jti-1")))

	got, err := m.GetSession(ctx, 1, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "Admin", got.Name)
}

func TestSessionExpiresWithTTL(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("jti-1")))
	mr.FastForward(2 * time.Hour)

	_, err := m.GetSession(ctx, 1, "jti-1")
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
}

func TestCreateExpiredSessionFails(t *testing.T) {
	m, _ := newTestManager(t)
	s := testSession("old")
	s.ExpiresAt = time.Now().Add(-time.Minute)

	assert.ErrorIs(t, m.CreateSession(context.Background(), s), xerrors.ErrSessionExpired)
}

func TestInvalidateSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, testSession("jti-1")))

	require.NoError(t, m.InvalidateSession(ctx, 1, "jti-1"))
	_, err := m.GetSession(ctx, 1, "jti-1")
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
}

func TestTouchKeepsExpiry(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, testSession("jti-1")))

	before := mr.TTL("session:1:jti-1")
	require.NoError(t, m.Touch(ctx, 1, "jti-1"))
	assert.Equal(t, before, mr.TTL("session:1:jti-1"))

	got, err := m.GetSession(ctx, 1, "jti-1")
	require.NoError(t, err)
	assert.False(t, got.LastActivityAt.IsZero())
}

func TestActiveSessions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, testSession("a")))
	require.NoError(t, m.CreateSession(ctx, testSession("b")))

	sessions, err := m.GetUserActiveSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestBlacklist(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	listed, err := m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, m.BlacklistToken(ctx, "jti-1", time.Minute))
	listed, err = m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, listed)

	mr.FastForward(2 * time.Minute)
	listed, err = m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestBlacklistIgnoresSpentTokens(t *testing.T) {
	m, mr := newTestManager(t)
	require.NoError(t, m.BlacklistToken(context.Background(), "gone", 0))
	assert.False(t, mr.Exists("blacklist:gone"))
}

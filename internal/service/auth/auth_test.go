package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"minicrm-service/internal/domain/auth"
	xerrors "minicrm-service/internal/pkg/errors"
	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers struct {
	users map[string]*auth.User
	err   error
}

func (f *fakeUsers) FindUserByUsername(_ context.Context, username string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

type recordingNotifier struct {
	jtis []string
}

func (r *recordingNotifier) ForceLogout(_ int64, jti, _ string) {
	r.jtis = append(r.jtis, jti)
}

func newTestAuthService(t *testing.T, mode PasswordMode, stored string) (*AuthService, *fakeUsers, *recordingNotifier) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jm := jwt.NewManager(key, jwt.Config{Issuer: "minicrm", Audience: "minicrm-web", TTL: time.Hour})

	users := &fakeUsers{users: map[string]*auth.User{
		"admin": {ID: 1, Username: "admin", PasswordHash: stored, Name: "Administrator"},
	}}
	notifier := &recordingNotifier{}
	svc := NewAuthService(users, jm, session.NewManager(client, zap.NewNop()), mode, notifier, zap.NewNop())
	return svc, users, notifier
}

func TestAuthenticatePlain(t *testing.T) {
	svc, _, _ := newTestAuthService(t, PasswordPlain, "admin123")
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", user.Name)

	_, err = svc.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "Admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "usernames match exactly")

	_, err = svc.Authenticate(ctx, "  admin\t", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "surrounding whitespace is part of the username")

	_, err = svc.Authenticate(ctx, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateBcrypt(t *testing.T) {
	hashed, err := PasswordBcrypt.Hash("admin123")
	require.NoError(t, err)
	svc, _, _ := newTestAuthService(t, PasswordBcrypt, hashed)

	_, err = svc.Authenticate(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "admin", hashed)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateBackendFailure(t *testing.T) {
	svc, users, _ := newTestAuthService(t, PasswordPlain, "admin123")
	users.err = errors.New("connection refused")

	_, err := svc.Authenticate(context.Background(), "admin", "admin123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginValidateLogout(t *testing.T) {
	svc, _, notifier := newTestAuthService(t, PasswordPlain, "admin123")
	ctx := context.Background()

	resp, err := svc.Login(ctx, &auth.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "Administrator", resp.User.Name)
	require.NotEmpty(t, resp.SessionID)

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, claims.ID)

	sess, err := svc.GetSession(ctx, claims.UserID, claims.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.TouchSession(ctx, claims.UserID, claims.ID))
	touched, err := svc.GetSession(ctx, claims.UserID, claims.ID)
	require.NoError(t, err)
	assert.True(t, touched.LastActivityAt.After(sess.LastActivityAt))

	active, err := svc.ActiveSessions(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, svc.Logout(ctx, claims.UserID, claims.ID, claims.ExpiresAt.Time))
	assert.Equal(t, []string{claims.ID}, notifier.jtis)

	_, err = svc.ValidateToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLoginRejected(t *testing.T) {
	svc, _, _ := newTestAuthService(t, PasswordPlain, "admin123")

	_, err := svc.Login(context.Background(), &auth.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParsePasswordMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PasswordMode
		wantErr bool
	}{
		{"", PasswordPlain, false},
		{"plain", PasswordPlain, false},
		{"bcrypt", PasswordBcrypt, false},
		{"md5", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePasswordMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlainHashIsIdentity(t *testing.T) {
	got, err := PasswordPlain.Hash("admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin123", got)
}

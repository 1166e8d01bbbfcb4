package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DB_MAX_CONNS", "JWT_TTL", "AUTH_PASSWORD_MODE", "CORS_ORIGINS", "AMQP_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "plain", cfg.PasswordMode)
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, "admin", cfg.SeedAdminUsername)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("AUTH_PASSWORD_MODE", "bcrypt")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "bcrypt", cfg.PasswordMode)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("JWT_TTL", "-5m")

	cfg := Load()
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
}

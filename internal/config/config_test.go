package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("CHALLENGE_REQUIRE_VERIFIED", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SESSION_STORE", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.RequireVerifiedChallenge)
	assert.False(t, cfg.RequireGeneratedTarget)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DETECT_TIMEOUT", "750ms")
	t.Setenv("CHALLENGE_REQUIRE_TARGET", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_STORE", "Memory")

	cfg := Load()

	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 750*time.Millisecond, cfg.DetectTimeout)
	assert.True(t, cfg.RequireGeneratedTarget)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "-5m")
	t.Setenv("COOKIE_SECURE", "maybe")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

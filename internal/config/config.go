package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	AppPort string

	DatabasePath  string
	RedisAddr     string
	RedisPassword string

	// SessionStore is "redis" or "memory".
	SessionStore  string
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	DetectorURL              string
	DetectTimeout            time.Duration
	ChallengeTTL             time.Duration
	RequireGeneratedTarget   bool
	RequireVerifiedChallenge bool

	OtelEndpoint string
	ServiceName  string
	LogLevel     slog.Level
}

// Load reads the configuration. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppPort: getenv("APP_PORT", "8080"),

		DatabasePath:  getenv("DATABASE_PATH", "./users.db"),
		RedisAddr:     getenv("REDIS_CONNSTRING", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionStore:  strings.ToLower(getenv("SESSION_STORE", "redis")),
		SessionSecret: getenv("SESSION_SECRET", "change-this-session-secret"),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:  getBool("COOKIE_SECURE", false),

		DetectorURL:              getenv("DETECTOR_URL", "http://localhost:8500"),
		DetectTimeout:            getDuration("DETECT_TIMEOUT", 5*time.Second),
		ChallengeTTL:             getDuration("CHALLENGE_TTL", 30*time.Second),
		RequireGeneratedTarget:   getBool("CHALLENGE_REQUIRE_TARGET", false),
		RequireVerifiedChallenge: getBool("CHALLENGE_REQUIRE_VERIFIED", true),

		OtelEndpoint: os.Getenv("OTEL_EXPORTER_ENDPOINT"),
		ServiceName:  getenv("OTEL_SERVICE_NAME", "finger-auth"),
		LogLevel:     getLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getLevel(key string, def slog.Level) slog.Level {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return def
	}
	return lvl
}

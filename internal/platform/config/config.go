package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean.
type Server struct {
	Addr                 string
	JWTSigningKey        string
	WebhookSigningSecret string
	DatabaseURL          string
	Redis                RedisConfig
}

// RedisConfig tunes the optional Redis client used for the webhook delivery
// replay log. An empty URL disables Redis entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WebhookTolerance bounds how old (or future-dated) a signed delivery
// timestamp may be before verification rejects it.
var WebhookTolerance = 5 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("ADMITTO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:                 addr,
		JWTSigningKey:        jwtSigningKey,
		WebhookSigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

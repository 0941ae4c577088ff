package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresDSN is empty when the service runs with in-memory stores only
	// (local development, unit tests).
	PostgresDSN string

	Redis RedisConfig

	// JWTSigningKey verifies externally issued access tokens.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AdminTokenHash is the bcrypt hash of the admin console token.
	AdminTokenHash string

	// SessionTTL bounds the lifetime of anonymous guest sessions.
	SessionTTL time.Duration

	// AuditQueueSize bounds the audit recorder's in-flight event queue.
	AuditQueueSize int
}

// RedisConfig configures the optional Redis-backed session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("VITRINE_ADDR", ":8080"),
		PostgresDSN:    os.Getenv("VITRINE_POSTGRES_DSN"),
		JWTSigningKey:  envOr("VITRINE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:      envOr("VITRINE_JWT_ISSUER", "vitrine"),
		JWTAudience:    envOr("VITRINE_JWT_AUDIENCE", "vitrine-storefront"),
		AdminTokenHash: os.Getenv("VITRINE_ADMIN_TOKEN_HASH"),
		SessionTTL:     envDurationOr("VITRINE_SESSION_TTL", 24*time.Hour),
		AuditQueueSize: envIntOr("VITRINE_AUDIT_QUEUE_SIZE", 256),
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("VITRINE_REDIS_URL"),
		PoolSize:     envIntOr("VITRINE_REDIS_POOL_SIZE", 10),
		MinIdleConns: envIntOr("VITRINE_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDurationOr("VITRINE_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDurationOr("VITRINE_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDurationOr("VITRINE_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Every external backend is
// optional: an empty URL means the in-memory (or log-only) fallback is wired
// instead, which keeps local development free of docker-compose ceremony.
type Config struct {
	Addr          string
	JWTSigningKey string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// NotifierMode selects the outbound mail implementation: "log" (default)
	// or "noop".
	NotifierMode string

	Tokens TokenConfig
}

// RedisConfig mirrors the go-redis options we actually tune.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event sink.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// TokenConfig holds the per-kind token lifetimes. Defaults follow the product
// contract (citizen 7d, agent 12h, staff 8-12h by role, anonymous up to 30d);
// overrides exist for test environments.
type TokenConfig struct {
	CitizenTTL   time.Duration
	AgentTTL     time.Duration
	AnonymousTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("SAYIT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("SAYIT_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	notifierMode := os.Getenv("SAYIT_NOTIFIER_MODE")
	if notifierMode == "" {
		notifierMode = "log"
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresURL:   os.Getenv("SAYIT_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("SAYIT_REDIS_URL"),
			PoolSize:     envInt("SAYIT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SAYIT_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SAYIT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SAYIT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SAYIT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("SAYIT_KAFKA_BROKERS"),
			AuditTopic: envString("SAYIT_KAFKA_AUDIT_TOPIC", "sayit.audit.v1"),
		},
		NotifierMode: notifierMode,
		Tokens: TokenConfig{
			CitizenTTL:   envDuration("SAYIT_TOKEN_TTL_CITIZEN", 7*24*time.Hour),
			AgentTTL:     envDuration("SAYIT_TOKEN_TTL_AGENT", 12*time.Hour),
			AnonymousTTL: envDuration("SAYIT_TOKEN_TTL_ANONYMOUS", 30*24*time.Hour),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

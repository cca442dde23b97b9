package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends for account records.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel string
	// Store selects the account backend: memory, redis or postgres.
	Store string
	// StrictCommit turns the registration write into a create-if-absent.
	StrictCommit bool
	Session      SessionConfig
	Redis        RedisConfig
	Database     DatabaseConfig
	Kafka        KafkaConfig
	Audit        AuditConfig
}

// SessionConfig bounds how long an idle registration form is kept.
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// RedisConfig configures the go-redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string
	// Driver is the database/sql driver name: "postgres" (lib/pq) or "pgx".
	Driver       string
	Table        string
	MaxOpenConns int
	MaxIdleConns int
}

// KafkaConfig configures the audit event stream. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuditConfig tunes delivery of audit events to their sink.
type AuditConfig struct {
	Buffer int
	// OpsSampleRate is the fraction of operational events kept, in [0, 1].
	OpsSampleRate    float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:         getEnv("SIGNUP_ADDR", ":8080"),
		LogLevel:     getEnv("SIGNUP_LOG_LEVEL", "info"),
		Store:        strings.ToLower(getEnv("SIGNUP_STORE", StoreMemory)),
		StrictCommit: os.Getenv("SIGNUP_STRICT_COMMIT") == "true",
		Session: SessionConfig{
			TTL:             getDuration("SIGNUP_SESSION_TTL", 15*time.Minute),
			CleanupInterval: getDuration("SIGNUP_SESSION_CLEANUP_INTERVAL", time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "users:"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Driver:       getEnv("DATABASE_DRIVER", "postgres"),
			Table:        getEnv("SIGNUP_ACCOUNTS_TABLE", "accounts"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_EVENTS_TOPIC", "signup.events"),
		},
		Audit: AuditConfig{
			Buffer:           getInt("SIGNUP_AUDIT_BUFFER", 1024),
			OpsSampleRate:    getFloat("SIGNUP_AUDIT_OPS_SAMPLE_RATE", 1),
			BreakerThreshold: getInt("SIGNUP_AUDIT_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  getDuration("SIGNUP_AUDIT_BREAKER_COOLDOWN", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

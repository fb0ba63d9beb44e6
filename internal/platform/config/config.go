package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures everything the process needs from the environment so main
// stays lean.
type Server struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string

	PostgresDSN string
	Redis       RedisConfig

	KafkaBrokers []string
	AuditTopic   string

	TokenTTL time.Duration
	BlobRoot string
}

// RedisConfig holds connection tuning for the token store. An empty URL means
// Redis is not configured and the in-memory store is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("VERDECK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	blobRoot := os.Getenv("VERDECK_BLOB_ROOT")
	if blobRoot == "" {
		blobRoot = "/var/lib/verdeck/blobs"
	}

	auditTopic := os.Getenv("VERDECK_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "verdeck.audit"
	}

	return Server{
		Addr:          addr,
		AdminToken:    os.Getenv("VERDECK_ADMIN_TOKEN"),
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("VERDECK_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("VERDECK_REDIS_URL"),
			PoolSize:     envInt("VERDECK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VERDECK_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("VERDECK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VERDECK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VERDECK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers: envList("VERDECK_KAFKA_BROKERS"),
		AuditTopic:   auditTopic,
		TokenTTL:     envDuration("VERDECK_TOKEN_TTL", 24*time.Hour),
		BlobRoot:     blobRoot,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

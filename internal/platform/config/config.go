package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. All external collaborators
// (Postgres, Redis, SMTP, Kafka) are optional: when an URL is absent the
// wiring in cmd/server falls back to in-memory / log-only implementations.
type Server struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	JWTSigningKey string
	JWTIssuer     string

	SessionIdleTimeout time.Duration

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	KafkaBrokers    []string
	KafkaAuditTopic string

	UploadDir string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("STREETWATCH_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:          envOr("JWT_ISSUER", "streetwatch"),
		SessionIdleTimeout: 30 * time.Minute,
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           envOr("SMTP_PORT", "587"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		SMTPFrom:           envOr("SMTP_FROM", "no-reply@streetwatch.local"),
		KafkaAuditTopic:    envOr("KAFKA_AUDIT_TOPIC", "streetwatch.audit"),
		UploadDir:          envOr("UPLOAD_DIR", "uploads/incidents"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if idle := os.Getenv("SESSION_IDLE_TIMEOUT"); idle != "" {
		if d, err := time.ParseDuration(idle); err == nil && d > 0 {
			cfg.SessionIdleTimeout = d
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

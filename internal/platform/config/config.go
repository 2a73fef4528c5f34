package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string

	// CodeTTL bounds how long a pending link's verification code is
	// redeemable. Past it the link expires.
	CodeTTL time.Duration

	// SweepInterval is how often the background sweeper moves overdue
	// PENDING links to EXPIRED. Expiry is also checked lazily on read, so
	// this only bounds staleness of listings.
	SweepInterval time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("KINDRED_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("KINDRED_DATABASE_URL"),
		RedisURL:      os.Getenv("KINDRED_REDIS_URL"),
		KafkaTopic:    envOr("KINDRED_AUDIT_TOPIC", "kindred.audit.v1"),
		JWTSigningKey: os.Getenv("KINDRED_JWT_SIGNING_KEY"),
		CodeTTL:       durationOr("KINDRED_CODE_TTL", 24*time.Hour),
		SweepInterval: durationOr("KINDRED_SWEEP_INTERVAL", 5*time.Minute),
	}
	if brokers := os.Getenv("KINDRED_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.JWTSigningKey == "" {
		// Development fallback; must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
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

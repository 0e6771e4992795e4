// Package config loads runtime settings from the environment. Every knob
// carries a development-friendly default; Validate enforces the handful
// that must be set explicitly before the server may boot.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                    string
	AppBaseURL              string
	DatabaseURL             string
	JWTSecret               string
	DataEncryptionKey       string
	Environment             string
	LogLevel                string
	CORSAllowedOrigins      []string
	SeedAdminEmail          string
	SeedAdminPassword       string
	SeedSystemAdminEmail    string
	SeedSystemAdminPassword string
	EmailFrom               string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUser                string
	SMTPPassword            string
	SMTPUseTLS              bool
	RunMigrations           bool
	MigrationsDir           string
	RunSeed                 bool
	MaxBodyBytes            int64
	RateLimitPerMinute      int
	PayslipDir              string
	JobQueueSize            int
	CleanupInterval         time.Duration
	ShutdownTimeout         time.Duration
	MetricsEnabled          bool
}

func Load() Config {
	return Config{
		Addr:                    envStr("APP_ADDR", ":8080"),
		AppBaseURL:              envStr("APP_BASE_URL", "http://localhost:8080"),
		DatabaseURL:             envStr("DATABASE_URL", ""),
		JWTSecret:               envStr("JWT_SECRET", ""),
		DataEncryptionKey:       envStr("DATA_ENCRYPTION_KEY", ""),
		Environment:             envStr("APP_ENV", "development"),
		LogLevel:                envStr("LOG_LEVEL", "info"),
		CORSAllowedOrigins:      envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SeedAdminEmail:          envStr("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:       envStr("SEED_ADMIN_PASSWORD", ""),
		SeedSystemAdminEmail:    envStr("SEED_SYSTEM_ADMIN_EMAIL", ""),
		SeedSystemAdminPassword: envStr("SEED_SYSTEM_ADMIN_PASSWORD", ""),
		EmailFrom:               envStr("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:            envOr("EMAIL_ENABLED", false, strconv.ParseBool),
		SMTPHost:                envStr("SMTP_HOST", ""),
		SMTPPort:                envOr("SMTP_PORT", 587, strconv.Atoi),
		SMTPUser:                envStr("SMTP_USER", ""),
		SMTPPassword:            envStr("SMTP_PASSWORD", ""),
		SMTPUseTLS:              envOr("SMTP_USE_TLS", true, strconv.ParseBool),
		RunMigrations:           envOr("RUN_MIGRATIONS", true, strconv.ParseBool),
		MigrationsDir:           envStr("MIGRATIONS_DIR", "migrations"),
		RunSeed:                 envOr("RUN_SEED", true, strconv.ParseBool),
		MaxBodyBytes:            int64(envOr("MAX_BODY_BYTES", 1048576, strconv.Atoi)),
		RateLimitPerMinute:      envOr("RATE_LIMIT_PER_MINUTE", 60, strconv.Atoi),
		PayslipDir:              envStr("PAYSLIP_DIR", "data/payslips"),
		JobQueueSize:            envOr("JOB_QUEUE_SIZE", 128, strconv.Atoi),
		CleanupInterval:         envOr("CLEANUP_INTERVAL", time.Hour, time.ParseDuration),
		ShutdownTimeout:         envOr("SHUTDOWN_TIMEOUT", 15*time.Second, time.ParseDuration),
		MetricsEnabled:          envOr("METRICS_ENABLED", true, strconv.ParseBool),
	}
}

// envOr reads key and runs it through parse. Unset or malformed values
// fall back to the default so a bad override cannot keep the server from
// booting in development; production correctness is Validate's job.
func envOr[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Validate rejects configurations that cannot produce a working server.
// Development defaults stay permissive; production tightens the secrets.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("DATABASE_URL is required")
	case c.MaxBodyBytes < 1024:
		return errors.New("MAX_BODY_BYTES must be at least 1024")
	case c.RateLimitPerMinute <= 0:
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	case c.JobQueueSize <= 0:
		return errors.New("JOB_QUEUE_SIZE must be positive")
	case c.EmailEnabled && c.SMTPHost == "":
		return errors.New("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}

	if c.Environment != "production" {
		return nil
	}
	switch {
	case strings.TrimSpace(c.JWTSecret) == "":
		return errors.New("JWT_SECRET must be set to a strong value in production")
	case strings.TrimSpace(c.DataEncryptionKey) == "":
		return errors.New("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
	case c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "":
		return errors.New("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
	}
	return nil
}

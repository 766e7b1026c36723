package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, loaded once at startup.
type Config struct {
	AppEnv         string
	HTTPListenAddr string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel         string
	MetricsNamespace string

	DefaultLocale string

	MailProvider string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "taskhub"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		MailProvider:     os.Getenv("MAIL_PROVIDER"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         os.Getenv("SMTP_PORT"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:         os.Getenv("SMTP_FROM"),
	}

	if cfg.DatabaseURL == "" {
		// Fall back to discrete DB_* variables for docker-compose setups
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		pass := os.Getenv("DB_PASSWORD")
		name := getEnv("DB_NAME", "taskhub")
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = n
	}

	ttl := getEnv("TOKEN_TTL_HOURS", "72")
	hours, err := strconv.Atoi(ttl)
	if err != nil || hours <= 0 {
		return cfg, fmt.Errorf("invalid TOKEN_TTL_HOURS %q", ttl)
	}
	cfg.TokenTTL = time.Duration(hours) * time.Hour

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "change-me"

type Config struct {
	Env      string
	Port     string
	LogLevel string

	StoreDriver   string // "mongo" or "memory"
	MongoURI      string
	MongoDatabase string
	WatchMode     string // "poll" or "changestream"
	PollInterval  time.Duration

	JWTSecret  string
	AdminEmail string

	CachePath string

	MailProvider   string // "postmark", "sendgrid" or "" (disabled)
	PostmarkToken  string
	SendGridAPIKey string
	EmailSender    string

	RabbitMQURL   string
	OrderExchange string

	NATSURL         string
	SettingsSubject string

	PaymentOnboardingURL string
	OutboxFlushInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnvFromFile("MONGO_URI_FILE", "MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),
		WatchMode:     getEnv("ORDERS_WATCH_MODE", "poll"),
		PollInterval:  getDuration("ORDERS_POLL_INTERVAL", 30*time.Second),

		JWTSecret:  getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", DefaultJWTSecret),
		AdminEmail: strings.TrimSpace(getEnv("ADMIN_EMAIL", "admin@example.com")),

		CachePath: getEnv("CACHE_PATH", "./storefront-cache.db"),

		MailProvider:   getEnv("MAIL_PROVIDER", ""),
		PostmarkToken:  getEnvFromFile("POSTMARK_API_TOKEN_FILE", "POSTMARK_API_TOKEN", ""),
		SendGridAPIKey: getEnvFromFile("SENDGRID_API_KEY_FILE", "SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "orders@example.com"),

		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),
		OrderExchange: getEnv("ORDER_EXCHANGE", "orders_exchange"),

		NATSURL:         getEnv("NATS_URL", ""),
		SettingsSubject: getEnv("SETTINGS_SUBJECT", "storefront.settings"),

		PaymentOnboardingURL: getEnv("PAYMENT_ONBOARDING_URL", ""),
		OutboxFlushInterval:  getDuration("OUTBOX_FLUSH_INTERVAL", time.Minute),
	}
}

// Development reports whether the process runs outside production.
func (c *Config) Development() bool {
	return c.Env != "production"
}

// Validate rejects settings that must not reach production.
func (c *Config) Validate() error {
	if !c.Development() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

// getDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

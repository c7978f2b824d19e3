// Package config loads service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	DB Database

	RedisURL string `env:"REDIS_URL"`

	RateLimitMax     int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"5m"`
	RateLimitMaxKeys int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000"`

	ContactRateLimitMax    int           `env:"CONTACT_RATE_LIMIT_MAX" envDefault:"3"`
	ContactRateLimitWindow time.Duration `env:"CONTACT_RATE_LIMIT_WINDOW" envDefault:"10m"`

	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	// TrustProxyHeaders keys rate limits on X-Forwarded-For and friends.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	AdminJWTSecret    string        `env:"ADMIN_JWT_SECRET"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"techfest.changes"`

	RunMigrations bool `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// Database holds PostgreSQL connection settings. URL, when set, wins over
// the individual fields.
type Database struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"techfest"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AdminEnabled reports whether the admin API can be mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminJWTSecret != "" && c.AdminPasswordHash != ""
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be > 0")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.RateLimitMaxKeys <= 0 {
		return errors.New("RATE_LIMIT_MAX_KEYS must be > 0")
	}
	if c.ContactRateLimitMax <= 0 || c.ContactRateLimitWindow <= 0 {
		return errors.New("CONTACT_RATE_LIMIT_MAX and CONTACT_RATE_LIMIT_WINDOW must be > 0")
	}
	if (c.AdminJWTSecret == "") != (c.AdminPasswordHash == "") {
		return errors.New("ADMIN_JWT_SECRET and ADMIN_PASSWORD_HASH must be set together")
	}
	return nil
}

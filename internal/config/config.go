package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/crm.db"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// AuthConfig holds the admin credential. Tenant keys live in the database.
type AuthConfig struct {
	AdminAPIKey string `env:"ADMIN_API_KEY"`
}

// CacheConfig holds the overview cache configuration. An empty address disables Redis.
type CacheConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	OverviewTTL   time.Duration `env:"OVERVIEW_CACHE_TTL" envDefault:"60s"`
}

// Enabled reports whether Redis is configured.
func (c *CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// NotifyConfig holds the webhook configuration. An empty URL disables notifications.
type NotifyConfig struct {
	WebhookURL     string        `env:"WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.Cache); err != nil {
		return nil, fmt.Errorf("parsing cache config: %w", err)
	}
	if err := env.Parse(&cfg.Notify); err != nil {
		return nil, fmt.Errorf("parsing notify config: %w", err)
	}
	if err := env.Parse(&cfg.Metrics); err != nil {
		return nil, fmt.Errorf("parsing metrics config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}

	if c.Cache.Enabled() && c.Cache.OverviewTTL <= 0 {
		return fmt.Errorf("OVERVIEW_CACHE_TTL must be positive")
	}

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute http(s) URL")
		}
		if c.Notify.WebhookTimeout <= 0 {
			return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
		}
	}

	return nil
}

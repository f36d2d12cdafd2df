// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// csrfKeyLength is the key size gorilla/csrf expects.
const csrfKeyLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// JWT Pizza service and the factory that signs orders.
	// The factory defaults to the service URL when unset.
	PizzaServiceURL string        `env:"PIZZA_SERVICE_URL,required,notEmpty"`
	PizzaFactoryURL string        `env:"PIZZA_FACTORY_URL"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Cache (Redis): sessions, navigation state, menu cache, rate limits
	RedisURL      string `env:"REDIS_URL,required,notEmpty"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Database (PostgreSQL), optional. Enables the management audit log.
	DatabaseURL string `env:"DATABASE_URL"`

	// Sessions
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"pizza_session"`

	// CSRF protection is disabled when the key is empty.
	CSRFKey string `env:"CSRF_KEY"`

	// Menu cache. The warmer refreshes it before expiry; zero disables it.
	MenuCacheTTL     time.Duration `env:"MENU_CACHE_TTL" envDefault:"1m"`
	MenuWarmInterval time.Duration `env:"MENU_WARM_INTERVAL" envDefault:"45s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting of login attempts per client IP
	RateLimitLoginEnabled bool `env:"RATE_LIMIT_LOGIN_ENABLED" envDefault:"true"`
	RateLimitLoginRPS     int  `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"1"`
	RateLimitLoginBurst   int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// Request body size limit in bytes (default 64KB, forms only)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CSRFEnabled reports whether form posts must carry a CSRF token.
func (c *Config) CSRFEnabled() bool {
	return c.CSRFKey != ""
}

// HasDatabase reports whether the audit log database is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"PIZZA_SERVICE_URL": c.PizzaServiceURL,
		"PIZZA_FACTORY_URL": c.PizzaFactoryURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL", name))
		}
	}

	if c.CSRFKey != "" && len(c.CSRFKey) != csrfKeyLength {
		errs = append(errs, fmt.Errorf("CSRF_KEY must be %d bytes", csrfKeyLength))
	}
	if c.IsProduction() && c.CSRFKey == "" {
		errs = append(errs, errors.New("CSRF_KEY is required in production"))
	}
	if c.RedisPoolSize <= 0 {
		errs = append(errs, errors.New("REDIS_POOL_SIZE must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MenuWarmInterval > 0 && c.MenuWarmInterval >= c.MenuCacheTTL {
		errs = append(errs, errors.New("MENU_WARM_INTERVAL must be shorter than MENU_CACHE_TTL"))
	}
	if c.RateLimitLoginEnabled && (c.RateLimitLoginRPS <= 0 || c.RateLimitLoginBurst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_LOGIN_RPS and RATE_LIMIT_LOGIN_BURST must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Package main is the entrypoint for the JWT Pizza web server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/config"
	"github.com/jwtpizza/pizzaweb/internal/handler"
	"github.com/jwtpizza/pizzaweb/internal/metrics"
	"github.com/jwtpizza/pizzaweb/internal/middleware"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/repository"
	"github.com/jwtpizza/pizzaweb/internal/server"
	"github.com/jwtpizza/pizzaweb/internal/view"
	"github.com/jwtpizza/pizzaweb/internal/warmer"
)

func main() {
	ctx := context.Background()

	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	// The audit database is optional
	var auditLog repository.AuditLog = repository.NoopAuditLog{}
	var dbCheck handler.HealthChecker
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			os.Exit(1)
		}
		auditLog = repository.NewAuditRepository(repo)
		dbCheck = repo
		logger.Info("connected to database")
	} else {
		logger.Info("no DATABASE_URL set, management audit log disabled")
	}

	recorder := metrics.NewPrometheus()
	pizzaClient := pizza.NewClient(
		cfg.PizzaServiceURL,
		cfg.PizzaFactoryURL,
		pizza.NewHTTPClient(cfg.UpstreamTimeout),
		recorder,
	)

	renderer, err := view.NewRenderer()
	if err != nil {
		logger.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessionCfg := middleware.SessionConfig{
		Logger:     logger,
		Store:      cache.NewSessionStore(cacheClient, cfg.SessionTTL),
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.IsProduction(),
	}

	h := handler.New(handler.Config{
		Logger:   logger,
		Pizza:    pizzaClient,
		Cache:    cacheClient,
		Sessions: sessionCfg,
		Audit:    auditLog,
		Metrics:  recorder,
		Renderer: renderer,
		MenuTTL:  cfg.MenuCacheTTL,
	})

	r := handler.NewRouter(handler.RouterConfig{
		Logger:  logger,
		Handler: h,
		Health:  handler.NewHealthHandler(dbCheck, cacheClient, pizzaClient),
		Metrics: recorder.Handler(),
		Session: sessionCfg,
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:  logger,
			Cache:   cacheClient,
			Metrics: recorder,
			Enabled: cfg.RateLimitLoginEnabled,
			RPS:     cfg.RateLimitLoginRPS,
			Burst:   cfg.RateLimitLoginBurst,
		},
		CSRFKey: []byte(cfg.CSRFKey),
	})

	srv := server.New(r, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.AppPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	if repo != nil {
		srv.OnShutdown("postgres", func(context.Context) error {
			repo.Close()
			return nil
		})
	}
	if cfg.MenuWarmInterval > 0 {
		menuWarmer := warmer.NewMenuWarmer(pizzaClient, cacheClient, logger, cfg.MenuWarmInterval, cfg.MenuCacheTTL)
		srv.Go("menu-warmer", menuWarmer.Run)
		srv.OnShutdown("menu-warmer", menuWarmer.Shutdown)
	}

	if !cfg.CSRFEnabled() {
		logger.Warn("CSRF_KEY not set, form posts are not CSRF protected")
	}
	logger.Info("starting server",
		"port", cfg.AppPort,
		"pizza_service", redactURL(cfg.PizzaServiceURL),
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

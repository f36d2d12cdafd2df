package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/metrics"
)

// RateLimitConfig holds configuration for the login rate limiter.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Cache   *cache.Cache
	Metrics metrics.Recorder
	Enabled bool
	RPS     int // Attempts per second
	Burst   int
	// ErrorPage renders the 429 response.
	ErrorPage ErrorPageFunc
}

// RateLimitLogin limits login and registration attempts per client IP.
// Only state-changing requests count; showing the form is free.
func RateLimitLogin(cfg RateLimitConfig) func(http.Handler) http.Handler {
	errorPage := cfg.ErrorPage
	if errorPage == nil {
		errorPage = PlainErrorPage
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			result := cfg.Cache.CheckLoginRateLimit(r.Context(), ip, cfg.RPS, cfg.Burst)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "login"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncLogin(metrics.LoginRateLimited)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				errorPage(w, r, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr. chi's RealIP middleware
// has already replaced it with the forwarded client address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

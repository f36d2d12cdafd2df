package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/model"
)

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger     *slog.Logger
	Store      *cache.SessionStore
	CookieName string
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Session loads the browser session named by the session cookie, creating
// one when the cookie is missing or stale. Every visit restarts the TTL of
// the stored session and of the cookie. If Redis is unavailable the
// request continues with an anonymous session that is not persisted, so
// role-gated pages fall back to their unauthorized variant.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *model.Session
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				sess, err = cfg.Store.Get(ctx, c.Value)
				if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
					cfg.Logger.Error("session lookup failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(ctx)),
					)
				}
				if sess != nil {
					if err := cfg.Store.Touch(ctx, sess.ID); err != nil {
						cfg.Logger.Warn("session refresh failed",
							slog.String("error", err.Error()),
							slog.String("request_id", GetRequestID(ctx)),
						)
					} else {
						SetSessionCookie(w, cfg, sess.ID)
					}
				}
			}

			if sess == nil {
				created, err := cfg.Store.Create(ctx)
				if err != nil {
					cfg.Logger.Error("session create failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(ctx)),
					)
					created = &model.Session{CreatedAt: time.Now().UTC()}
				} else {
					SetSessionCookie(w, cfg, created.ID)
				}
				sess = created
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(ctx, sess)))
		})
	}
}

// SetSessionCookie writes the session cookie. Used on creation, on every
// refresh and when a login rotates the session ID.
func SetSessionCookie(w http.ResponseWriter, cfg SessionConfig, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.Store.TTL().Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Package auth carries the browser session and its user through request contexts.
package auth

import (
	"context"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey is the context key for storing the Session.
	sessionContextKey contextKey = "session"
)

// ContextWithSession adds the session to the context.
func ContextWithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext retrieves the session from the context.
// Returns nil if not present.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// MustSessionFromContext retrieves the session from the context.
// Panics if not present (use only when the session middleware has run).
func MustSessionFromContext(ctx context.Context) *model.Session {
	sess := SessionFromContext(ctx)
	if sess == nil {
		panic("session not found - ensure session middleware is applied")
	}
	return sess
}

// UserFromContext returns the logged-in user, or nil for anonymous visitors
// and malformed sessions.
func UserFromContext(ctx context.Context) *model.User {
	return SessionFromContext(ctx).CurrentUser()
}

// TokenFromContext returns the pizza service token of the session.
// Returns empty string if not authenticated.
func TokenFromContext(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if !sess.IsAuthenticated() {
		return ""
	}
	return sess.Token
}

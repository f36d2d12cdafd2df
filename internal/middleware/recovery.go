package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrorPageFunc writes an error page for the given status code.
type ErrorPageFunc func(w http.ResponseWriter, r *http.Request, status int)

// PlainErrorPage writes the status text as plain text.
func PlainErrorPage(w http.ResponseWriter, _ *http.Request, status int) {
	http.Error(w, http.StatusText(status), status)
}

// Recoverer is a middleware that recovers from panics.
// It logs the panic with its stack and writes a 500 page.
func Recoverer(logger *slog.Logger, errorPage ErrorPageFunc) func(http.Handler) http.Handler {
	if errorPage == nil {
		errorPage = PlainErrorPage
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				errorPage(w, r, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

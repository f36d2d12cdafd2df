package middleware

import (
	"net/http"
	"strings"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/model"
)

// RequireRole serves denied instead of the route unless the session user
// holds the role. Must be applied after Session.
func RequireRole(role model.Role, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.UserFromContext(r.Context()).HasRole(role) {
				denied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin redirects anonymous visitors to the login page of the
// current section, e.g. /diner-dashboard to /diner-dashboard/login.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, LoginPath(r.URL.Path), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginPath returns the section scoped login path for a request path.
func LoginPath(path string) string {
	section, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if section == "" || section == "login" {
		return "/login"
	}
	return "/" + section + "/login"
}

package middleware

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFFieldName is the form field carrying the CSRF token.
const CSRFFieldName = "csrf_token"

// CSRF protects form posts with gorilla/csrf. An empty key disables the
// protection, which is only allowed outside production.
func CSRF(key []byte, secure bool, failure http.Handler) func(http.Handler) http.Handler {
	if len(key) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(CSRFFieldName),
	}
	if failure != nil {
		opts = append(opts, csrf.ErrorHandler(failure))
	}
	return csrf.Protect(key, opts...)
}

// CSRFField returns the hidden input for templates. It is empty when CSRF
// protection is disabled.
func CSRFField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}

// CSRFFailureReason returns why gorilla/csrf rejected the request.
func CSRFFailureReason(r *http.Request) error {
	return csrf.FailureReason(r)
}

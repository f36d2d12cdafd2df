package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/metrics"
	"github.com/jwtpizza/pizzaweb/internal/middleware"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

// afterLoginPath returns where a login form sends the user: the section
// it was opened from, e.g. /franchise-dashboard/login to /franchise-dashboard.
func afterLoginPath(loginPath string) string {
	section := strings.TrimSuffix(loginPath, "/login")
	if section == "" || section == loginPath {
		return "/"
	}
	return section
}

// LoginForm renders the login page. The same form serves /login and the
// section scoped login paths.
// GET /login, GET /{section}/login
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		redirect(w, r, afterLoginPath(r.URL.Path))
		return
	}
	h.render(w, r, http.StatusOK, "login", h.page(r, view.TitleLogin, &view.Login{Action: r.URL.Path}))
}

// Login authenticates against the pizza service and starts a new session.
// POST /login, POST /{section}/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := &view.Login{Action: r.URL.Path, Email: r.PostFormValue("email")}
	password := r.PostFormValue("password")

	email, err := ValidateEmail(form.Email)
	if err == nil {
		err = ValidatePassword(password)
	}
	if err != nil {
		form.Error = err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "login", h.page(r, view.TitleLogin, form))
		return
	}

	resp, err := h.pizza.Login(r.Context(), pizza.LoginInput{Email: email, Password: password})
	if err != nil {
		h.metrics.IncLogin(metrics.LoginFailed)
		h.logUpstream(r, "login", err)
		form.Error = pizza.Message(err, "Unable to login right now")
		h.render(w, r, upstreamStatus(err), "login", h.page(r, view.TitleLogin, form))
		return
	}

	if err := h.startSession(w, r, resp); err != nil {
		h.logError(r, "start session failed", err)
		form.Error = "Unable to login right now"
		h.render(w, r, http.StatusServiceUnavailable, "login", h.page(r, view.TitleLogin, form))
		return
	}

	h.metrics.IncLogin(metrics.LoginSuccess)
	h.logger.Info("user logged in",
		slog.Int("user_id", resp.User.ID),
		slog.String("role", string(resp.User.PrimaryRole())),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	redirect(w, r, afterLoginPath(r.URL.Path))
}

// RegisterForm renders the registration page.
// GET /register
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", h.page(r, view.TitleRegister, &view.Register{}))
}

// Register creates a diner account and logs it in.
// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form := &view.Register{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	}
	password := r.PostFormValue("password")

	name, err := ValidatePersonName(form.Name)
	var email string
	if err == nil {
		email, err = ValidateEmail(form.Email)
	}
	if err == nil {
		err = ValidatePassword(password)
	}
	if err != nil {
		form.Error = err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "register", h.page(r, view.TitleRegister, form))
		return
	}

	resp, err := h.pizza.Register(r.Context(), pizza.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		h.logUpstream(r, "register", err)
		form.Error = pizza.Message(err, "Unable to register right now")
		h.render(w, r, upstreamStatus(err), "register", h.page(r, view.TitleRegister, form))
		return
	}

	if err := h.startSession(w, r, resp); err != nil {
		h.logError(r, "start session failed", err)
		form.Error = "Unable to register right now"
		h.render(w, r, http.StatusServiceUnavailable, "register", h.page(r, view.TitleRegister, form))
		return
	}
	redirect(w, r, "/")
}

// startSession replaces the anonymous session with a fresh authenticated
// one. The cart survives the switch so a diner can log in at checkout.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, resp *pizza.AuthResponse) error {
	ctx := r.Context()
	store := h.sessionCfg.Store

	next, err := store.Create(ctx)
	if err != nil {
		return err
	}
	next.Token = resp.Token
	next.User = resp.User
	if prev := auth.SessionFromContext(ctx); prev != nil {
		next.Cart = prev.Cart
		if prev.ID != "" {
			if err := store.Delete(ctx, prev.ID); err != nil {
				h.logError(r, "delete previous session failed", err)
			}
		}
	}
	if err := store.Save(ctx, next); err != nil {
		return err
	}

	middleware.SetSessionCookie(w, h.sessionCfg, next.ID)
	return nil
}

// Logout ends the session here and at the pizza service.
// POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := auth.SessionFromContext(ctx)

	if token := auth.TokenFromContext(ctx); token != "" {
		// The local session ends even when the service is unreachable.
		if err := h.pizza.Logout(ctx, token); err != nil && !pizza.IsUnauthorized(err) {
			h.logUpstream(r, "logout", err)
		}
	}
	h.endSession(w, r, sess)
	redirect(w, r, "/")
}

// endSession deletes the session and expires its cookie.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	if sess != nil && sess.ID != "" {
		if err := h.sessionCfg.Store.Delete(r.Context(), sess.ID); err != nil {
			h.logError(r, "delete session failed", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.sessionCfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// endExpiredSession drops a session whose token the pizza service no
// longer accepts and sends the user to the section's login page. It
// reports whether it handled the response.
func (h *Handler) endExpiredSession(w http.ResponseWriter, r *http.Request, err error) bool {
	if !pizza.IsUnauthorized(err) || currentUser(r) == nil {
		return false
	}
	h.logger.Info("session token rejected by pizza service",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	h.endSession(w, r, auth.SessionFromContext(r.Context()))
	redirect(w, r, middleware.LoginPath(r.URL.Path))
	return true
}

// currentUser is a shorthand used by pages that only render for a
// logged-in user.
func currentUser(r *http.Request) *model.User {
	return auth.UserFromContext(r.Context())
}

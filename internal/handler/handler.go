// Package handler provides the HTTP handlers of the JWT Pizza web front end.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/metrics"
	"github.com/jwtpizza/pizzaweb/internal/middleware"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/repository"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

// DefaultMenuCacheTTL is used when Config.MenuTTL is zero.
const DefaultMenuCacheTTL = time.Minute

// errNoSession is returned when the request runs on an anonymous fallback
// session that cannot be persisted.
var errNoSession = errors.New("session not persisted")

// PizzaAPI is the subset of the pizza service used by the handlers.
type PizzaAPI interface {
	Register(ctx context.Context, input pizza.RegisterInput) (*pizza.AuthResponse, error)
	Login(ctx context.Context, input pizza.LoginInput) (*pizza.AuthResponse, error)
	UpdateUser(ctx context.Context, token string, userID int, input pizza.UpdateUserInput) (*model.User, error)
	Logout(ctx context.Context, token string) error

	GetMenu(ctx context.Context) ([]model.MenuItem, error)
	AddMenuItem(ctx context.Context, token string, item model.MenuItem) ([]model.MenuItem, error)
	GetOrders(ctx context.Context, token string, page int) (*model.OrderHistory, error)
	CreateOrder(ctx context.Context, token string, order model.Order) (*model.OrderReceipt, error)
	VerifyOrder(ctx context.Context, token, jwt string) (*model.Verification, error)

	ListFranchises(ctx context.Context, token string) ([]model.Franchise, error)
	GetUserFranchises(ctx context.Context, token string, userID int) ([]model.Franchise, error)
	CreateFranchise(ctx context.Context, token, name, adminEmail string) (*model.Franchise, error)
	DeleteFranchise(ctx context.Context, token string, franchiseID int) error
	CreateStore(ctx context.Context, token string, franchiseID int, name string) (*model.Store, error)
	DeleteStore(ctx context.Context, token string, franchiseID, storeID int) error

	GetDocs(ctx context.Context) (*model.APIDocs, error)
}

// Config wires the handler dependencies.
type Config struct {
	Logger   *slog.Logger
	Pizza    PizzaAPI
	Cache    *cache.Cache
	Sessions middleware.SessionConfig
	Audit    repository.AuditLog
	Metrics  metrics.Recorder
	Renderer *view.Renderer
	MenuTTL  time.Duration
}

// Handler serves the pages of the web front end.
type Handler struct {
	logger     *slog.Logger
	pizza      PizzaAPI
	cache      *cache.Cache
	nav        *cache.NavState
	sessionCfg middleware.SessionConfig
	audit      repository.AuditLog
	metrics    metrics.Recorder
	renderer   *view.Renderer
	menuTTL    time.Duration
}

// New creates a new Handler instance.
func New(cfg Config) *Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Audit == nil {
		cfg.Audit = repository.NoopAuditLog{}
	}
	if cfg.MenuTTL <= 0 {
		cfg.MenuTTL = DefaultMenuCacheTTL
	}
	return &Handler{
		logger:     cfg.Logger,
		pizza:      cfg.Pizza,
		cache:      cfg.Cache,
		nav:        cache.NewNavState(cfg.Cache),
		sessionCfg: cfg.Sessions,
		audit:      cfg.Audit,
		metrics:    cfg.Metrics,
		renderer:   cfg.Renderer,
		menuTTL:    cfg.MenuTTL,
	}
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.ErrorPage(w, r, http.StatusNotFound)
}

// MethodNotAllowed renders the 405 page.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.ErrorPage(w, r, http.StatusMethodNotAllowed)
}

// ErrorPage renders an error page for status. It is handed to the
// middlewares as their middleware.ErrorPageFunc.
func (h *Handler) ErrorPage(w http.ResponseWriter, r *http.Request, status int) {
	name, title := "error", view.TitleError
	if status == http.StatusNotFound {
		name, title = "not_found", view.TitleNotFound
	}
	page := view.Page{
		Title:     title,
		User:      auth.UserFromContext(r.Context()),
		CSRFField: middleware.CSRFField(r),
		Content:   &view.ErrorPage{Status: status, Message: http.StatusText(status)},
	}
	h.render(w, r, status, name, page)
}

// CSRFFailure is served by gorilla/csrf when a form post lacks a valid token.
func (h *Handler) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("csrf check failed",
		slog.String("reason", errString(middleware.CSRFFailureReason(r))),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	h.ErrorPage(w, r, http.StatusForbidden)
}

// page assembles the data every template receives and consumes the
// pending notice of the current path.
func (h *Handler) page(r *http.Request, title string, content any) view.Page {
	return view.Page{
		Title:     title,
		User:      auth.UserFromContext(r.Context()),
		CSRFField: middleware.CSRFField(r),
		Notice:    h.takeNotice(r),
		Content:   content,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, page view.Page) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, page); err != nil {
		h.logger.Error("render failed",
			slog.String("page", name),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		middleware.PlainErrorPage(w, r, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func noticeKey(path string) string {
	return "notice:" + path
}

// notify leaves a one-shot notice for the next render of path.
func (h *Handler) notify(r *http.Request, path, msg string) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		return
	}
	if err := h.nav.Put(r.Context(), sess.ID, noticeKey(path), msg); err != nil {
		h.logError(r, "store notice failed", err)
	}
}

func (h *Handler) takeNotice(r *http.Request) string {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		return ""
	}
	var msg string
	err := h.nav.Take(r.Context(), sess.ID, noticeKey(r.URL.Path), &msg)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		h.logError(r, "read notice failed", err)
	}
	return msg
}

// putNavState hands v to the next GET of path in this session.
func (h *Handler) putNavState(r *http.Request, path string, v any) error {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		return errNoSession
	}
	return h.nav.Put(r.Context(), sess.ID, path, v)
}

// takeNavState consumes the state left for the current path. It reports
// false when there is none.
func (h *Handler) takeNavState(r *http.Request, v any) bool {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		return false
	}
	err := h.nav.Take(r.Context(), sess.ID, r.URL.Path, v)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logError(r, "read navigation state failed", err)
		}
		return false
	}
	return true
}

func (h *Handler) saveSession(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.ID == "" {
		return errNoSession
	}
	return h.sessionCfg.Store.Save(ctx, sess)
}

// recordAudit writes a management action to the audit log. Failures are
// logged and never fail the request.
func (h *Handler) recordAudit(r *http.Request, entry model.AuditEntry, actionErr error) {
	entry.Outcome = model.AuditOutcomeSuccess
	if actionErr != nil {
		entry.Outcome = model.AuditOutcomeFailed
		entry.Error = actionErr.Error()
	}
	if user := auth.UserFromContext(r.Context()); user != nil {
		entry.UserID = user.ID
	}
	entry.RequestID = middleware.GetRequestID(r.Context())

	if err := h.audit.Record(r.Context(), &entry); err != nil {
		h.logError(r, "audit record failed", err)
	}
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
}

// logUpstream logs a failed pizza service call at a level matching the
// failure: rejected requests are warnings, outages are errors.
func (h *Handler) logUpstream(r *http.Request, op string, err error) {
	level := slog.LevelError
	if status := upstreamStatus(err); status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, "pizza service call failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
}

// upstreamStatus maps a pizza service failure to the status of the page
// that reports it.
func upstreamStatus(err error) int {
	var apiErr *pizza.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// fetch runs one mount of a loader bound to the request: the fetch starts
// once, and the loader is unmounted when the page has what it needs.
func fetch[T any](ctx context.Context, fn func(context.Context) (T, error)) view.Remote[T] {
	l := view.NewLoader[T]()
	l.Mount(ctx, fn)
	defer l.Unmount()
	return l.Wait(ctx)
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.PostFormValue(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

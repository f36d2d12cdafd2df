package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jwtpizza/pizzaweb/internal/middleware"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

// loginSections are the sections with their own login page, so that a
// login started there returns to it.
var loginSections = []string{"franchise-dashboard", "diner-dashboard", "payment", "delivery", "admin-dashboard"}

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger    *slog.Logger
	Handler   *Handler
	Health    *HealthHandler
	Metrics   http.Handler // nil disables /metrics
	Session   middleware.SessionConfig
	Security  middleware.SecurityConfig
	RateLimit middleware.RateLimitConfig
	CSRFKey   []byte
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := cfg.Handler
	logger := cfg.Logger

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, h.ErrorPage))
	r.Use(middleware.Security(cfg.Security))

	// Probes and assets carry no session
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", view.StaticHandler()))

	if cfg.RateLimit.ErrorPage == nil {
		cfg.RateLimit.ErrorPage = h.ErrorPage
	}
	loginLimit := middleware.RateLimitLogin(cfg.RateLimit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize, h.ErrorPage))
		r.Use(middleware.CSRF(cfg.CSRFKey, cfg.Session.Secure, http.HandlerFunc(h.CSRFFailure)))
		r.Use(middleware.Session(cfg.Session))

		r.Get("/", h.Home)
		r.Get("/about", h.About)
		r.Get("/history", h.History)
		r.Get("/docs", h.Docs)

		// Authentication
		r.Get("/login", h.LoginForm)
		r.With(loginLimit).Post("/login", h.Login)
		for _, section := range loginSections {
			r.Get("/"+section+"/login", h.LoginForm)
			r.With(loginLimit).Post("/"+section+"/login", h.Login)
		}
		r.Get("/register", h.RegisterForm)
		r.With(loginLimit).Post("/register", h.Register)
		r.Post("/logout", h.Logout)

		// Ordering
		r.Get("/menu", h.Menu)
		r.Post("/menu", h.AddToCart)
		r.Post("/menu/checkout", h.Checkout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin)
			r.Get("/payment", h.Payment)
			r.Post("/payment", h.Pay)
			r.Get("/diner-dashboard", h.DinerDashboard)
			r.Post("/diner-dashboard", h.UpdateProfile)
			r.Get("/delivery", h.Delivery)
			r.Post("/delivery/verify", h.VerifyDelivery)
		})
		r.Post("/payment/cancel", h.CancelPayment)

		// Franchise dashboard: the variant is decided per request
		r.Get("/franchise-dashboard", h.FranchiseDashboard)
		r.Post("/franchise-dashboard", h.StartCreateStore)
		r.Get("/franchise-dashboard/create-store", h.CreateStoreForm)
		r.Post("/franchise-dashboard/create-store", h.CreateStore)
		r.Get("/franchise-dashboard/close-store/{franchiseID}/{storeID}", h.CloseStoreForm)
		r.Post("/franchise-dashboard/close-store/{franchiseID}/{storeID}", h.CloseStore)

		// Admin dashboard is invisible to everyone else
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin, http.HandlerFunc(h.NotFound)))
			r.Get("/admin-dashboard", h.AdminDashboard)
			r.Get("/admin-dashboard/create-franchise", h.CreateFranchiseForm)
			r.Post("/admin-dashboard/create-franchise", h.CreateFranchise)
			r.Get("/admin-dashboard/add-pizza", h.AddPizzaForm)
			r.Post("/admin-dashboard/add-pizza", h.AddPizza)
			r.Get("/admin-dashboard/close-franchise/{franchiseID}", h.CloseFranchiseForm)
			r.Post("/admin-dashboard/close-franchise/{franchiseID}", h.CloseFranchise)
			r.Get("/admin-dashboard/close-store/{franchiseID}/{storeID}", h.AdminCloseStoreForm)
			r.Post("/admin-dashboard/close-store/{franchiseID}/{storeID}", h.AdminCloseStore)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

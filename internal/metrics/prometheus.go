package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	viewsRendered    *prometheus.CounterVec
	menuCache        *prometheus.CounterVec
	management       *prometheus.CounterVec
	logins           *prometheus.CounterVec
	ordersPlaced     prometheus.Counter
}

// NewPrometheus creates a Recorder backed by a fresh registry that also
// carries the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzaweb_upstream_requests_total",
				Help: "Total number of pizza service requests",
			},
			[]string{"operation", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pizzaweb_upstream_request_duration_seconds",
				Help:    "Duration of pizza service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		viewsRendered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzaweb_views_rendered_total",
				Help: "Total number of rendered views by variant",
			},
			[]string{"view", "variant"},
		),
		menuCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzaweb_menu_cache_total",
				Help: "Menu cache lookups by result",
			},
			[]string{"result"},
		),
		management: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzaweb_management_actions_total",
				Help: "Franchise and store management actions",
			},
			[]string{"entity", "action"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzaweb_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"status"},
		),
		ordersPlaced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pizzaweb_orders_placed_total",
				Help: "Orders accepted by the pizza service",
			},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.upstreamRequests,
		p.upstreamDuration,
		p.viewsRendered,
		p.menuCache,
		p.management,
		p.logins,
		p.ordersPlaced,
	)

	return p
}

// Handler returns the HTTP handler serving the registry in exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveUpstreamRequest records a pizza service call.
func (p *PrometheusRecorder) ObserveUpstreamRequest(operation, status string, duration time.Duration) {
	p.upstreamRequests.WithLabelValues(operation, status).Inc()
	p.upstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncViewRendered counts a rendered view variant.
func (p *PrometheusRecorder) IncViewRendered(view, variant string) {
	p.viewsRendered.WithLabelValues(view, variant).Inc()
}

// IncMenuCacheHit increments cache hit counter.
func (p *PrometheusRecorder) IncMenuCacheHit() {
	p.menuCache.WithLabelValues("hit").Inc()
}

// IncMenuCacheMiss increments cache miss counter.
func (p *PrometheusRecorder) IncMenuCacheMiss() {
	p.menuCache.WithLabelValues("miss").Inc()
}

// IncStoreCreated increments store created counter.
func (p *PrometheusRecorder) IncStoreCreated() {
	p.management.WithLabelValues("store", "create").Inc()
}

// IncStoreDeleted increments store deleted counter.
func (p *PrometheusRecorder) IncStoreDeleted() {
	p.management.WithLabelValues("store", "delete").Inc()
}

// IncFranchiseCreated increments franchise created counter.
func (p *PrometheusRecorder) IncFranchiseCreated() {
	p.management.WithLabelValues("franchise", "create").Inc()
}

// IncFranchiseDeleted increments franchise deleted counter.
func (p *PrometheusRecorder) IncFranchiseDeleted() {
	p.management.WithLabelValues("franchise", "delete").Inc()
}

// IncLogin counts a login attempt by outcome.
func (p *PrometheusRecorder) IncLogin(status string) {
	p.logins.WithLabelValues(status).Inc()
}

// IncOrderPlaced increments the placed order counter.
func (p *PrometheusRecorder) IncOrderPlaced() {
	p.ordersPlaced.Inc()
}

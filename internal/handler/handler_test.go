package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/metrics"
	"github.com/jwtpizza/pizzaweb/internal/middleware"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/testutil"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

const testCookieName = "pizza_session"

// memAudit keeps audit entries in memory.
type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *memAudit) Record(_ context.Context, entry *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.entries = append([]model.AuditEntry{*entry}, m.entries...)
	return nil
}

func (m *memAudit) ListRecent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) < limit {
		limit = len(m.entries)
	}
	return append([]model.AuditEntry(nil), m.entries[:limit]...), nil
}

func (m *memAudit) all() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditEntry(nil), m.entries...)
}

type testEnv struct {
	svc     *testutil.PizzaService
	metrics *metrics.InMemoryRecorder
	audit   *memAudit
	server  *httptest.Server
}

type envOption func(*RouterConfig)

func withRateLimit(rps, burst int) envOption {
	return func(c *RouterConfig) {
		c.RateLimit.Enabled = true
		c.RateLimit.RPS = rps
		c.RateLimit.Burst = burst
	}
}

func withCSRFKey(key string) envOption {
	return func(c *RouterConfig) {
		c.CSRFKey = []byte(key)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	svc := testutil.NewPizzaService(t)
	client, _ := testutil.NewRedis(t)
	c := cache.NewFromClient(client)
	rec := metrics.NewInMemory()
	audit := &memAudit{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	sessionCfg := middleware.SessionConfig{
		Logger:     logger,
		Store:      cache.NewSessionStore(c, time.Hour),
		CookieName: testCookieName,
	}

	h := New(Config{
		Logger:   logger,
		Pizza:    pizza.NewClient(svc.URL(), "", nil, rec),
		Cache:    c,
		Sessions: sessionCfg,
		Audit:    audit,
		Metrics:  rec,
		Renderer: renderer,
	})

	cfg := RouterConfig{
		Logger:   logger,
		Handler:  h,
		Health:   NewHealthHandler(nil, c, nil),
		Session:  sessionCfg,
		Security: middleware.DefaultSecurityConfig(),
		RateLimit: middleware.RateLimitConfig{
			Logger:  logger,
			Cache:   c,
			Metrics: rec,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	server := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(server.Close)

	return &testEnv{svc: svc, metrics: rec, audit: audit, server: server}
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *testEnv) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: e.server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (b *browser) do(method, path string, form url.Values) response {
	b.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, b.base+path, body)
	require.NoError(b.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(data),
	}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, path, form)
}

// login signs in through the given login page and checks the redirect.
func (b *browser) login(loginPath, email, password string) {
	b.t.Helper()
	resp := b.post(loginPath, url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, resp.status, resp.body)
}

func (b *browser) sessionCookie() string {
	b.t.Helper()
	u, err := url.Parse(b.base)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == testCookieName {
			return c.Value
		}
	}
	return ""
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func csrfToken(t *testing.T, body string) string {
	t.Helper()
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "no csrf field in page")
	return m[1]
}

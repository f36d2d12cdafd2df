// Package pizza provides a client for the JWT Pizza REST service.
package pizza

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jwtpizza/pizzaweb/internal/metrics"
)

const (
	// DefaultTimeout is the total request timeout.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 8 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 4 << 10
)

// ErrMissingToken is returned when an authenticated call is made without a token.
var ErrMissingToken = errors.New("missing auth token")

// APIError is a non-2xx answer from the pizza service.
type APIError struct {
	Operation string
	Status    int
	Message   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pizza %s: status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("pizza %s: status %d: %s", e.Operation, e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the pizza service.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the pizza service.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// Message returns the user-facing message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// NewHTTPClient creates an HTTP client configured for pizza service calls.
// It has appropriate timeouts and does not follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Client talks to the pizza service and the pizza factory.
type Client struct {
	baseURL    string
	factoryURL string
	httpClient *http.Client
	metrics    metrics.Recorder
}

// NewClient creates a new Client. factoryURL may be empty, in which case
// order verification is sent to the pizza service itself.
func NewClient(baseURL, factoryURL string, httpClient *http.Client, recorder metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	factoryURL = strings.TrimSuffix(factoryURL, "/")
	if factoryURL == "" {
		factoryURL = baseURL
	}
	return &Client{
		baseURL:    baseURL,
		factoryURL: factoryURL,
		httpClient: httpClient,
		metrics:    recorder,
	}
}

// Ping checks that the pizza service answers. Used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	var docs struct {
		Version string `json:"version"`
	}
	return c.do(ctx, "ping", http.MethodGet, c.baseURL+"/api/docs", "", nil, &docs)
}

// do performs a JSON request, decodes a 2xx body into out and converts
// everything else into an *APIError.
func (c *Client) do(ctx context.Context, op, method, url, token string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailed
		}
		c.metrics.ObserveUpstreamRequest(op, status, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pizza %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("pizza %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pizza %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pizza %s: decode response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &APIError{Operation: op, Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}

func requireToken(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	return nil
}

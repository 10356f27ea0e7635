package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"signup/internal/domain/activity"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 10 * time.Second

// Endpoint names used for observation and logging.
const (
	EndpointAuthMe     = "auth.me"
	EndpointLogin      = "auth.login"
	EndpointLogout     = "auth.logout"
	EndpointActivities = "activities.list"
	EndpointSignup     = "activities.signup"
	EndpointUnregister = "activities.unregister"
)

var (
	// ErrTransport wraps failures to reach the backend or read its response.
	ErrTransport = errors.New("backend unreachable")
	// ErrDecode wraps response bodies that are not the expected JSON.
	ErrDecode = errors.New("malformed backend response")
)

// APIError is a non-2xx response carrying the backend's structured error body.
type APIError struct {
	Status int
	Detail string // empty when the body had no detail field
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// Result is the body of a successful mutating call.
type Result struct {
	Message string `json:"message"`
}

// Observer receives one call per backend round trip.
type Observer interface {
	ObserveBackendCall(endpoint string, status int, d time.Duration)
}

// Observers fans one call out to several observers.
type Observers []Observer

// ObserveBackendCall implements Observer.
func (obs Observers) ObserveBackendCall(endpoint string, status int, d time.Duration) {
	for _, o := range obs {
		if o != nil {
			o.ObserveBackendCall(endpoint, status, d)
		}
	}
}

// Client talks to the activity backend on behalf of one visitor.
// Each Client owns a cookie jar so backend sessions never leak between visitors.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithObserver records call timings.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the backend at baseURL.
// PRE: baseURL is an absolute http(s) URL
// POST: Returns a client with an empty cookie jar
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("backend url must be absolute http(s): %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me reports whether the backend session is authenticated.
// A body without an "authenticated" field reads as false.
func (c *Client) Me(ctx context.Context) (bool, error) {
	body, _, err := c.do(ctx, EndpointAuthMe, http.MethodGet, "/auth/me")
	if err != nil {
		return false, err
	}
	var payload struct {
		Authenticated any `json:"authenticated"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return truthy(payload.Authenticated), nil
}

// Login submits admin credentials as query parameters.
func (c *Client) Login(ctx context.Context, username, password string) (Result, error) {
	path := "/auth/login?username=" + EncodeURIComponent(username) + "&password=" + EncodeURIComponent(password)
	return c.mutate(ctx, EndpointLogin, http.MethodPost, path)
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) (Result, error) {
	return c.mutate(ctx, EndpointLogout, http.MethodPost, "/auth/logout")
}

// ListActivities fetches the full collection in server order.
func (c *Client) ListActivities(ctx context.Context) (activity.Collection, error) {
	body, status, err := c.do(ctx, EndpointActivities, http.MethodGet, "/activities")
	if err != nil {
		return activity.Collection{}, err
	}
	if status < 200 || status > 299 {
		return activity.Collection{}, apiError(status, body)
	}
	coll, err := activity.DecodeCollectionBytes(body)
	if err != nil {
		return activity.Collection{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return coll, nil
}

// Signup registers email for the named activity.
func (c *Client) Signup(ctx context.Context, activityName, email string) (Result, error) {
	return c.mutate(ctx, EndpointSignup, http.MethodPost, ActivityPath(activityName, "signup", email))
}

// Unregister removes email from the named activity.
func (c *Client) Unregister(ctx context.Context, activityName, email string) (Result, error) {
	return c.mutate(ctx, EndpointUnregister, http.MethodDelete, ActivityPath(activityName, "unregister", email))
}

// ActivityPath builds /activities/{name}/{action}?email={email} with both values escaped.
func ActivityPath(activityName, action, email string) string {
	return "/activities/" + EncodeURIComponent(activityName) + "/" + action + "?email=" + EncodeURIComponent(email)
}

func (c *Client) mutate(ctx context.Context, endpoint, method, path string) (Result, error) {
	body, status, err := c.do(ctx, endpoint, method, path)
	if err != nil {
		return Result{}, err
	}
	if status < 200 || status > 299 {
		return Result{}, apiError(status, body)
	}
	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return res, nil
}

// do performs one round trip and returns the raw body and status.
func (c *Client) do(ctx context.Context, endpoint, method, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		return nil, 0, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	slog.Debug("backend_call", "endpoint", endpoint, "method", method, "status", resp.StatusCode)
	return body, resp.StatusCode, nil
}

func (c *Client) observe(endpoint string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(endpoint, status, d)
	}
}

// apiError decodes an error body. A non-JSON body is a decode failure, not an APIError.
func apiError(status int, body []byte) error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: status %d: %v", ErrDecode, status, err)
	}
	return &APIError{Status: status, Detail: detailText(payload.Detail)}
}

// detailText renders a detail value: strings verbatim, other JSON as compact text.
func detailText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// truthy mirrors a loose boolean reading: only true, non-zero numbers and non-empty strings count.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

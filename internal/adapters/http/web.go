// Package web serves the activity signup page and turns form posts into page events.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"signup/internal/adapters/http/middleware"
	"signup/internal/adapters/http/perf"
	"signup/internal/domain/banner"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// RateLimitPerSecond is the default per-IP rate limit.
const RateLimitPerSecond = 20

// Options holds the server's dependencies and settings.
type Options struct {
	Visitors           *middleware.VisitorStore
	Collector          *perf.Collector
	Metrics            http.Handler // nil disables /metrics
	CSRFKey            []byte
	Secure             bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
	BannerDelay        time.Duration // how long the browser shows a banner; <= 0 selects banner.DefaultHideDelay
}

// Server is the page front end. All state lives in the visitor store.
type Server struct {
	opts    Options
	pages   *template.Template
	limiter *middleware.RateLimiter
}

// NewServer parses the templates and prepares the middleware.
// PRE: opts.Visitors is non-nil; opts.CSRFKey is 32 bytes
// POST: Returns a server ready to serve Handler()
func NewServer(opts Options) (*Server, error) {
	if opts.Visitors == nil {
		return nil, errors.New("visitor store is required")
	}
	if len(opts.CSRFKey) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(opts.CSRFKey))
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = RateLimitPerSecond
	}
	if opts.BannerDelay <= 0 {
		opts.BannerDelay = banner.DefaultHideDelay
	}

	pages, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		opts:    opts,
		pages:   pages,
		limiter: middleware.NewRateLimiter(opts.RateLimitPerSecond, time.Second),
	}, nil
}

// Handler wires the routes behind the middleware chain.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(s.opts.CSRFKey, middleware.CSRFOptions{
			Secure:         s.opts.Secure,
			TrustedOrigins: s.opts.TrustedOrigins,
		}),
		middleware.RateLimit(s.limiter),
		middleware.Timing(s.opts.Collector, s.opts.SlowRequestMs),
	)
}

// routes maps paths to handlers. Page routes get a visitor; the rest do not.
func (s *Server) routes() *http.ServeMux {
	page := middleware.Visitors(s.opts.Visitors, s.opts.Secure)

	// Method patterns let the mux answer 404 and 405 before a visitor is created.
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", page(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /view.json", page(http.HandlerFunc(s.handleViewJSON)))
	mux.Handle("POST /signup", page(http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /unregister", page(http.HandlerFunc(s.handleUnregister)))
	mux.Handle("POST /login", page(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /logout", page(http.HandlerFunc(s.handleLogout)))
	mux.Handle("POST /admin/toggle", page(http.HandlerFunc(s.handleAdminToggle)))

	mux.HandleFunc("GET /banner.css", s.handleBannerCSS)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/debug/perf", s.handlePerf)
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	mux.Handle("/static/", http.FileServer(http.FS(staticFS)))
	return mux
}

// RunMaintenance sweeps idle visitors and rate-limit buckets every interval until ctx ends.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.opts.Visitors.Sweep()
			s.limiter.Sweep(5 * time.Minute)
		}
	}
}

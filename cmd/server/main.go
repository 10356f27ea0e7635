package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"signup/internal/adapters/backend"
	web "signup/internal/adapters/http"
	"signup/internal/adapters/http/middleware"
	"signup/internal/adapters/http/perf"
	"signup/internal/adapters/metrics"
	"signup/internal/application/viewstate"
	"signup/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// maintenanceInterval is how often idle visitors and rate-limit buckets are swept.
const maintenanceInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	recorder := metrics.NewRecorder()

	// Each visitor gets its own backend client, so backend sessions never leak between visitors.
	newPage := func() (*viewstate.Controller, error) {
		client, err := backend.NewClient(cfg.BackendURL,
			backend.WithTimeout(cfg.BackendTimeout),
			backend.WithObserver(backend.Observers{collector, recorder}),
		)
		if err != nil {
			return nil, err
		}
		return viewstate.New(viewstate.Deps{
			Backend:     client,
			BannerDelay: cfg.BannerDelay,
			Recorder:    recorder,
		}), nil
	}

	visitors := middleware.NewVisitorStore(newPage, cfg.SessionTTL)
	visitors.OnChange(recorder.SetVisitors)

	server, err := web.NewServer(web.Options{
		Visitors:           visitors,
		Collector:          collector,
		Metrics:            recorder.Handler(),
		CSRFKey:            []byte(cfg.CSRFKey),
		Secure:             cfg.IsProduction(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.SlowRequestMs,
		BannerDelay:        cfg.BannerDelay,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go server.RunMaintenance(context.Background(), maintenanceInterval)

	log.Printf("Signup %s starting on %s (env=%s, backend=%s)", version, cfg.Addr, cfg.Env, cfg.BackendURL)
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"

	"signup/internal/adapters/devbackend"
	"signup/internal/adapters/http/middleware"
	"signup/internal/adapters/http/perf"
	"signup/internal/adapters/storage"
	activityStore "signup/internal/adapters/storage/activity"
	"signup/internal/config"
)

func main() {
	cfg, err := config.LoadDevBackend()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := storage.Open(cfg.DevBackendDB)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("Database initialized successfully!")

	collector := perf.NewCollector(perf.DefaultRingSize)
	store := activityStore.NewSQLiteStore(storage.NewTimedDB(db, collector, storage.DefaultSlowQueryMs))

	n, err := devbackend.Seed(context.Background(), store, devbackend.SeedActivities)
	if err != nil {
		log.Fatalf("failed to seed activities: %v", err)
	}
	if n > 0 {
		log.Printf("Seeded %d activities", n)
	}

	auth, err := devbackend.NewAuth(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to configure admin: %v", err)
	}

	router := devbackend.NewServer(store, auth, collector, cfg.IsProduction()).Router()
	handler := middleware.Chain(router, middleware.Timing(collector, cfg.SlowRequestMs))

	log.Printf("Dev backend starting on %s (db=%s, admin=%s)", cfg.DevBackendAddr, cfg.DevBackendDB, cfg.AdminUsername)
	if err := http.ListenAndServe(cfg.DevBackendAddr, handler); err != nil {
		log.Fatalf("Dev backend failed: %v", err)
	}
}

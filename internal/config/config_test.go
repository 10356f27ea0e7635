package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoad_Defaults tests that an empty environment yields the development defaults.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SIGNUP_CONFIG", "")
	t.Setenv("SIGNUP_BACKEND_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if cfg.BannerDelay != 5*time.Second {
		t.Errorf("BannerDelay = %v, want 5s", cfg.BannerDelay)
	}
}

// TestLoad_FileThenEnv tests the layering order: file overrides defaults, env overrides file.
func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signup.yaml")
	body := "addr: \":9090\"\nbackend_url: http://api.internal:8000\nbanner_delay: 3s\nrate_limit_per_second: 7\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SIGNUP_CONFIG", path)
	t.Setenv("SIGNUP_ADDR", ":7070")
	t.Setenv("SIGNUP_BACKEND_TIMEOUT", "2s")
	t.Setenv("SIGNUP_SLOW_REQUEST_MS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"env beats file", cfg.Addr, ":7070"},
		{"file beats default", cfg.BackendURL, "http://api.internal:8000"},
		{"file duration", cfg.BannerDelay, 3 * time.Second},
		{"file int", cfg.RateLimitPerSecond, 7},
		{"env duration", cfg.BackendTimeout, 2 * time.Second},
		{"bad env keeps default", cfg.SlowRequestMs, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

// TestLoad_MissingFile tests that a named but absent file is an error.
func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("SIGNUP_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

// TestValidate tests the startup checks.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"relative backend", func(c *Config) { c.BackendURL = "/api" }, ErrBackendURL},
		{"ftp backend", func(c *Config) { c.BackendURL = "ftp://x" }, ErrBackendURL},
		{"short csrf key", func(c *Config) { c.CSRFKey = "short" }, ErrCSRFKey},
		{"default csrf key in production", func(c *Config) { c.Env = EnvProduction }, ErrCSRFSecret},
		{"default csrf key with custom jwt in production", func(c *Config) { c.Env = EnvProduction; c.JWTSecret = "s3cret" }, ErrCSRFSecret},
		{"custom csrf key in production", func(c *Config) { c.Env = EnvProduction; c.CSRFKey = "prod-csrf-key-0123456789abcdefgh" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestValidateDevBackend tests that only the dev backend needs a jwt secret.
func TestValidateDevBackend(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"default jwt in production", func(c *Config) { c.Env = EnvProduction }, ErrJWTSecret},
		{"custom jwt in production", func(c *Config) { c.Env = EnvProduction; c.JWTSecret = "s3cret" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.ValidateDevBackend()
			if tt.want == nil && err != nil {
				t.Errorf("ValidateDevBackend() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("ValidateDevBackend() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestLoad_ProductionFrontEnd tests that the front end starts in production without a jwt secret
// but not with the default csrf key.
func TestLoad_ProductionFrontEnd(t *testing.T) {
	t.Setenv("SIGNUP_CONFIG", "")
	t.Setenv("SIGNUP_BACKEND_URL", "")
	t.Setenv("SIGNUP_ENV", EnvProduction)
	t.Setenv("SIGNUP_JWT_SECRET", "")

	t.Setenv("SIGNUP_CSRF_KEY", "")
	if _, err := Load(); !errors.Is(err, ErrCSRFSecret) {
		t.Errorf("Load() with default csrf key error = %v, want ErrCSRFSecret", err)
	}

	t.Setenv("SIGNUP_CSRF_KEY", "prod-csrf-key-0123456789abcdefgh")
	if _, err := Load(); err != nil {
		t.Errorf("Load() with custom csrf key error = %v", err)
	}
	if _, err := LoadDevBackend(); !errors.Is(err, ErrJWTSecret) {
		t.Errorf("LoadDevBackend() error = %v, want ErrJWTSecret", err)
	}
}

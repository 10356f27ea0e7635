// Package config centralises configuration for the signup front end and the dev backend.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// SIGNUP_CONFIG, then SIGNUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvProduction is the Env value that enables secure cookies and strict CSRF origins.
const EnvProduction = "production"

// Sentinel errors for Validate.
var (
	ErrBackendURL = errors.New("backend_url must be an absolute http(s) URL")
	ErrCSRFKey    = errors.New("csrf_key must be 32 bytes")
	ErrCSRFSecret = errors.New("csrf_key must be changed from the default in production")
	ErrJWTSecret  = errors.New("jwt_secret must be set in production")
)

// Config captures runtime configuration values.
type Config struct {
	Addr               string        `yaml:"addr"`
	BackendURL         string        `yaml:"backend_url"`
	Env                string        `yaml:"env"`
	CSRFKey            string        `yaml:"csrf_key"`
	BannerDelay        time.Duration `yaml:"banner_delay"`
	BackendTimeout     time.Duration `yaml:"backend_timeout"`
	RateLimitPerSecond int           `yaml:"rate_limit_per_second"`
	SlowRequestMs      int           `yaml:"slow_request_ms"`
	SessionTTL         time.Duration `yaml:"session_ttl"`

	// Dev backend only.
	DevBackendAddr string `yaml:"devbackend_addr"`
	DevBackendDB   string `yaml:"devbackend_db"`
	AdminUsername  string `yaml:"admin_username"`
	AdminPassword  string `yaml:"admin_password"`
	JWTSecret      string `yaml:"jwt_secret"`
}

// Defaults returns the local development configuration.
func Defaults() Config {
	return Config{
		Addr:               ":8080",
		BackendURL:         "http://localhost:8000",
		Env:                "development",
		CSRFKey:            "dev-csrf-key-change-me-32-bytes!",
		BannerDelay:        5 * time.Second,
		BackendTimeout:     10 * time.Second,
		RateLimitPerSecond: 20,
		SlowRequestMs:      200,
		SessionTTL:         24 * time.Hour,
		DevBackendAddr:     ":8000",
		DevBackendDB:       "devbackend.db",
		AdminUsername:      "admin",
		AdminPassword:      "admin",
		JWTSecret:          "dev-secret-change-me",
	}
}

// Load builds the front end's configuration from defaults, the optional file, and the environment.
// POST: Returns a Config that passes Validate, or the first error encountered
func Load() (Config, error) {
	cfg, err := layered()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDevBackend is Load for the dev backend, which checks its own keys instead.
// POST: Returns a Config that passes ValidateDevBackend, or the first error encountered
func LoadDevBackend() (Config, error) {
	cfg, err := layered()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateDevBackend(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func layered() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("SIGNUP_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("SIGNUP_ADDR", c.Addr)
	c.BackendURL = getEnv("SIGNUP_BACKEND_URL", c.BackendURL)
	c.Env = getEnv("SIGNUP_ENV", c.Env)
	c.CSRFKey = getEnv("SIGNUP_CSRF_KEY", c.CSRFKey)
	c.BannerDelay = getDurationEnv("SIGNUP_BANNER_DELAY", c.BannerDelay)
	c.BackendTimeout = getDurationEnv("SIGNUP_BACKEND_TIMEOUT", c.BackendTimeout)
	c.RateLimitPerSecond = getIntEnv("SIGNUP_RATE_LIMIT_PER_SECOND", c.RateLimitPerSecond)
	c.SlowRequestMs = getIntEnv("SIGNUP_SLOW_REQUEST_MS", c.SlowRequestMs)
	c.SessionTTL = getDurationEnv("SIGNUP_SESSION_TTL", c.SessionTTL)
	c.DevBackendAddr = getEnv("SIGNUP_DEVBACKEND_ADDR", c.DevBackendAddr)
	c.DevBackendDB = getEnv("SIGNUP_DEVBACKEND_DB", c.DevBackendDB)
	c.AdminUsername = getEnv("SIGNUP_ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnv("SIGNUP_ADMIN_PASSWORD", c.AdminPassword)
	c.JWTSecret = getEnv("SIGNUP_JWT_SECRET", c.JWTSecret)
}

// Validate checks values the front end cannot start without.
func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBackendURL, c.BackendURL)
	}
	if len(c.CSRFKey) != 32 {
		return fmt.Errorf("%w: got %d", ErrCSRFKey, len(c.CSRFKey))
	}
	if c.IsProduction() && c.CSRFKey == Defaults().CSRFKey {
		return ErrCSRFSecret
	}
	return nil
}

// ValidateDevBackend checks values the dev backend cannot start without.
func (c Config) ValidateDevBackend() error {
	if c.IsProduction() && c.JWTSecret == Defaults().JWTSecret {
		return ErrJWTSecret
	}
	return nil
}

// IsProduction reports whether Env is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries process-level settings read from the environment.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string
	// PostgresDSN is the connection string for the relational store.
	PostgresDSN string
	// TokenTTL is the bearer token validity window.
	TokenTTL time.Duration
	// RateLimitPerSecond and RateLimitBurst tune the per-IP token bucket.
	RateLimitPerSecond int
	RateLimitBurst     int
	// MaxBodyBytes caps inbound request bodies.
	MaxBodyBytes int64
}

const (
	defaultAddr         = ":8080"
	defaultTokenTTL     = 6 * time.Hour
	defaultRatePerSec   = 20
	defaultRateBurst    = 40
	defaultMaxBodyBytes = 1 << 20
)

// Load reads TRACKD_* environment variables. A .env file in the working
// directory is applied first when present; real environment values win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               envOr("TRACKD_ADDR", defaultAddr),
		PostgresDSN:        strings.TrimSpace(os.Getenv("TRACKD_PG_DSN")),
		TokenTTL:           defaultTokenTTL,
		RateLimitPerSecond: defaultRatePerSec,
		RateLimitBurst:     defaultRateBurst,
		MaxBodyBytes:       defaultMaxBodyBytes,
	}

	if raw := strings.TrimSpace(os.Getenv("TRACKD_TOKEN_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse TRACKD_TOKEN_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("TRACKD_TOKEN_TTL must be positive, got %s", ttl)
		}
		cfg.TokenTTL = ttl
	}
	if raw := strings.TrimSpace(os.Getenv("TRACKD_RATE_LIMIT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TRACKD_RATE_LIMIT: %q", raw)
		}
		cfg.RateLimitPerSecond = n
	}
	if raw := strings.TrimSpace(os.Getenv("TRACKD_RATE_BURST")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TRACKD_RATE_BURST: %q", raw)
		}
		cfg.RateLimitBurst = n
	}
	if raw := strings.TrimSpace(os.Getenv("TRACKD_MAX_BODY_BYTES")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TRACKD_MAX_BODY_BYTES: %q", raw)
		}
		cfg.MaxBodyBytes = n
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

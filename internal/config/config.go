// Package config loads process settings from the environment, optionally
// primed from a local .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/marketplace"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	HTTPAddr     string
	Environment  string
	LogLevel     string
	DatabaseURL  string
	RedisAddr    string
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	HashWorkers  int
	GSTPortalURL string
	GSTTimeout   time.Duration
	GSTCacheTTL  time.Duration
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string
	UpdateGate   string
	ToggleGate   string
}

// Load reads .env when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		Environment:  strings.ToLower(getenv("APP_ENV", EnvDevelopment)),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     getenvDuration("TOKEN_TTL", auth.DefaultTokenTTL),
		BcryptCost:   getenvInt("BCRYPT_COST", 10),
		HashWorkers:  getenvInt("HASH_WORKERS", 0),
		GSTPortalURL: getenv("GST_PORTAL_URL", ""),
		GSTTimeout:   getenvDuration("GST_TIMEOUT", 10*time.Second),
		GSTCacheTTL:  getenvDuration("GST_CACHE_TTL", 24*time.Hour),
		RateBurst:    getenvInt("RATE_BURST", 20),
		RatePerSec:   getenvInt("RATE_PER_SEC", 10),
		MaxBodyBytes: int64(getenvInt("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:  getenvList("CORS_ORIGINS"),
		UpdateGate:   getenv("PRODUCT_UPDATE_GATE", string(marketplace.GateUnverified)),
		ToggleGate:   getenv("PRODUCT_TOGGLE_GATE", string(marketplace.GateVerified)),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool { return c.Environment == EnvProduction }

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV: unknown environment %q", c.Environment))
	}
	if strings.TrimSpace(c.JWTSecret) == "" && c.Environment != EnvDevelopment && c.Environment != EnvTest {
		errs = append(errs, errors.New("JWT_SECRET: required outside development"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL: must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d outside 4..31", c.BcryptCost))
	}
	if c.HashWorkers < 0 {
		errs = append(errs, errors.New("HASH_WORKERS: must not be negative"))
	}
	if c.GSTTimeout <= 0 {
		errs = append(errs, errors.New("GST_TIMEOUT: must be positive"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("RATE_BURST and RATE_PER_SEC: must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES: must be positive"))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Policy returns the product gate table described by the config.
func (c Config) Policy() (marketplace.Policy, error) {
	policy := marketplace.DefaultPolicy()
	update, err := marketplace.ParseGate(c.UpdateGate, policy.Update)
	if err != nil {
		return policy, fmt.Errorf("PRODUCT_UPDATE_GATE: %w", err)
	}
	toggle, err := marketplace.ParseGate(c.ToggleGate, policy.Toggle)
	if err != nil {
		return policy, fmt.Errorf("PRODUCT_TOGGLE_GATE: %w", err)
	}
	policy.Update, policy.Toggle = update, toggle
	return policy, nil
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

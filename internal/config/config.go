// Package config reads service settings from the environment.
//
// A .env file in the working directory is merged first (missing file is fine),
// then every setting falls back to a local-development default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv        = "local"
	defaultAppPort       = "8080"
	defaultGatewayDriver = "memory"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultSessionTTL    = 24 * time.Hour
	defaultPollInterval  = 2 * time.Second
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
)

// Config holds every tunable of the PrePick service.
type Config struct {
	AppEnv  string
	AppPort string

	// GatewayDriver selects the document store: memory | postgres | firebase.
	GatewayDriver string
	DatabaseURL   string

	FirebaseDatabaseURL     string
	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	FirebasePollInterval    time.Duration

	// RedisAddr empty means sessions stay in process memory.
	RedisAddr     string
	RedisPassword string

	JWTSecret     string
	SessionTTL    time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

// Load merges .env into the process environment and builds a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:                  get("APP_ENV", defaultAppEnv),
		AppPort:                 get("APP_PORT", defaultAppPort),
		GatewayDriver:           strings.ToLower(get("GATEWAY_DRIVER", defaultGatewayDriver)),
		DatabaseURL:             get("DATABASE_URL", ""),
		FirebaseDatabaseURL:     get("FIREBASE_DATABASE_URL", ""),
		FirebaseProjectID:       get("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: get("FIREBASE_CREDENTIALS_JSON", ""),
		RedisAddr:               get("REDIS_ADDR", ""),
		RedisPassword:           get("REDIS_PASSWORD", ""),
		JWTSecret:               get("JWT_SECRET", defaultJWTSecret),
	}

	var err error
	if cfg.FirebasePollInterval, err = duration("FIREBASE_POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.AttemptWindow, err = duration("AUTH_ATTEMPT_WINDOW", defaultAttemptWindow); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = integer("AUTH_MAX_ATTEMPTS", defaultMaxAttempts); err != nil {
		return nil, err
	}

	switch cfg.GatewayDriver {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres gateway")
		}
	case "firebase":
		if cfg.FirebaseDatabaseURL == "" {
			return nil, fmt.Errorf("FIREBASE_DATABASE_URL is required for the firebase gateway")
		}
	default:
		return nil, fmt.Errorf("unknown GATEWAY_DRIVER %q", cfg.GatewayDriver)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := get(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func integer(key string, fallback int) (int, error) {
	raw := get(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

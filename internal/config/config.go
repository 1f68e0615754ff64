// Package config holds process configuration read from the environment and the
// fixed constants of the escalation ladder.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by Load.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the runtime configuration of the HTTP server and admin CLI.
type Config struct {
	HTTPAddr      string
	Storage       string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	TokenTTL      time.Duration
	LocalesDir    string
}

// Load reads an optional .env file and then the process environment.
// Missing values fall back to development defaults, except JWT_SECRET which is
// required outside of memory mode.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARN: no .env file loaded, using process environment")
	}

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		Storage:       getEnv("STORAGE", StoragePostgres),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=grievancedb port=5432 sslmode=disable"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      72 * time.Hour,
		LocalesDir:    os.Getenv("LOCALES_DIR"),
	}

	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", raw, err)
		}
		cfg.TokenTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for %s storage", StoragePostgres)
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
	case StorageMemory:
		if c.JWTSecret == "" {
			c.JWTSecret = "dev-only-secret"
		}
	default:
		return fmt.Errorf("unknown STORAGE %q (want %s or %s)", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

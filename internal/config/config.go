package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	HTTPAddr        string
	APIBaseURL      string
	FetchTimeout    time.Duration
	RevalidateTTL   time.Duration
	DefaultPageSize int
	ViewSessionTTL  time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LogLevel        string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Upstream user API, overridable for self-hosted mirrors.
	cfg.APIBaseURL = strings.TrimSuffix(getEnv("API_BASE_URL", "https://jsonplaceholder.typicode.com"), "/")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL must not be empty")
	}

	cfg.FetchTimeout, err = getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	cfg.RevalidateTTL, err = getEnvAsDuration("REVALIDATE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid REVALIDATE_TTL: %w", err)
	}

	cfg.DefaultPageSize, err = getEnvAsInt("DEFAULT_PAGE_SIZE", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %w", err)
	}
	if cfg.DefaultPageSize < 1 {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: must be positive, got %d", cfg.DefaultPageSize)
	}

	cfg.ViewSessionTTL, err = getEnvAsDuration("VIEW_SESSION_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_SESSION_TTL: %w", err)
	}

	// Redis is optional; an empty address keeps the revalidation cache in memory.
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses a time.Duration (e.g. "10s", "5m").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("env %s value %q must be positive", key, valStr)
	}

	return val, nil
}

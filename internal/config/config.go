// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for the database (always absolute)
	APIKey          string // Trafikverket authentication key (required)
	APIURL          string // Trafikverket synchronous endpoint
	Port            int
	LogLevel        string
	DevMode         bool
	LookbackWindow  time.Duration // Subscription filter lower bound ("now - lookback")
	RetentionHours  int           // Rows older than this are deleted
	CleanupInterval time.Duration // How often the retention job runs
}

const (
	defaultAPIURL          = "https://api.trafikinfo.trafikverket.se/v2/data.json"
	defaultLookbackWindow  = 8 * time.Minute
	defaultRetentionHours  = 20
	defaultCleanupInterval = time.Hour
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRAINWATCH_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		APIKey:          getEnv("TRAFIKVERKET_API_KEY", ""),
		APIURL:          getEnv("TRAFIKVERKET_API_URL", defaultAPIURL),
		Port:            getEnvAsInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LookbackWindow:  getEnvAsDuration("LOOKBACK_WINDOW", defaultLookbackWindow),
		RetentionHours:  getEnvAsInt("RETENTION_HOURS", defaultRetentionHours),
		CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", defaultCleanupInterval),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// The API key is required for the subscription handshake; without it every
	// connection attempt would fail, so refuse to start at all.
	if c.APIKey == "" {
		return fmt.Errorf("TRAFIKVERKET_API_KEY environment variable is not set")
	}

	if c.RetentionHours <= 0 {
		return fmt.Errorf("RETENTION_HOURS must be positive, got %d", c.RetentionHours)
	}

	return nil
}

// DatabasePath returns the path of the SQLite database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "trainwatch.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

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
	DataDir  string // Base directory for the database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Telegram bot used for notifications and account linking.
	// Both optional: without a token notifications fall back to the log.
	TelegramBotToken    string
	TelegramBotUsername string

	// ValuationSweepSchedule is the cron spec (with seconds) driving the
	// portfolio change-detection sweep.
	ValuationSweepSchedule string

	// ValuationCacheTTL bounds the lifetime of cached valuation baselines.
	ValuationCacheTTL time.Duration

	// LinkCodeTTL bounds the lifetime of one-time Telegram linking codes.
	LinkCodeTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("FOLIO_PORT", 8080),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		TelegramBotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramBotUsername:    getEnv("TELEGRAM_BOT_USERNAME", ""),
		ValuationSweepSchedule: getEnv("VALUATION_SWEEP_SCHEDULE", "0 0 * * * *"),
		ValuationCacheTTL:      getEnvAsDuration("VALUATION_CACHE_TTL", time.Hour),
		LinkCodeTTL:            getEnvAsDuration("LINK_CODE_TTL", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ValuationCacheTTL <= 0 {
		return fmt.Errorf("valuation cache TTL must be positive")
	}
	if c.LinkCodeTTL <= 0 {
		return fmt.Errorf("link code TTL must be positive")
	}
	return nil
}

// DatabasePath returns the path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

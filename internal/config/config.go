// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for all databases (always absolute)
	LogLevel          string
	RebalanceSchedule string // Five-field cron expression, empty disables scheduled runs
	SeedFile          string // Optional YAML seed applied when the universe is empty
	Port              int
	DevMode           bool
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("SECTORPILOT_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("GO_PORT", 8001),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RebalanceSchedule: getEnv("REBALANCE_SCHEDULE", ""),
		SeedFile:          getEnv("SEED_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configured values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}

	if c.RebalanceSchedule != "" {
		if _, err := cron.ParseStandard(c.RebalanceSchedule); err != nil {
			return fmt.Errorf("invalid REBALANCE_SCHEDULE %q: %w", c.RebalanceSchedule, err)
		}
	}

	if c.SeedFile != "" && !filepath.IsAbs(c.SeedFile) {
		abs, err := filepath.Abs(c.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to resolve seed file path: %w", err)
		}
		c.SeedFile = abs
	}

	return nil
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

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Logging
	LogLevel string

	// Persistence
	SnapshotDBPath string

	// Visualization settings file watched at runtime
	SettingsPath string

	// Default device performance class when no settings file exists
	DeviceClass string

	// LOD mode at startup
	LODMode string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SnapshotDBPath: getEnv("SNAPSHOT_DB_PATH", "neurotwin.db"),
		SettingsPath:   getEnv("SETTINGS_PATH", ""),
		DeviceClass:    getEnv("DEVICE_CLASS", "medium"),
		LODMode:        getEnv("LOD_MODE", "auto"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.DeviceClass {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("DEVICE_CLASS must be low, medium or high, got %q", c.DeviceClass)
	}

	switch c.LODMode {
	case "manual", "auto", "hybrid":
	default:
		return fmt.Errorf("LOD_MODE must be manual, auto or hybrid, got %q", c.LODMode)
	}

	if c.Environment == "production" && c.SnapshotDBPath == "" {
		return fmt.Errorf("SNAPSHOT_DB_PATH is required in production")
	}

	return nil
}

// IsDevelopment checks for a development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

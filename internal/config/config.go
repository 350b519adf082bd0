// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// Analytics (external signal source). Empty property ID disables
	// signal-augmented training; runs degrade to base-only.
	AnalyticsPropertyID      string
	AnalyticsCredentialsFile string

	// Training
	LookbackDays    int    // Default signal lookback window for a run
	RetrainSchedule string // Cron spec for scheduled retraining; empty disables

	Archive *ArchiveConfig
}

// ArchiveConfig holds S3-compatible archive configuration for result backups
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint for S3-compatible stores (R2, MinIO)
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FORECASTER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                  absDataDir,
		Port:                     getEnvAsInt("PORT", 8001),
		DevMode:                  getEnvAsBool("DEV_MODE", false),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		AnalyticsPropertyID:      getEnv("GA4_PROPERTY_ID", ""),
		AnalyticsCredentialsFile: getEnv("GA4_CREDENTIALS_FILE", "ga4-credentials.json"),
		LookbackDays:             getEnvAsInt("SIGNAL_LOOKBACK_DAYS", 90),
		RetrainSchedule:          getEnv("RETRAIN_SCHEDULE", ""),
		Archive:                  loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("SIGNAL_LOOKBACK_DAYS must be positive, got %d", c.LookbackDays)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("ARCHIVE_BUCKET required when archiving is enabled")
	}
	return nil
}

// AnalyticsConfigured reports whether the external signal source has enough
// configuration to attempt fetches.
func (c *Config) AnalyticsConfigured() bool {
	if c.AnalyticsPropertyID == "" {
		return false
	}
	credsPath := c.AnalyticsCredentialsFile
	if !filepath.IsAbs(credsPath) {
		credsPath = filepath.Join(c.DataDir, credsPath)
	}
	_, err := os.Stat(credsPath)
	return err == nil
}

// CredentialsPath returns the resolved analytics credentials file path.
func (c *Config) CredentialsPath() string {
	if filepath.IsAbs(c.AnalyticsCredentialsFile) {
		return c.AnalyticsCredentialsFile
	}
	return filepath.Join(c.DataDir, c.AnalyticsCredentialsFile)
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

func loadArchiveConfig() *ArchiveConfig {
	return &ArchiveConfig{
		Enabled:         getEnvAsBool("ARCHIVE_ENABLED", false),
		Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
		Region:          getEnv("ARCHIVE_REGION", "auto"),
		Bucket:          getEnv("ARCHIVE_BUCKET", ""),
		AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
	}
}

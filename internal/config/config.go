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

	// Screening
	RescreenSchedule string // cron expression for the nightly full re-screening
	BatchWorkers     int    // bounded fan-out width for batch re-evaluation

	// Ledger backup (S3-compatible object storage)
	Backup *BackupConfig
}

// BackupConfig holds ledger backup configuration
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint URL
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // cron expression
	Retain          int    // number of backups to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TAZKIYAH_DATA_DIR", "")
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
		DataDir:          absDataDir,
		Port:             getEnvAsInt("TAZKIYAH_PORT", 8040),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RescreenSchedule: getEnv("RESCREEN_SCHEDULE", "0 0 2 * * *"), // 02:00 daily
		BatchWorkers:     getEnvAsInt("BATCH_WORKERS", 8),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("batch workers must be positive, got %d", c.BatchWorkers)
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup enabled but BACKUP_BUCKET is not set")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup enabled but credentials are not set")
		}
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"), // 03:30 daily
		Retain:          getEnvAsInt("BACKUP_RETAIN", 14),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

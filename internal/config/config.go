package config

import (
	"os"
	"strconv"

	"funnelab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ingest   IngestConfig
	Analysis AnalysisConfig
	Export   ExportConfig
}

// DatabaseConfig holds warehouse connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds collector HTTP server settings
type ServerConfig struct {
	Port string
}

// IngestConfig holds event ingestion limits
type IngestConfig struct {
	MaxBatchSize int
}

// AnalysisConfig holds experiment decision parameters
type AnalysisConfig struct {
	ConfidenceLevel float64
	MinSampleSize   int
}

// ExportConfig holds dashboard export paths
type ExportConfig struct {
	OutputPath string
	ExcelPath  string
	HTMLPath   string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Ingest: IngestConfig{
			MaxBatchSize: getEnvIntOrDefault("MAX_BATCH_SIZE", 1000),
		},
		Analysis: AnalysisConfig{
			ConfidenceLevel: getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
			MinSampleSize:   getEnvIntOrDefault("MIN_SAMPLE_SIZE", 100),
		},
		Export: ExportConfig{
			OutputPath: getEnvOrDefault("DASHBOARD_JSON", "dashboard/data.json"),
			ExcelPath:  getEnvOrDefault("DASHBOARD_XLSX", ""),
			HTMLPath:   getEnvOrDefault("DASHBOARD_HTML", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if cfg.Ingest.MaxBatchSize < 1 {
		return errors.ConfigInvalid("MAX_BATCH_SIZE must be at least 1")
	}
	if cfg.Analysis.ConfidenceLevel <= 0 || cfg.Analysis.ConfidenceLevel >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be in (0, 1)")
	}
	if cfg.Analysis.MinSampleSize < 0 {
		return errors.ConfigInvalid("MIN_SAMPLE_SIZE must be non-negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

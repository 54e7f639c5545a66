package config

import (
	"os"
	"strconv"

	"mipool/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pooling  PoolingConfig
	Data     DataConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// run persistence; pooling still works without it.
type DatabaseConfig struct {
	URL          string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// Enabled reports whether a database was configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// PoolingConfig holds pooling defaults applied when a request leaves them
// unset
type PoolingConfig struct {
	ConfidenceLevel float64
	NullValue       float64
	MaxConcurrency  int
}

// DataConfig holds file ingestion settings
type DataConfig struct {
	EstimatesFile string
	SheetName     string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Pooling:  loadPoolingConfig(),
		Data:     loadDataConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", ""),
		SSLMode:      getEnvOrDefault("SSL_MODE", "disable"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadPoolingConfig() PoolingConfig {
	return PoolingConfig{
		ConfidenceLevel: getEnvFloatOrDefault("POOL_CONFIDENCE_LEVEL", 0.95),
		NullValue:       getEnvFloatOrDefault("POOL_NULL_VALUE", 0),
		MaxConcurrency:  getEnvIntOrDefault("POOL_MAX_CONCURRENCY", 4),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		EstimatesFile: getEnvOrDefault("ESTIMATES_FILE", ""),
		SheetName:     getEnvOrDefault("ESTIMATES_SHEET", "Sheet1"),
	}
}

func validateConfig(config *Config) error {
	if cl := config.Pooling.ConfidenceLevel; cl <= 0 || cl >= 1 {
		return errors.ConfigInvalid("POOL_CONFIDENCE_LEVEL must be strictly between 0 and 1")
	}
	if config.Pooling.MaxConcurrency < 1 {
		return errors.ConfigInvalid("POOL_MAX_CONCURRENCY must be at least 1")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
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

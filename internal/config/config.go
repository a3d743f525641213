package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Remote backends.
const (
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	NodeEnv       string
	Port          string
	JWTSecret     string
	DeviceID      string
	DataDir       string
	RemoteBackend string
	Database      DatabaseConfig
	Logger        LoggerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// LoggerConfig selects zap's preset and the optional rotated log file.
type LoggerConfig struct {
	Mode     string // production or development
	Filename string // empty disables the file sink
}

// Load loads configuration from .env and the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	hostname, _ := os.Hostname()
	nodeEnv := getEnv("NODE_ENV", "development")
	cfg := &Config{
		NodeEnv:       nodeEnv,
		Port:          getEnv("PORT", "3001"),
		JWTSecret:     jwtSecret,
		DeviceID:      getEnv("DEVICE_ID", hostname),
		DataDir:       getEnv("DATA_DIR", "data"),
		RemoteBackend: getEnv("REMOTE_BACKEND", RemoteMemory),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "pantrysync"),
		},
		Logger: LoggerConfig{
			Mode:     getEnv("LOG_MODE", defaultLogMode(nodeEnv)),
			Filename: os.Getenv("LOG_FILE"),
		},
	}

	switch cfg.RemoteBackend {
	case RemoteMemory, RemotePostgres:
	default:
		return nil, fmt.Errorf("REMOTE_BACKEND must be %q or %q, got %q", RemoteMemory, RemotePostgres, cfg.RemoteBackend)
	}
	return cfg, nil
}

// BoltPath is the device database file under DataDir.
func (c *Config) BoltPath() string {
	return filepath.Join(c.DataDir, "pantrysync.db")
}

// IsProduction reports NODE_ENV=production.
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

func defaultLogMode(nodeEnv string) string {
	if nodeEnv == "production" {
		return "production"
	}
	return "development"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SyncConfig tunes the trip engine and the call accounting layer.
type SyncConfig struct {
	// ============ ACCOUNTING ============
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	Simulate        bool   `yaml:"simulate"`
	SweepSchedule   string `yaml:"sweep_schedule"` // cron spec
	MaxCallLog      int    `yaml:"max_call_log"`

	// ============ ENGINE ============
	SnowflakeNode      int64  `yaml:"snowflake_node"`     // 0..1023, unique per device
	ConflictResolution string `yaml:"conflict_resolution"` // last_write_wins, server_wins, client_wins
}

// CacheTTL returns the accounting cache TTL.
func (c *SyncConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LoadSyncConfig reads SYNC_CONFIG_PATH when set, otherwise the environment.
func LoadSyncConfig() (*SyncConfig, error) {
	if path := os.Getenv("SYNC_CONFIG_PATH"); path != "" {
		return LoadSyncConfigFile(path)
	}
	return getDefaultSyncConfig(), nil
}

// LoadSyncConfigFile reads a YAML file over the defaults. Keys absent from
// the file keep their default values.
func LoadSyncConfigFile(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read sync config")
	}

	cfg := getDefaultSyncConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse sync config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges the libraries would reject later.
func (c *SyncConfig) Validate() error {
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return errors.Errorf("snowflake_node must be within 0..1023, got %d", c.SnowflakeNode)
	}
	if c.CacheTTLSeconds < 0 {
		return errors.Errorf("cache_ttl_seconds must not be negative, got %d", c.CacheTTLSeconds)
	}
	switch c.ConflictResolution {
	case "", "last_write_wins", "server_wins", "client_wins":
	default:
		return errors.Errorf("unknown conflict_resolution %q", c.ConflictResolution)
	}
	return nil
}

// getDefaultSyncConfig returns default sync configuration
func getDefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		CacheTTLSeconds:    getIntEnv("SYNC_CACHE_TTL", 30),
		Simulate:           getBoolEnv("SYNC_SIMULATE", false),
		SweepSchedule:      getEnv("SYNC_SWEEP_SCHEDULE", "@every 1m"),
		MaxCallLog:         getIntEnv("SYNC_MAX_CALL_LOG", 200),
		SnowflakeNode:      int64(getIntEnv("SYNC_NODE", 1)),
		ConflictResolution: getEnv("SYNC_CONFLICT_RESOLUTION", "last_write_wins"),
	}
}

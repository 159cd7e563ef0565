package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config carries process-level settings. Sync folders and servers are rows
// in the database, not config entries.
type Config struct {
	DaemonPort   int    `mapstructure:"daemon_port"`
	DBPath       string `mapstructure:"db_path"`
	LogPath      string `mapstructure:"log_path"`
	BufferSize   int    `mapstructure:"buffer_size"`
	DebounceMs   int    `mapstructure:"debounce_ms"`
	Workers      int    `mapstructure:"workers"`
	RetryLimit   int    `mapstructure:"retry_limit"`
	RetryBaseMs  int    `mapstructure:"retry_base_ms"`
	HashMaxBytes int64  `mapstructure:"hash_max_bytes"`
}

var Default = Config{
	DaemonPort:   9610,
	DBPath:       "lightsync.db",
	LogPath:      "",
	BufferSize:   256,
	DebounceMs:   500,
	Workers:      4,
	RetryLimit:   3,
	RetryBaseMs:  500,
	HashMaxBytes: 256 << 20,
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".lightsync")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	viper.SetDefault("log_path", Default.LogPath)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("debounce_ms", Default.DebounceMs)
	viper.SetDefault("workers", Default.Workers)
	viper.SetDefault("retry_limit", Default.RetryLimit)
	viper.SetDefault("retry_base_ms", Default.RetryBaseMs)
	viper.SetDefault("hash_max_bytes", Default.HashMaxBytes)

	viper.SetEnvPrefix("LIGHTSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DaemonPort < 1 || c.DaemonPort > 65535 {
		return fmt.Errorf("daemon_port out of range: %d", c.DaemonPort)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.DebounceMs < 100 || c.DebounceMs > 10000 {
		return fmt.Errorf("debounce_ms must be between 100 and 10000, got %d", c.DebounceMs)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got %d", c.Workers)
	}
	if c.RetryLimit < 0 || c.RetryLimit > 10 {
		return fmt.Errorf("retry_limit must be between 0 and 10, got %d", c.RetryLimit)
	}
	return nil
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMs) * time.Millisecond
}

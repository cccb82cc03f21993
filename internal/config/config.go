package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultDatabaseURL is the realtime store used when the config does not
// name one.
const DefaultDatabaseURL = "https://gsole-chat-default-rtdb.firebaseio.com"

// Config represents the global ~/.gsole/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	// DatabaseURL is the base URL of the realtime store. All channel paths
	// hang off it.
	DatabaseURL string `toml:"database_url"`
	// MetricsAddr, when set, exposes prometheus metrics on that address.
	MetricsAddr string `toml:"metrics_addr"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

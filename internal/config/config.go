// Package config resolves the on-disk layout (~/.ess) and the optional
// config file controlling sync behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the operator-tunable settings.
type Config struct {
	Sync SyncConfig `toml:"sync"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// WatchInterval is the delay between sync cycles in watch mode,
	// parsed by time.ParseDuration.
	WatchInterval string `toml:"watch_interval"`
}

func defaults() Config {
	return Config{
		Sync: SyncConfig{WatchInterval: "5m"},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file is absent. If path is empty, the default location inside the data
// directory is used.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = filepath.Join(DataDir(), "config.toml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// DataDir returns the ess data directory, ~/.ess by default. ESS_DATA_DIR
// overrides it, which tests rely on to avoid touching a real home.
func DataDir() string {
	if dir := os.Getenv("ESS_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ess")
}

// DBPath returns the Store location inside the data directory.
func DBPath() string {
	return filepath.Join(DataDir(), "ess.db")
}

// IndexDir returns the Index directory inside the data directory.
func IndexDir() string {
	return filepath.Join(DataDir(), "index")
}

// Package config loads service configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable via config
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is the full service configuration
type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	Store struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`

	Engine struct {
		Shards    int `yaml:"shards"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"engine"`

	// BootstrapAdmin is the external account id promoted to
	// administrator on its first contact, so a fresh deployment has at
	// least one account able to manage roles.
	BootstrapAdmin string `yaml:"bootstrap_admin"`
}

// Default returns the configuration used when no file and no
// environment overrides are present
func Default() *Config {
	cfg := &Config{
		Addr:     ":8080",
		LogLevel: "info",
	}
	cfg.Store.Backend = BackendMemory
	cfg.Store.SQLitePath = "giftmarket.db"
	cfg.Engine.Shards = 8
	cfg.Engine.QueueSize = 256
	return cfg
}

// Load reads the configuration file at path (skipped when path is
// empty or missing) and then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("BOOTSTRAP_ADMIN"); v != "" {
		cfg.BootstrapAdmin = v
	}
	if v := os.Getenv("ENGINE_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Shards = n
		}
	}
	if v := os.Getenv("ENGINE_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.QueueSize = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("sqlite backend requires a database path")
	}
	if c.Engine.Shards <= 0 {
		return fmt.Errorf("engine shards must be positive, got %d", c.Engine.Shards)
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine queue size must be positive, got %d", c.Engine.QueueSize)
	}
	return nil
}

// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the TOML configuration from the given path.
func (l *Loader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if cfg.Network.Host == "" {
		cfg.Network.Host = "0.0.0.0"
	}
	if cfg.Network.Port == 0 {
		cfg.Network.Port = 6380
	}

	if cfg.Threading.ThreadLimit <= 0 {
		cfg.Threading.ThreadLimit = 64
	}

	if cfg.Redis.MaxConnections <= 0 {
		cfg.Redis.MaxConnections = 4
	}

	if cfg.Gatehouse.ThreadCount <= 0 {
		cfg.Gatehouse.ThreadCount = 4
	}

	if cfg.Caching.Size <= 0 {
		cfg.Caching.Size = 1024
	}

	if cfg.Heartbeat.HBMinInterval <= 0 {
		cfg.Heartbeat.HBMinInterval = 1000
	}
	if cfg.Heartbeat.HBMaxInterval <= 0 {
		cfg.Heartbeat.HBMaxInterval = 5000
	}
	if cfg.Heartbeat.HBInitInterval <= 0 {
		cfg.Heartbeat.HBInitInterval = 2000
	}
	if cfg.Heartbeat.HBTimeout <= 0 {
		cfg.Heartbeat.HBTimeout = 3000
	}
}

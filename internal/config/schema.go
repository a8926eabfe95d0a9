// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// Package config handles TOML configuration loading for clousocket.
package config

// Config is the root configuration structure, mirroring the sections of
// clousocket.toml.
type Config struct {
	Network   NetworkConfig   `toml:"network"`
	Threading ThreadingConfig `toml:"threading"`
	Redis     RedisConfig     `toml:"redis"`
	Gatehouse GatehouseConfig `toml:"gatehouse"`
	Caching   CachingConfig   `toml:"caching"`
	Heartbeat HeartbeatConfig `toml:"heartbeat"`
}

// NetworkConfig configures the TCP listener.
type NetworkConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ThreadingConfig bounds CPU-offloaded per-session work.
type ThreadingConfig struct {
	ThreadLimit int `toml:"thread-limit"`
}

// RedisConfig configures the upstream store client pool.
type RedisConfig struct {
	URL            string `toml:"url"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	MaxConnections int    `toml:"max-connections"`
}

// GatehouseConfig configures the admission pipeline worker pool.
type GatehouseConfig struct {
	ThreadCount int `toml:"thread-count"`
}

// CachingConfig configures the deserializer memoization cache.
type CachingConfig struct {
	Size int `toml:"size"`
}

// HeartbeatConfig configures the per-session adaptive heartbeat.
type HeartbeatConfig struct {
	HBMinInterval  int64 `toml:"hb-min-interval"`
	HBMaxInterval  int64 `toml:"hb-max-interval"`
	HBInitInterval int64 `toml:"hb-init-interval"`
	HBTimeout      int64 `toml:"hb-timeout"`
}

// Package config provides configuration loading for fluxion.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (FLUXION_*)
//  2. Project config (.fluxion/config.yml)
//  3. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: FLUXION_
//   - Nested fields: Use underscores (FLUXION_CACHE_CAPACITY)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
package config

import "time"

// Config represents the complete fluxion configuration.
// It can be loaded from .fluxion/config.yml with environment variable overrides.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Documents DocumentsConfig `yaml:"documents" mapstructure:"documents"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig configures the server log written to stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn or error
}

// DocumentsConfig defines which opened documents are tracked.
type DocumentsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for tracked files
	Exclude []string `yaml:"exclude" mapstructure:"exclude"` // glob patterns to skip
}

// CacheConfig configures the content-addressed analysis cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	Capacity   int  `yaml:"capacity" mapstructure:"capacity"`       // max cached analyses
	TTLSeconds int  `yaml:"ttl_seconds" mapstructure:"ttl_seconds"` // 0 keeps entries until evicted
}

// MetricsConfig configures the prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"` // empty disables the listener
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Documents: DocumentsConfig{
			Include: []string{
				"**/*.py",
				"**/*.pyi",
			},
			Exclude: []string{
				"**/.venv/**",
				"**/venv/**",
				"**/__pycache__/**",
				"**/site-packages/**",
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			Capacity:   256,
			TTLSeconds: 600,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project configuration directory.
const DirName = ".fluxion"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)

	// Path returns the directory searched for config.yml.
	Path() string
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

func (l *loader) Path() string {
	return filepath.Join(l.rootDir, DirName)
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (FLUXION_*)
// 2. Config file (.fluxion/config.yml or .fluxion/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.Path())

	v.SetEnvPrefix("FLUXION")
	v.AutomaticEnv()
	// FLUXION_CACHE_TTL_SECONDS -> cache.ttl_seconds
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("log.level")
	v.BindEnv("cache.enabled")
	v.BindEnv("cache.capacity")
	v.BindEnv("cache.ttl_seconds")
	v.BindEnv("metrics.addr")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)

	v.SetDefault("documents.include", defaults.Documents.Include)
	v.SetDefault("documents.exclude", defaults.Documents.Exclude)

	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)

	v.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

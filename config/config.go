// Package config provides configuration loading and management for protodb.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete protodb configuration
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Finder  FinderConfig  `yaml:"finder"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// CatalogConfig configures the protocol catalog (database.yml)
type CatalogConfig struct {
	// Path is the catalog document (auto-detected if empty)
	Path string `yaml:"path"`
	// CacheEagerLoaders keeps eager loaders across iterations of a subset
	CacheEagerLoaders bool `yaml:"cache_eager_loaders"`
	// MemoizeFields caches deferred field values on first access
	MemoizeFields bool `yaml:"memoize_fields"`
}

// FinderConfig configures the file finder
type FinderConfig struct {
	// Path is the search space document (default: ~/.protodb/db.yml)
	Path string `yaml:"path"`
}

// WatchConfig configures catalog reloading
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before reloading
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: "", // Auto-detect
		},
		Finder: FinderConfig{
			Path: DefaultFinderPath,
		},
		Watch: WatchConfig{
			DebounceDelay: 200 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	if c.Watch.DebounceDelay < 0 {
		return fmt.Errorf("watch.debounce_delay must not be negative")
	}
	if c.Finder.Path == "" {
		return fmt.Errorf("finder.path is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Catalog
	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}
	if other.Catalog.CacheEagerLoaders {
		c.Catalog.CacheEagerLoaders = true
	}
	if other.Catalog.MemoizeFields {
		c.Catalog.MemoizeFields = true
	}

	// Finder
	if other.Finder.Path != "" {
		c.Finder.Path = other.Finder.Path
	}

	// Watch
	if other.Watch.DebounceDelay != 0 {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

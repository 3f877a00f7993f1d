package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Catalog.Path != "" {
		t.Errorf("expected empty catalog path for auto-detection, got %s", cfg.Catalog.Path)
	}
	if cfg.Finder.Path != DefaultFinderPath {
		t.Errorf("expected default finder path %s, got %s", DefaultFinderPath, cfg.Finder.Path)
	}
	if cfg.Watch.DebounceDelay != 200*time.Millisecond {
		t.Errorf("expected default debounce 200ms, got %v", cfg.Watch.DebounceDelay)
	}
	if cfg.Catalog.CacheEagerLoaders || cfg.Catalog.MemoizeFields {
		t.Error("expected caching to be off by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.DebounceDelay = -time.Second },
			wantErr: true,
		},
		{
			name:    "missing finder path",
			modify:  func(c *Config) { c.Finder.Path = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
catalog:
  path: "/data/database.yml"
  cache_eager_loaders: true
finder:
  path: "/data/db.yml"
watch:
  debounce_delay: 1s
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Catalog.Path != "/data/database.yml" {
		t.Errorf("expected catalog path /data/database.yml, got %s", cfg.Catalog.Path)
	}
	if !cfg.Catalog.CacheEagerLoaders {
		t.Error("expected cache_eager_loaders to be set")
	}
	if cfg.Finder.Path != "/data/db.yml" {
		t.Errorf("expected finder path /data/db.yml, got %s", cfg.Finder.Path)
	}
	if cfg.Watch.DebounceDelay != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.DebounceDelay)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Catalog: CatalogConfig{
			Path:          "/override/database.yml",
			MemoizeFields: true,
		},
	}

	base.Merge(override)

	if base.Catalog.Path != "/override/database.yml" {
		t.Errorf("expected catalog path /override/database.yml, got %s", base.Catalog.Path)
	}
	if !base.Catalog.MemoizeFields {
		t.Error("expected memoize_fields to be merged")
	}
	// Finder path should remain from base since override didn't set it
	if base.Finder.Path != DefaultFinderPath {
		t.Errorf("expected finder path to remain default, got %s", base.Finder.Path)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Catalog.Path = "/saved/database.yml"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Catalog.Path != "/saved/database.yml" {
		t.Errorf("expected catalog path /saved/database.yml, got %s", loaded.Catalog.Path)
	}
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/protodb/resolve"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "protodb.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/protodb"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"

	// CatalogFile is the catalog document looked up from the current directory
	CatalogFile = "database.yml"
	// DefaultCatalogPath is used when no catalog document is found nearby
	DefaultCatalogPath = "~/.protodb/database.yml"
	// DefaultFinderPath is the default file finder search space
	DefaultFinderPath = "~/.protodb/db.yml"

	// EnvCatalogPath overrides the catalog document location
	EnvCatalogPath = "PROTODB_DATABASE_CONFIG"
	// EnvFinderPath overrides the file finder search space location
	EnvFinderPath = "PROTODB_FINDER_CONFIG"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/protodb/config.yaml)
// 3. Project config (protodb.yaml in current or parent directories)
// 4. Environment variables (PROTODB_DATABASE_CONFIG, PROTODB_FINDER_CONFIG)
//
// A catalog path left empty is auto-detected: database.yml in the current
// or a parent directory, else ~/.protodb/database.yml.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := loadLayer(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	projectConfigPath := findUp(ProjectConfigFile)
	if projectConfigPath != "" {
		if projectConfig, err := loadLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if v := os.Getenv(EnvCatalogPath); v != "" {
		config.Catalog.Path = v
	}
	if v := os.Getenv(EnvFinderPath); v != "" {
		config.Finder.Path = v
	}

	if config.Catalog.Path == "" {
		if found := findUp(CatalogFile); found != "" {
			config.Catalog.Path = found
			l.logger.Debug("Found catalog document", slog.String("path", found))
		} else {
			config.Catalog.Path = DefaultCatalogPath
		}
	}

	var err error
	if config.Catalog.Path, err = resolve.ExpandHome(config.Catalog.Path); err != nil {
		return nil, err
	}
	if config.Finder.Path, err = resolve.ExpandHome(config.Finder.Path); err != nil {
		return nil, err
	}

	config.Log.Level = strings.ToLower(config.Log.Level)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadLayer reads one configuration layer. Unlike LoadFromFile it starts
// from a zero Config, so only the keys present in the file are set and
// Merge does not mistake defaults for overrides.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't
// exist and returns its path.
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findUp searches for name in the current and parent directories
func findUp(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

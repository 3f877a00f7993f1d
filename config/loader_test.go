package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory and moves into a fresh working
// directory so that no real configuration is picked up.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvCatalogPath, "")
	t.Setenv(EnvFinderPath, "")
	t.Chdir(work)
	return home, work
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoader_Defaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".protodb", "database.yml"), cfg.Catalog.Path)
	assert.Equal(t, filepath.Join(home, ".protodb", "db.yml"), cfg.Finder.Path)
}

func TestLoader_FindsCatalogInParentDirectory(t *testing.T) {
	_, work := isolate(t)
	catalog := filepath.Join(work, CatalogFile)
	writeConfig(t, catalog, "Protocols: {}\n")

	nested := filepath.Join(work, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, catalog, cfg.Catalog.Path)
}

func TestLoader_Precedence(t *testing.T) {
	home, work := isolate(t)

	writeConfig(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
catalog:
  path: /user/database.yml
finder:
  path: /user/db.yml
log:
  level: warn
`)
	writeConfig(t, filepath.Join(work, ProjectConfigFile), `
catalog:
  path: /project/database.yml
`)

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "/project/database.yml", cfg.Catalog.Path)
	assert.Equal(t, "/user/db.yml", cfg.Finder.Path)
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv(EnvCatalogPath, "~/env/database.yml")
	t.Setenv(EnvFinderPath, "/env/db.yml")

	cfg, err = NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "env", "database.yml"), cfg.Catalog.Path)
	assert.Equal(t, "/env/db.yml", cfg.Finder.Path)
}

func TestLoader_InvalidProjectConfigIsIgnored(t *testing.T) {
	_, work := isolate(t)
	writeConfig(t, filepath.Join(work, ProjectConfigFile), "catalog: [not, a, mapping]\n")

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_ProjectLayerKeepsUnsetUserValues(t *testing.T) {
	home, work := isolate(t)

	writeConfig(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
finder:
  path: /user/db.yml
watch:
  debounce_delay: 1s
catalog:
  memoize_fields: true
`)
	writeConfig(t, filepath.Join(work, ProjectConfigFile), "log:\n  level: WARN\n")

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "/user/db.yml", cfg.Finder.Path)
	assert.Equal(t, time.Second, cfg.Watch.DebounceDelay)
	assert.True(t, cfg.Catalog.MemoizeFields)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_InvalidMergedConfig(t *testing.T) {
	_, work := isolate(t)
	writeConfig(t, filepath.Join(work, ProjectConfigFile), "log:\n  level: loud\n")

	_, err := NewLoader(nil).Load()
	assert.Error(t, err)
}

func TestEnsureUserConfig(t *testing.T) {
	home, _ := isolate(t)
	loader := NewLoader(nil)

	path, err := loader.EnsureUserConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, UserConfigDir, UserConfigFile), path)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	// A second call keeps the existing file.
	writeConfig(t, path, "log:\n  level: error\n")
	_, err = loader.EnsureUserConfig()
	require.NoError(t, err)
	cfg, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

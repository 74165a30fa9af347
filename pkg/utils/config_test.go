package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// isolate keeps the search from picking up a real config file.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/games", cfg.Catalog.BaseURL)
	assert.Equal(t, 400*time.Millisecond, cfg.Query.Debounce)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, language.Italian, cfg.Locale())
	assert.True(t, cfg.CatalogConfig().Breaker.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "gamedex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  base_url: http://catalog.test/games
  timeout: 3s
query:
  debounce: 250ms
  locale: en-GB
storage:
  driver: badger
  path: /tmp/gamedex-state
`), 0o644))

	t.Setenv("GAMEDEX_API_TIMEOUT", "7s")
	t.Setenv("GAMEDEX_STORAGE_DRIVER", "memory")
	t.Setenv("GAMEDEX_UNRELATED", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.test/games", cfg.Catalog.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.Catalog.Timeout, "env wins over file")
	assert.Equal(t, 250*time.Millisecond, cfg.Query.Debounce)
	assert.Equal(t, language.BritishEnglish, cfg.Locale())
	assert.Equal(t, "memory", cfg.StorageConfig().Driver)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("gamedex.yaml", []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LoggingConfig().Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)

	t.Setenv("GAMEDEX_STORAGE_DRIVER", "postgres")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Driver")

	t.Setenv("GAMEDEX_STORAGE_DRIVER", "memory")
	t.Setenv("GAMEDEX_API_URL", "not a url")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	loaded := *cfg

	cfg.Apply(Overrides{})
	assert.Equal(t, loaded, *cfg)

	cfg.Apply(Overrides{APIURL: "http://example.test/games", LogLevel: "debug", Ephemeral: true})
	assert.Equal(t, "http://example.test/games", cfg.Catalog.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.StorageConfig().Driver)
	assert.Empty(t, cfg.StorageConfig().Path)
	assert.NoError(t, cfg.Validate())
}

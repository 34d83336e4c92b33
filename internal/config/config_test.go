package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDevelopment)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "settings.yaml", filepath.Base(cfg.SettingsPath))
	assert.Equal(t, "history.db", filepath.Base(cfg.StoreDSN))
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(cfg.StoreDSN)))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BLINKBREAK_LOG_LEVEL", "debug")
	t.Setenv("BLINKBREAK_LOG_DEV", "true")
	t.Setenv("BLINKBREAK_STORE_DRIVER", "postgres")
	t.Setenv("BLINKBREAK_STORE_DSN", "postgres://localhost/blinkbreak")
	t.Setenv("BLINKBREAK_SETTINGS_PATH", "/tmp/blinkbreak.yaml")
	t.Setenv("BLINKBREAK_METRICS_ADDR", ":9300")
	t.Setenv("BLINKBREAK_TICK_INTERVAL", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.True(t, cfg.Logger().Development)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "postgres://localhost/blinkbreak", cfg.StoreDSN)
	assert.Equal(t, "/tmp/blinkbreak.yaml", cfg.SettingsPath)
	assert.Equal(t, ":9300", cfg.MetricsAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BLINKBREAK_METRICS_ADDR=:9400\nBLINKBREAK_SETTINGS_PATH=/tmp/a.yaml\n"), 0o600))
	t.Setenv("BLINKBREAK_SETTINGS_PATH", "/tmp/b.yaml")
	// godotenv sets variables with os.Setenv; register cleanup through t.Setenv.
	t.Setenv("BLINKBREAK_METRICS_ADDR", "")
	require.NoError(t, os.Unsetenv("BLINKBREAK_METRICS_ADDR"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9400", cfg.MetricsAddr)
	assert.Equal(t, "/tmp/b.yaml", cfg.SettingsPath, "environment wins over .env")
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("BLINKBREAK_SETTINGS_PATH", "/tmp/c.yaml")
	t.Setenv("BLINKBREAK_STORE_DRIVER", "none")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.StoreDriver)
	assert.Empty(t, cfg.StoreDSN)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("BLINKBREAK_TICK_INTERVAL", "often")

	_, err := Load("")
	assert.Error(t, err)
}

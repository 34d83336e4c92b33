package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkbreak/internal/core/model"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestSaveThenLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	settings := DefaultSettings()
	settings.Cycle.WorkDuration = 25 * time.Minute
	settings.Cycle.BreakDuration = 30 * time.Second
	settings.Cycle.ManualSelectionWindow = 0
	settings.Cycle.ActivityHistoryDepth = 3
	settings.Cycle.PreferredActivity = model.ActivityBlink
	settings.Cycle.Idle.Enabled = false
	settings.NotificationsEnabled = false

	require.NoError(t, SaveSettings(path, settings))
	loaded, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestLoadSettingsKeepsDefaultsForInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte(`work_duration_seconds: -5
break_duration_seconds: 0
manual_selection_window_ms: -1
activity_history_depth: -2
preferred_activity_kind: cartwheel
idle_reset_after_seconds: 0
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	settings, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestLoadSettingsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte(`work_duration_seconds: 60
preferred_activity_kind: Look-Outside
idle_reset_enabled: false
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	settings, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, time.Minute, settings.Cycle.WorkDuration)
	assert.Equal(t, model.DefaultBreakDuration, settings.Cycle.BreakDuration)
	assert.Equal(t, model.ActivityLookOutside, settings.Cycle.PreferredActivity)
	assert.False(t, settings.Cycle.Idle.Enabled)
	assert.True(t, settings.NotificationsEnabled)
}

func TestLoadSettingsRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("work_duration_seconds: [1, 2"), 0o644))

	settings, err := LoadSettings(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse settings yaml")
	assert.Equal(t, DefaultSettings(), settings)
}

func TestDefaultSettingsPath(t *testing.T) {
	path, err := DefaultSettingsPath("blinkbreak")
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.Equal(t, "settings.yaml", filepath.Base(path))
	assert.Equal(t, "blinkbreak", filepath.Base(filepath.Dir(path)))
}

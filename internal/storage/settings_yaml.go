package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"blinkbreak/internal/core/model"
)

const settingsFileName = "settings.yaml"

// Settings is the user-editable configuration.
type Settings struct {
	Cycle                model.CycleConfig
	NotificationsEnabled bool
}

// DefaultSettings returns stock settings.
func DefaultSettings() Settings {
	return Settings{
		Cycle:                model.DefaultCycleConfig(),
		NotificationsEnabled: true,
	}
}

type yamlSettings struct {
	WorkDurationSeconds     int    `yaml:"work_duration_seconds"`
	BreakDurationSeconds    int    `yaml:"break_duration_seconds"`
	ManualSelectionWindowMs *int   `yaml:"manual_selection_window_ms"`
	ActivityHistoryDepth    *int   `yaml:"activity_history_depth"`
	PreferredActivityKind   string `yaml:"preferred_activity_kind"`
	IdleResetEnabled        *bool  `yaml:"idle_reset_enabled"`
	IdleResetAfterSeconds   int    `yaml:"idle_reset_after_seconds"`
	NotificationsEnabled    *bool  `yaml:"notifications_enabled"`
}

// DefaultSettingsPath returns <UserConfigDir>/<appName>/settings.yaml.
func DefaultSettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads user settings from the YAML file at path.
// If the file does not exist, default settings are returned.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}
	return ParseSettings(rawData)
}

// ParseSettings decodes a settings file. Missing or invalid fields keep
// their defaults.
func ParseSettings(rawData []byte) (Settings, error) {
	settings := DefaultSettings()

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user settings to the YAML file at path.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	serialized, err := MarshalSettings(settings)
	if err != nil {
		return err
	}

	return writeFileAtomic(path, serialized, 0o644)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a truncated file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename settings file: %w", err)
	}
	committed = true
	return nil
}

// MarshalSettings renders settings in the file format.
func MarshalSettings(settings Settings) ([]byte, error) {
	cycle := settings.Cycle
	window := int(cycle.ManualSelectionWindow / time.Millisecond)
	depth := cycle.ActivityHistoryDepth
	idleEnabled := cycle.Idle.Enabled
	notifications := settings.NotificationsEnabled
	fileData := yamlSettings{
		WorkDurationSeconds:     int(cycle.WorkDuration / time.Second),
		BreakDurationSeconds:    int(cycle.BreakDuration / time.Second),
		ManualSelectionWindowMs: &window,
		ActivityHistoryDepth:    &depth,
		PreferredActivityKind:   string(cycle.PreferredActivity),
		IdleResetEnabled:        &idleEnabled,
		IdleResetAfterSeconds:   int(cycle.Idle.ResetAfter / time.Second),
		NotificationsEnabled:    &notifications,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return nil, fmt.Errorf("marshal settings yaml: %w", err)
	}
	return serialized, nil
}

func applyYamlSettings(settings *Settings, fileData yamlSettings) {
	cycle := &settings.Cycle
	if fileData.WorkDurationSeconds > 0 {
		cycle.WorkDuration = time.Duration(fileData.WorkDurationSeconds) * time.Second
	}
	if fileData.BreakDurationSeconds > 0 {
		cycle.BreakDuration = time.Duration(fileData.BreakDurationSeconds) * time.Second
	}
	if window := fileData.ManualSelectionWindowMs; window != nil && *window >= 0 {
		cycle.ManualSelectionWindow = time.Duration(*window) * time.Millisecond
	}
	if depth := fileData.ActivityHistoryDepth; depth != nil && *depth >= 0 {
		cycle.ActivityHistoryDepth = *depth
	}
	if fileData.PreferredActivityKind != "" {
		if kind, err := model.ParseActivityKind(fileData.PreferredActivityKind); err == nil {
			cycle.PreferredActivity = kind
		}
	}
	if fileData.IdleResetEnabled != nil {
		cycle.Idle.Enabled = *fileData.IdleResetEnabled
	}
	if fileData.IdleResetAfterSeconds > 0 {
		cycle.Idle.ResetAfter = time.Duration(fileData.IdleResetAfterSeconds) * time.Second
	}

	if fileData.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *fileData.NotificationsEnabled
	}
}

//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Enable writes an XDG autostart desktop entry.
func (autostart *Autostart) Enable(execPath string) error {
	if err := autostart.validate(execPath, true); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	location, err := autostart.Location()
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create autostart dir: %w", err)
	}
	if err := os.WriteFile(location, []byte(buildDesktopEntry(autostart.AppName, execPath)), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write desktop entry: %w", err)
	}
	return nil
}

// Disable removes the desktop entry. A missing entry is not an error.
func (autostart *Autostart) Disable() error {
	if err := autostart.validate("", false); err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	location, err := autostart.Location()
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove desktop entry: %w", err)
	}
	return nil
}

// Location returns the desktop entry path.
func (autostart *Autostart) Location() (string, error) {
	configDir, err := autostart.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "autostart", slugName(autostart.AppName)+".desktop"), nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

func buildDesktopEntry(appName, execPath string) string {
	execLine := execPath
	if strings.Contains(execLine, " ") && !strings.HasPrefix(execLine, `"`) {
		execLine = `"` + execLine + `"`
	}

	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Exec=%s run
X-GNOME-Autostart-enabled=true
Terminal=false
`,
		appName,
		execLine,
	)
}

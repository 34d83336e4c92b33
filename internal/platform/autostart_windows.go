//go:build windows

package platform

import (
	"fmt"
	"path/filepath"
	"strings"
)

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

// Enable adds a value under the current user's Run key.
func (autostart *Autostart) Enable(execPath string) error {
	if err := autostart.validate(execPath, true); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	output, err := autostart.run(
		"reg", "add", registryRunKey,
		"/v", autostart.AppName,
		"/t", "REG_SZ",
		"/d", quoteWindowsPath(execPath)+" run",
		"/f",
	)
	if err != nil {
		return fmt.Errorf("enable autostart: reg add failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Disable deletes the Run value.
func (autostart *Autostart) Disable() error {
	if err := autostart.validate("", false); err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	output, err := autostart.run("reg", "delete", registryRunKey, "/v", autostart.AppName, "/f")
	if err != nil {
		return fmt.Errorf("disable autostart: reg delete failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Location returns the registry value path.
func (autostart *Autostart) Location() (string, error) {
	return registryRunKey + `\` + autostart.AppName, nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}

func quoteWindowsPath(execPath string) string {
	trimmed := strings.Trim(execPath, `"`)
	return fmt.Sprintf(`"%s"`, trimmed)
}

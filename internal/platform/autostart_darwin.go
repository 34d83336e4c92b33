//go:build darwin

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Enable writes a LaunchAgent plist that runs at load.
func (autostart *Autostart) Enable(execPath string) error {
	if err := autostart.validate(execPath, true); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	location, err := autostart.Location()
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create LaunchAgents dir: %w", err)
	}
	content := buildLaunchAgentPlist(launchAgentLabel(autostart.AppName), execPath)
	if err := os.WriteFile(location, []byte(content), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write plist: %w", err)
	}
	return nil
}

// Disable removes the plist. A missing plist is not an error.
func (autostart *Autostart) Disable() error {
	if err := autostart.validate("", false); err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	location, err := autostart.Location()
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove plist: %w", err)
	}
	return nil
}

// Location returns the LaunchAgent plist path.
func (autostart *Autostart) Location() (string, error) {
	homeDir, err := autostart.homeDir()
	if err != nil {
		return "", err
	}
	label := launchAgentLabel(autostart.AppName)
	return filepath.Join(homeDir, "Library", "LaunchAgents", label+".plist"), nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "Library", "Application Support")
}

func launchAgentLabel(appName string) string {
	return "com.blinkbreak." + slugName(appName)
}

func buildLaunchAgentPlist(label, execPath string) string {
	return fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
		<string>run</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`,
		xmlEscape(label),
		xmlEscape(execPath),
	)
}

func xmlEscape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(value)
}

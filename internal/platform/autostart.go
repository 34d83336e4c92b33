package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Autostart registers the application to launch at login.
type Autostart struct {
	AppName string
	// Root overrides the per-user base directory. Empty means the OS default.
	Root string

	run func(name string, args ...string) ([]byte, error)
}

// NewAutostart returns an Autostart for appName using the OS defaults.
func NewAutostart(appName string) *Autostart {
	return &Autostart{AppName: appName, run: combinedOutput}
}

func combinedOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func (autostart *Autostart) validate(execPath string, needPath bool) error {
	if strings.TrimSpace(autostart.AppName) == "" {
		return fmt.Errorf("app name is empty")
	}
	if needPath && execPath == "" {
		return fmt.Errorf("exec path is empty")
	}
	return nil
}

// configDir returns the OS-standard configuration directory.
func (autostart *Autostart) configDir() (string, error) {
	if autostart.Root != "" {
		return autostart.Root, nil
	}
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}
	return fallbackConfigDir(homeDir), nil
}

func (autostart *Autostart) homeDir() (string, error) {
	if autostart.Root != "" {
		return autostart.Root, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return homeDir, nil
}

func slugName(appName string) string {
	name := strings.ToLower(strings.TrimSpace(appName))
	return strings.ReplaceAll(name, " ", "-")
}

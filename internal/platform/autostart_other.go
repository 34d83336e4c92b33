//go:build !linux && !darwin && !windows

package platform

import (
	"errors"
	"path/filepath"
	"runtime"
)

var errAutostartUnsupported = errors.New("autostart unsupported on " + runtime.GOOS)

func (autostart *Autostart) Enable(string) error { return errAutostartUnsupported }

func (autostart *Autostart) Disable() error { return errAutostartUnsupported }

func (autostart *Autostart) Location() (string, error) { return "", errAutostartUnsupported }

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

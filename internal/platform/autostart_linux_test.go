//go:build linux

package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutostartDesktopEntry(t *testing.T) {
	root := t.TempDir()
	autostart := NewAutostart("Blink Break")
	autostart.Root = root

	location, err := autostart.Location()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "autostart", "blink-break.desktop"), location)

	require.NoError(t, autostart.Enable("/opt/blink break/blinkbreak"))
	content, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Contains(t, string(content), `Exec="/opt/blink break/blinkbreak" run`)
	assert.Contains(t, string(content), "Name=Blink Break")

	require.NoError(t, autostart.Disable())
	_, err = os.Stat(location)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, autostart.Disable())
}

func TestAutostartValidates(t *testing.T) {
	autostart := NewAutostart("")
	autostart.Root = t.TempDir()
	assert.Error(t, autostart.Enable("/bin/true"))

	autostart.AppName = "blinkbreak"
	assert.Error(t, autostart.Enable(""))
}

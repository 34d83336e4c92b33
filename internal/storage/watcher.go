package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce is the quiet period after the last change before the
// settings file is read again.
var reloadDebounce = 200 * time.Millisecond

// errEmptySettings marks a revision caught between truncate and write.
var errEmptySettings = errors.New("settings file is empty")

// WatchSettings calls apply with freshly loaded settings after the file at
// path changes, until ctx is done. The parent directory is watched so
// editors that replace the file are followed. Bursts of events collapse
// into one reload, and a revision equal to the last applied one is not
// applied again. Empty, missing or unparsable revisions are logged and
// skipped; they never reset the running settings to defaults.
func WatchSettings(ctx context.Context, path string, logger *zap.Logger, apply func(Settings) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var (
		timer   *time.Timer
		pending <-chan time.Time
		last    *Settings
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			settings, err := loadSettingsRevision(path)
			if err != nil {
				logger.Warn("settings reload skipped", zap.String("path", path), zap.Error(err))
				continue
			}
			if last != nil && *last == settings {
				logger.Debug("settings unchanged", zap.String("path", path))
				continue
			}
			if err := apply(settings); err != nil {
				logger.Warn("settings rejected", zap.String("path", path), zap.Error(err))
				continue
			}
			last = &settings
			logger.Info("settings reloaded", zap.String("path", path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

// loadSettingsRevision is LoadSettings for a file known to exist: a missing
// or empty file is an error instead of the defaults.
func loadSettingsRevision(path string) (Settings, error) {
	rawData, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	if len(bytes.TrimSpace(rawData)) == 0 {
		return Settings{}, errEmptySettings
	}
	return ParseSettings(rawData)
}

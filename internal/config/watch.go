package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"unpod-notifier/internal/logging"
)

const settingsReloadDebounce = 250 * time.Millisecond

// WatchSettings watches the settings file and invokes onChange with freshly
// loaded settings after an on-disk edit. Blocks until ctx ends.
func WatchSettings(ctx context.Context, logger *logging.Logger, onChange func(NotifierSettings)) error {
	if logger == nil {
		panic("config.WatchSettings: logger must not be nil")
	}
	if onChange == nil {
		panic("config.WatchSettings: onChange must not be nil")
	}
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Saves replace the file wholesale, so watch the directory rather than
	// the path itself.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", dir, err)
	}
	logger.Debugf("watching settings file: %s", path)

	target := filepath.Clean(path)
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Debug("stopping settings watch: context canceled")
			return nil
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(settingsReloadDebounce)
		case watchErr := <-watcher.Errors:
			if watchErr != nil {
				logger.Warn("settings watcher error", logging.Field("error", watchErr))
			}
		case <-reload:
			reload = nil
			settings, loadErr := LoadSettings()
			if loadErr != nil {
				logger.Debugf("settings reload failed: %v", loadErr)
				continue
			}
			logger.Info("settings file changed on disk, reloading")
			onChange(settings)
		}
	}
}

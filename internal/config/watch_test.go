package config

import (
	"context"
	"runtime"
	"testing"
	"time"

	"unpod-notifier/internal/logging"
)

func TestWatchSettingsReloadsOnSave(t *testing.T) {
	root := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("AppData", root)
	} else {
		t.Setenv("XDG_CONFIG_HOME", root)
	}

	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan NotifierSettings, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchSettings(ctx, logger, func(settings NotifierSettings) {
			reloaded <- settings
		})
	}()

	// Give the watcher time to register before the first save.
	time.Sleep(200 * time.Millisecond)

	if err := SaveSettings(NotifierSettings{BaseURL: "https://edited.example.com", Token: "tok"}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	select {
	case settings := <-reloaded:
		if settings.BaseURL != "https://edited.example.com" {
			t.Fatalf("reloaded BaseURL = %q", settings.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for settings reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WatchSettings() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}

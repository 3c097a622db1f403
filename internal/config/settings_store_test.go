package config

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestSettingsSaveLoadAndPath(t *testing.T) {
	root := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("AppData", root)
	} else {
		t.Setenv("XDG_CONFIG_HOME", root)
	}

	path, err := SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	wantPath := filepath.Join(root, "unpod", "notifier-settings.json")
	if path != wantPath {
		t.Fatalf("SettingsPath() = %q, want %q", path, wantPath)
	}

	in := NotifierSettings{
		BaseURL:             "https://app.unpod.example",
		Token:               "tok",
		AutoConnect:         true,
		Debug:               true,
		MinimizeToTray:      true,
		StartMinimized:      true,
		PollIntervalSeconds: 45,
	}
	if err := SaveSettings(in); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	out, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if out.BaseURL != in.BaseURL || out.Token != in.Token || !out.AutoConnect || !out.Debug {
		t.Fatalf("loaded settings = %#v", out)
	}
	if out.PollIntervalSeconds != 45 {
		t.Fatalf("PollIntervalSeconds = %d, want 45", out.PollIntervalSeconds)
	}
}

func TestMergeOptionsWithSettings_PrefersCLI(t *testing.T) {
	merged := MergeOptionsWithSettings(
		Options{
			BaseURL:     "https://cli.example.com",
			Token:       "",
			AutoConnect: false,
			Debug:       false,
		},
		NotifierSettings{
			BaseURL:             "https://saved.example.com",
			Token:               "saved-token",
			AutoConnect:         true,
			Debug:               true,
			PollIntervalSeconds: 120,
		},
	)

	if merged.BaseURL != "https://cli.example.com" {
		t.Fatalf("BaseURL = %q", merged.BaseURL)
	}
	if merged.Token != "saved-token" {
		t.Fatalf("Token = %q", merged.Token)
	}
	if !merged.AutoConnect || !merged.Debug {
		t.Fatalf("bool flags should merge from saved when CLI false: %#v", merged)
	}
	if merged.PollInterval != 120 {
		t.Fatalf("PollInterval = %d, want merged 120", merged.PollInterval)
	}
}

//go:build !headless

package gui

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/logging"
)

// buildSettingsForm creates the settings tab controls and wires every edit
// into the draft. Nothing touches c.settings until Save.
func (c *controller) buildSettingsForm() fyne.CanvasObject {
	c.baseURL = widget.NewEntry()
	c.baseURL.SetText(c.draft.BaseURL)
	c.baseURL.OnChanged = func(v string) {
		c.draft.BaseURL = strings.TrimSpace(v)
		c.refreshSettingsActions()
		c.refreshStartAvailability()
	}

	c.token = widget.NewPasswordEntry()
	c.token.SetText(c.draft.Token)
	c.token.OnChanged = func(v string) {
		c.draft.Token = strings.TrimSpace(v)
		c.refreshSettingsActions()
		c.refreshStartAvailability()
	}

	c.logDir = widget.NewEntry()
	c.logDir.SetText(c.draft.LogDir)
	c.logDir.OnChanged = func(v string) {
		c.draft.LogDir = strings.TrimSpace(v)
		c.refreshSettingsActions()
	}

	c.connectOnStart = newSliderToggle(func(v bool) {
		c.draft.AutoConnect = v
		c.refreshSettingsActions()
	})
	c.connectOnStart.SetChecked(c.draft.AutoConnect)

	c.minimizeToTray = newSliderToggle(func(v bool) {
		c.draft.MinimizeToTray = v
		c.refreshSettingsActions()
	})
	c.minimizeToTray.SetChecked(c.draft.MinimizeToTray)

	c.startMinimized = newSliderToggle(func(v bool) {
		c.draft.StartMinimized = v
		c.refreshSettingsActions()
	})
	c.startMinimized.SetChecked(c.draft.StartMinimized)

	c.saveSettings = widget.NewButton("Save", c.saveDraftSettings)
	c.cancelSettings = widget.NewButton("Cancel", c.cancelDraftSettings)

	browseLogDir := widget.NewButton("Browse...", func() {
		c.picker.open(c.logDir.Text)
	})
	logDirRow := container.NewBorder(nil, nil, nil, browseLogDir, c.logDir)

	form := container.NewVBox(
		widget.NewLabel("Base URL"),
		c.baseURL,
		verticalGap(8),
		widget.NewLabel("API Token"),
		c.token,
		verticalGap(8),
		widget.NewLabel("Log Directory"),
		logDirRow,
	)
	toggles := container.NewVBox(
		toggleRow("Connect on startup", c.connectOnStart),
		toggleRow("Close to tray", c.minimizeToTray),
		toggleRow("Start minimized", c.startMinimized),
	)
	actions := container.NewHBox(c.saveSettings, c.cancelSettings)

	return container.NewVBox(
		form,
		verticalGap(12),
		toggles,
		verticalGap(8),
		actions,
	)
}

func (c *controller) startSettingsWatchLoop() {
	c.startBackgroundLoop("settings watcher", func(ctx context.Context) {
		err := config.WatchSettings(ctx, c.logger, func(settings config.NotifierSettings) {
			fyne.Do(func() {
				c.adoptExternalSettings(settings)
			})
		})
		if err != nil {
			c.logger.Warn("settings watcher unavailable", logging.Field("error", err))
		}
	})
}

func (c *controller) settingsDirty() bool {
	return c.draft != c.settings
}

func (c *controller) refreshSettingsActions() {
	dirty := c.settingsDirty()
	setButtonEnabled(c.saveSettings, dirty)
	setButtonEnabled(c.cancelSettings, dirty)
}

func (c *controller) saveDraftSettings() {
	c.settings = c.draft
	_ = config.SaveSettings(c.settings)
	c.refreshTrayMenu()
	c.refreshSettingsActions()
}

func (c *controller) cancelDraftSettings() {
	c.draft = c.settings
	c.applyDraftToWidgets()
	c.refreshSettingsActions()
}

func (c *controller) applyDraftToWidgets() {
	c.baseURL.SetText(c.draft.BaseURL)
	c.token.SetText(c.draft.Token)
	c.logDir.SetText(c.draft.LogDir)
	c.debugLogs.SetChecked(c.draft.Debug)
	c.connectOnStart.SetChecked(c.draft.AutoConnect)
	c.minimizeToTray.SetChecked(c.draft.MinimizeToTray)
	c.startMinimized.SetChecked(c.draft.StartMinimized)
	c.logger.SetDebugEnabled(c.draft.Debug)
	c.refreshStartAvailability()
}

// adoptExternalSettings folds in a settings file edit made outside this
// process. Unsaved form edits win over the on-disk values until saved or
// canceled.
func (c *controller) adoptExternalSettings(settings config.NotifierSettings) {
	if settings == c.settings {
		return
	}
	dirty := c.settingsDirty()
	c.settings = settings
	c.dismissedTag = settings.LastDismissedUpdateTag
	if !dirty {
		c.draft = settings
		c.applyDraftToWidgets()
	}
	c.refreshSettingsActions()
	c.refreshTrayMenu()
}

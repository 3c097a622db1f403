//go:build !headless

package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"unpod-notifier/internal/config"
)

func (c *controller) setupTray() {
	if _, ok := c.app.(desktop.App); !ok {
		return
	}
	c.refreshTrayMenu()
}

// refreshTrayMenu rebuilds the whole tray menu; fyne tray items have no
// post-hoc enable/check setters, so every state change swaps the menu.
func (c *controller) refreshTrayMenu() {
	if c.shuttingDown {
		return
	}
	desk, ok := c.app.(desktop.App)
	if !ok {
		return
	}

	desk.SetSystemTrayIcon(notifierIconResource())

	running := c.runner.IsRunning()
	canStart := c.startButton != nil && !c.startButton.Disabled()

	summaryText := "No unread"
	if c.unread > 0 {
		summaryText = fmt.Sprintf("%d unread", c.unread)
	}
	summaryItem := fyne.NewMenuItem(summaryText, nil)
	summaryItem.Disabled = true

	openItem := fyne.NewMenuItem("Open Window", func() {
		c.win.Show()
		c.win.RequestFocus()
	})
	showLogsItem := fyne.NewMenuItem("Show Logs", func() {
		c.logs.setVisible(!c.logs.open)
		c.refreshTrayMenu()
	})
	showLogsItem.Checked = c.logs.open

	connectItem := fyne.NewMenuItem("Connect", c.startNotifier)
	connectItem.Disabled = running || !canStart

	disconnectItem := fyne.NewMenuItem("Disconnect", c.stopNotifier)
	disconnectItem.Disabled = !running

	markReadItem := fyne.NewMenuItem("Mark all read", c.markAllRead)
	markReadItem.Disabled = !running

	minTrayItem := c.trayToggleItem("Minimize to tray", c.settings.MinimizeToTray, func(v bool) {
		c.settings.MinimizeToTray = v
		c.draft.MinimizeToTray = v
		c.minimizeToTray.SetChecked(v)
	})
	startMinItem := c.trayToggleItem("Start minimized", c.settings.StartMinimized, func(v bool) {
		c.settings.StartMinimized = v
		c.draft.StartMinimized = v
		c.startMinimized.SetChecked(v)
	})

	exitItem := fyne.NewMenuItem("Exit", c.requestQuit)

	desk.SetSystemTrayMenu(fyne.NewMenu("Unpod Notifier",
		summaryItem,
		fyne.NewMenuItemSeparator(),
		openItem,
		showLogsItem,
		connectItem,
		disconnectItem,
		markReadItem,
		fyne.NewMenuItemSeparator(),
		minTrayItem,
		startMinItem,
		fyne.NewMenuItemSeparator(),
		exitItem,
	))
}

// trayToggleItem builds a checkable menu item whose toggle applies through
// both the live settings and the draft, then persists and refreshes.
func (c *controller) trayToggleItem(label string, checked bool, apply func(bool)) *fyne.MenuItem {
	item := fyne.NewMenuItem(label, func() {
		apply(!checked)
		_ = config.SaveSettings(c.settings)
		c.refreshSettingsActions()
		c.refreshTrayMenu()
	})
	item.Checked = checked
	return item
}

//go:build !headless

package gui

import (
	"context"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
	"unpod-notifier/internal/runstatus"
	"unpod-notifier/internal/runtime"
)

var (
	statusIdleColor       = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
	statusConnectingColor = color.NRGBA{R: 219, G: 167, B: 74, A: 255}
	statusPollingColor    = color.NRGBA{R: 120, G: 190, B: 255, A: 255}
	statusRunningColor    = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	statusStoppingColor   = color.NRGBA{R: 232, G: 145, B: 77, A: 255}
	statusErrorColor      = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
)

// controller owns the desktop surface: the main window, the log window, the
// tray menu, and the notifier service underneath them. All widget access
// happens on the fyne goroutine; background loops hop over via fyne.Do.
type controller struct {
	app     fyne.App
	win     fyne.Window
	version string
	logger  *logging.Logger
	bridge  *notify.DesktopBridge
	runner  *runtime.Controller

	settings config.NotifierSettings
	draft    config.NotifierSettings

	// Settings form.
	baseURL        *widget.Entry
	token          *widget.Entry
	logDir         *widget.Entry
	debugLogs      *widget.Check
	connectOnStart *sliderToggle
	minimizeToTray *sliderToggle
	startMinimized *sliderToggle
	saveSettings   *widget.Button
	cancelSettings *widget.Button

	// Overview controls.
	startButton    *widget.Button
	stopButton     *widget.Button
	markReadButton *widget.Button
	showLogsButton *widget.Button
	statusDisplay  *statusBadgeLabel
	unreadLabel    *widget.Label

	// Notification feed.
	unread      int
	feedItems   []dispatch.Notification
	feedRows    []notificationRow
	feedList    *container.Scroll
	feedRowsBox *fyne.Container
	feedEmpty   *fyne.Container
	feedNotice  *widget.Label

	logs logPane

	tips   *hoverTip
	picker *dirPicker

	// Update prompts.
	dismissedTag   string
	updatePrompted string

	cleanupOnce    sync.Once
	quitOnce       sync.Once
	bgWG           sync.WaitGroup
	unsubscribe    func()
	appCtx         context.Context
	appCancel      context.CancelFunc
	shuttingDown   bool
	confirmingQuit bool
}

func Run(rootCtx context.Context, buildVersion string, defaults config.Options) {
	uiApp := app.New()
	uiApp.Settings().SetTheme(newNotifierTheme())
	c := newController(rootCtx, uiApp, buildVersion, defaults)
	c.logger.Info("starting notifier UI", logging.Field("version", buildVersion))
	c.run()
}

// startupSettings merges saved settings under the command-line defaults:
// flags win for the connection fields, the stored file supplies the
// desktop-only preferences.
func startupSettings(defaults config.Options) (config.NotifierSettings, config.Options) {
	settings := config.SettingsFromOptions(defaults)
	if saved, err := config.LoadSettings(); err == nil {
		defaults = config.MergeOptionsWithSettings(defaults, saved)
		settings = saved
	}
	settings.BaseURL = defaults.BaseURL
	settings.Token = defaults.Token
	settings.LogDir = defaults.LogDir
	settings.AutoConnect = defaults.AutoConnect
	settings.Debug = defaults.Debug
	return settings, defaults
}

func newController(rootCtx context.Context, uiApp fyne.App, buildVersion string, defaults config.Options) *controller {
	settings, defaults := startupSettings(defaults)

	logger := logging.New(false)
	if logger == nil {
		panic("gui.newController: logging.New returned nil")
	}
	logger.SetDebugEnabled(settings.Debug)
	if err := logger.EnableFilePersistence(defaults.LogDir, 0); err != nil {
		logger.Warn("failed to enable log file persistence", logging.Field("error", err))
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	appCtx, appCancel := context.WithCancel(rootCtx)

	c := &controller{
		app:          uiApp,
		version:      buildVersion,
		settings:     settings,
		draft:        settings,
		logger:       logger,
		dismissedTag: settings.LastDismissedUpdateTag,
		appCtx:       appCtx,
		appCancel:    appCancel,
	}

	uiApp.SetIcon(notifierIconResource())
	c.win = uiApp.NewWindow(notify.BadgeTitle(0))
	c.win.SetMaster()
	c.win.Resize(fyne.NewSize(480, 420))
	c.bridge = notify.NewDesktopBridge(uiApp, c.win)
	c.runner = runtime.NewController(appCtx, c.bridge)
	c.buildUI()
	c.bindLogs()
	c.setupTray()
	c.app.Lifecycle().SetOnStopped(func() {
		c.logger.Debug("app lifecycle OnStopped hook triggered")
		c.cleanup()
	})
	return c
}

func (c *controller) run() {
	c.setRunningState(false)
	c.startFeedRefreshLoop()
	c.startSettingsWatchLoop()
	c.startUpdateCheckLoop()
	c.watchRootContext()
	c.installCloseHooks()

	c.win.Show()
	if c.settings.StartMinimized {
		c.win.Hide()
	}
	c.tryAutoConnect()
	c.app.Run()
}

// watchRootContext quits the UI when the process-level context is
// canceled, e.g. by a signal.
func (c *controller) watchRootContext() {
	go func() {
		<-c.appCtx.Done()
		fyne.Do(func() {
			if c.shuttingDown {
				return
			}
			c.logger.Info("root context canceled; shutting down notifier UI")
			c.quitApp()
		})
	}()
}

func (c *controller) installCloseHooks() {
	c.win.SetOnClosed(func() {
		c.logger.Debug("main window OnClosed hook triggered")
		if c.shuttingDown {
			c.logger.Debug("main window OnClosed hook ignored: already shutting down")
			return
		}
		c.cleanup()
	})
	c.win.SetCloseIntercept(func() {
		c.logger.Debug("main window CloseIntercept hook triggered",
			logging.Field("minimize_to_tray", c.shouldMinimizeToTrayOnClose()),
		)
		if c.shouldMinimizeToTrayOnClose() {
			c.logger.Debug("main window close intercepted: hiding to tray")
			c.win.Hide()
			return
		}
		c.logger.Debug("main window close intercepted: requesting quit")
		c.requestQuit()
	})
}

// buildUI assembles the two tabs plus the tooltip overlay. The debug check
// is created here because it lives in the log window header but belongs to
// the settings draft.
func (c *controller) buildUI() {
	c.tips = newHoverTip(func() fyne.Size {
		return c.win.Canvas().Size()
	})
	c.picker = newDirPicker(c.app, func(path string) {
		c.logDir.SetText(path)
	})

	c.debugLogs = widget.NewCheck("Debug level", func(v bool) {
		c.draft.Debug = v
		c.logger.SetDebugEnabled(v)
		c.refreshSettingsActions()
	})
	c.debugLogs.SetChecked(c.draft.Debug)
	c.logger.SetDebugEnabled(c.draft.Debug)

	c.statusDisplay = newStatusBadgeLabel(c.tips, runstatus.Idle, statusBadgeLabelOptions{})
	c.statusDisplay.SetStatus(statusIdleColor, "")
	c.unreadLabel = widget.NewLabel("No unread")

	settingsPage := c.buildSettingsForm()
	c.buildLogWindow()
	c.setStatus(runstatus.Idle, statusIdleColor)

	tabs := container.NewAppTabs(
		container.NewTabItem("Overview", tabPad(c.buildOverviewPage())),
		container.NewTabItem("Settings", tabPad(settingsPage)),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	minAnchor := canvas.NewRectangle(color.Transparent)
	minAnchor.SetMinSize(fyne.NewSize(520, 370))
	c.win.SetContent(container.NewStack(minAnchor, tabs, c.tips.layer))

	c.refreshStartAvailability()
	c.refreshNotificationRows()
	c.refreshSettingsActions()
}

// buildOverviewPage lays out the action buttons and status line above the
// notification feed.
func (c *controller) buildOverviewPage() fyne.CanvasObject {
	c.startButton = widget.NewButton("Connect", func() {
		c.startNotifier()
		c.refreshTrayMenu()
	})
	c.stopButton = widget.NewButton("Disconnect", func() {
		c.stopNotifier()
		c.refreshTrayMenu()
	})
	c.markReadButton = widget.NewButton("Mark read", c.markAllRead)
	c.showLogsButton = widget.NewButton("Show logs", func() {
		c.logs.setVisible(true)
		c.refreshTrayMenu()
	})
	c.stopButton.Disable()
	c.markReadButton.Disable()

	controlsGap := canvas.NewRectangle(color.Transparent)
	controlsGap.SetMinSize(fyne.NewSize(12, 1))
	controls := container.NewHBox(c.startButton, c.stopButton, c.markReadButton, controlsGap, c.showLogsButton)
	statusLine := container.NewHBox(widget.NewLabel("Status:"), c.statusDisplay.Object(), layout.NewSpacer(), c.unreadLabel)
	top := container.NewPadded(container.NewVBox(controls, statusLine))

	return container.NewBorder(top, nil, nil, nil, c.buildFeedPanel())
}

// tabPad gives tab pages the same double-padded inset.
func tabPad(obj fyne.CanvasObject) fyne.CanvasObject {
	return container.NewPadded(container.NewPadded(obj))
}

func (c *controller) shouldMinimizeToTrayOnClose() bool {
	if c.minimizeToTray != nil {
		return c.minimizeToTray.Checked
	}
	return c.settings.MinimizeToTray
}

func (c *controller) setStatus(text string, dotColor color.NRGBA) {
	c.statusDisplay.SetText(text)
	c.statusDisplay.SetStatus(dotColor, "")
}

func toggleRow(label string, sw *sliderToggle) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(label), sw, nil)
}

func verticalGap(height float32) fyne.CanvasObject {
	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(1, height))
	return spacer
}

func setButtonEnabled(b *widget.Button, enabled bool) {
	if b == nil {
		return
	}
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

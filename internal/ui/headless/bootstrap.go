package headless

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/runctx"
	"unpod-notifier/internal/runtime"
	headlessview "unpod-notifier/internal/ui/headless/view"
)

const (
	logChannelBufferSize          = 512
	notificationChannelBufferSize = 64
	statusChannelBufferSize       = 16
	unreadChannelBufferSize       = 16
	updateTickInterval            = 120 * time.Millisecond
	runErrorExitCode              = 1
)

func Run(rootCtx context.Context, buildVersion string, opts config.Options) {
	defer forceDisableMouseTracking()

	saved := loadSavedSettings(&opts)
	logger := newTUILogger(opts)
	logger.Info("starting notifier TUI", logging.Field("version", buildVersion))

	m := newHeadlessModel(rootCtx, buildVersion, opts, logger)
	m.dismissedTag = saved.LastDismissedUpdateTag

	zone.NewGlobal()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	m.program = program
	m.bridge.attach(program)

	result, runErr := program.Run()
	if model, ok := result.(*headlessModel); ok && model != nil {
		model.cleanup()
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(runErrorExitCode)
	}
}

// loadSavedSettings merges stored desktop settings into opts and returns the
// saved copy for fields the options struct does not carry.
func loadSavedSettings(opts *config.Options) config.NotifierSettings {
	saved, err := config.LoadSettings()
	if err != nil {
		return config.NotifierSettings{}
	}
	*opts = config.MergeOptionsWithSettings(*opts, saved)
	return saved
}

// newTUILogger builds the session logger with stderr muted: the terminal
// belongs to bubbletea, so events reach the screen through the log viewport.
func newTUILogger(opts config.Options) *logging.Logger {
	logger := logging.New(false)
	if logger == nil {
		panic("headless: logging.New returned nil")
	}
	logger.SetDebugEnabled(opts.Debug)
	if err := logger.EnableFilePersistence(opts.LogDir, 0); err != nil {
		logger.Warn("failed to enable file log persistence", logging.Field("error", err))
	}
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func forceDisableMouseTracking() {
	_, _ = os.Stdout.WriteString("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l\x1b[?1015l")
}

func newHeadlessModel(rootCtx context.Context, buildVersion string, opts config.Options, logger *logging.Logger) *headlessModel {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	runCtx, runCancel := context.WithCancel(rootCtx)

	bridge := newTUIBridge()
	defaultLogDir := ""
	if dir, err := logging.DefaultLogDirPath(); err == nil {
		defaultLogDir = dir
	}

	m := &headlessModel{
		buildVersion: buildVersion,
		pollInterval: opts.PollInterval,
		modelDeps: modelDeps{
			runner:     runtime.NewController(runCtx, bridge),
			logger:     logger,
			bridge:     bridge,
			rootCtx:    runCtx,
			rootCancel: runCancel,
		},
		modelChannels: modelChannels{
			logCh:    make(chan string, logChannelBufferSize),
			notifCh:  make(chan dispatch.Notification, notificationChannelBufferSize),
			statusCh: make(chan string, statusChannelBufferSize),
			unreadCh: make(chan int, unreadChannelBufferSize),
			updateCh: make(chan updateAvailableMsg, 2),
		},
		modelRuntime: modelRuntime{
			status: "Idle",
			kind:   statusIdle,
		},
		ui: headlessview.NewState(opts, defaultLogDir),
	}

	m.unsubscribe = logger.Subscribe(func(event logging.Event) {
		runctx.SendLatest(m.logCh, logging.FormatEventANSI(event))
	})

	return m
}

func (m *headlessModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForLog(m.logCh),
		waitForNotification(m.notifCh),
		waitForStatus(m.statusCh),
		waitForUnread(m.unreadCh),
		waitForUpdate(m.updateCh),
		tickCmd(),
		m.startUpdateCheckerCmd(),
	}
	if m.ui.AutoConn && m.canConnect() {
		cmds = append(cmds, m.startNotifierCmd(true))
	}
	return tea.Batch(cmds...)
}

// recvCmd turns one channel receive into a bubbletea message, mapping a
// closed channel to nil so the re-arm chain ends quietly during shutdown.
func recvCmd[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return recvCmd(ch, func(line string) tea.Msg { return logMsg(line) })
}

func waitForNotification(ch <-chan dispatch.Notification) tea.Cmd {
	return recvCmd(ch, func(n dispatch.Notification) tea.Msg { return notificationMsg(n) })
}

func waitForStatus(ch <-chan string) tea.Cmd {
	return recvCmd(ch, func(status string) tea.Msg { return statusMsg(status) })
}

func waitForUnread(ch <-chan int) tea.Cmd {
	return recvCmd(ch, func(count int) tea.Msg { return unreadMsg(count) })
}

func waitForUpdate(ch <-chan updateAvailableMsg) tea.Cmd {
	return recvCmd(ch, func(update updateAvailableMsg) tea.Msg { return update })
}

func tickCmd() tea.Cmd {
	return tea.Tick(updateTickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

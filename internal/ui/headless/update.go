package headless

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"unpod-notifier/internal/app"
	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
	"unpod-notifier/internal/release"
	"unpod-notifier/internal/runstatus"
	"unpod-notifier/internal/ui/headless/feed"
	headlessview "unpod-notifier/internal/ui/headless/view"
)

// feedHistoryLimit bounds the model-side copy of the delivery history.
const feedHistoryLimit = 50

func (m *headlessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		if _, ok := msg.(quitNowMsg); ok {
			m.cleanup()
			return m, tea.Quit
		}
		return m, nil
	}

	if m.ui.FilePickerOpen {
		if ws, ok := msg.(tea.WindowSizeMsg); ok {
			m.applyWindowSize(ws)
			m.ui.ResizeFilePicker()
		}
		return m.updateFilePickerMsg(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.applyWindowSize(msg)
		return m, nil
	case logMsg:
		m.appendLogLine(string(msg))
		return m, waitForLog(m.logCh)
	case notificationMsg:
		m.recordNotification(dispatch.Notification(msg))
		return m, waitForNotification(m.notifCh)
	case unreadMsg:
		m.unread = int(msg)
		m.refreshFeedRows()
		return m, waitForUnread(m.unreadCh)
	case badgeMsg:
		return m, tea.SetWindowTitle(notify.BadgeTitle(int(msg)))
	case updateAvailableMsg:
		m.offerUpdate(msg)
		return m, waitForUpdate(m.updateCh)
	case openReleaseResultMsg:
		if msg.err != nil {
			m.ui.ErrorModalText = "Failed to open release page: " + msg.err.Error()
			m.logger.Warn("failed to open release url", logging.Field("url", msg.url), logging.Field("error", msg.err))
		}
		return m, nil
	case statusMsg:
		m.applyRuntimeStatus(string(msg))
		return m, waitForStatus(m.statusCh)
	case runDoneMsg:
		m.applyRunExit(msg.err)
		return m, nil
	case startResultMsg:
		m.applyStartResult(msg.err)
		return m, nil
	case markReadResultMsg:
		if msg.err != nil {
			m.ui.ErrorModalText = "Couldn't mark notifications read: " + msg.err.Error()
			m.logger.Warn("mark all read failed", logging.Field("error", msg.err))
		}
		return m, nil
	case tickMsg:
		m.ui = m.ui.WithTick()
		if time.Since(m.lastFeedRefresh) >= feed.RefreshRate {
			m.refreshFeedRows()
		}
		return m, tickCmd()
	case tea.MouseMsg:
		return m.updateMouseMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	next, cmd, ok := headlessview.ReduceInput(m.ui, msg)
	if ok {
		m.ui = next
		return m, cmd
	}
	return m, nil
}

func (m *headlessModel) applyWindowSize(msg tea.WindowSizeMsg) {
	m.ui = m.ui.WithWindowSize(msg.Width, msg.Height)
	m.ui.ResizeLogs(nonLogLayoutReserveMin, minLogPanelHeight)
	headlessview.ResizePaneViewports(&m.ui, m.runtimeView())
}

func (m *headlessModel) appendLogLine(line string) {
	wasAtBottom := m.ui.LogView.AtBottom()
	m.ui.LogText = appendLogLinesWithLimit(m.ui.LogText, line, headlessLogLineLimit)
	m.ui.SetLogViewportContent()
	if m.ui.FollowLogs || wasAtBottom {
		m.ui.LogView.GotoBottom()
		m.ui.FollowLogs = true
	}
}

func (m *headlessModel) recordNotification(n dispatch.Notification) {
	m.notifications = append([]dispatch.Notification{n}, m.notifications...)
	if len(m.notifications) > feedHistoryLimit {
		m.notifications = m.notifications[:feedHistoryLimit]
	}
	m.refreshFeedRows()
}

// offerUpdate opens the update modal unless the tag has already been offered
// or dismissed.
func (m *headlessModel) offerUpdate(msg updateAvailableMsg) {
	tag := strings.TrimSpace(msg.tag)
	if tag == "" || m.shouldSuppressUpdatePrompt(tag) {
		return
	}
	m.updatePrompted = tag
	m.ui.UpdateLatestTag = tag
	m.ui.UpdateReleaseURL = strings.TrimSpace(msg.url)
	m.ui.UpdateModalChoice = headlessview.UpdateChoiceLater
	m.ui.UpdateModalOpen = true
}

func (m *headlessModel) applyRunExit(runErr error) {
	m.running = false
	m.connecting = false
	if runErr != nil {
		if errors.Is(runErr, app.ErrAuthenticationFailed) {
			m.status = runstatus.DisconnectedAuth
		} else {
			m.status = runstatus.DisconnectedError
		}
		m.kind = statusError
		m.ui.ErrorModalText = runErr.Error()
		return
	}
	m.status = runstatus.Idle
	m.kind = statusIdle
	m.ui.ErrorModalText = ""
}

func (m *headlessModel) applyStartResult(startErr error) {
	m.connecting = false
	if startErr != nil {
		m.status = runstatus.DisconnectedError
		m.kind = statusError
		m.ui.ErrorModalText = startErr.Error()
		return
	}
	// The exit hook may already have fired for a short-lived run, so ask
	// the controller instead of assuming the service is still up.
	m.running = m.runner.IsRunning()
	if m.running && (strings.TrimSpace(m.status) == "" || strings.EqualFold(m.status, runstatus.Connecting)) {
		m.status = "Starting"
		m.kind = statusConnecting
	}
	m.ui.ErrorModalText = ""
}

func (m *headlessModel) updateMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	wasOpen := m.ui.UpdateModalOpen
	offeredTag := strings.TrimSpace(m.ui.UpdateLatestTag)
	next, cmd, effect := headlessview.ReduceMouse(m.ui, msg)
	m.ui = next
	m.noteUpdateModalOutcome(wasOpen, offeredTag, effect == headlessview.MouseEffectUpdateAccept)
	switch effect {
	case headlessview.MouseEffectActivateFocused:
		return m, tea.Batch(cmd, m.activateFocusedControl())
	case headlessview.MouseEffectConfirmQuitAccept:
		return m, tea.Batch(cmd, m.beginQuitCmd())
	case headlessview.MouseEffectUpdateAccept:
		return m, tea.Batch(cmd, m.openLatestReleaseCmd())
	}
	return m, cmd
}

func (m *headlessModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	wasOpen := m.ui.UpdateModalOpen
	offeredTag := strings.TrimSpace(m.ui.UpdateLatestTag)
	next, effect := headlessview.ReduceKey(m.ui, msg)
	m.ui = next
	m.noteUpdateModalOutcome(wasOpen, offeredTag, effect == headlessview.KeyEffectUpdateAccept)
	switch effect {
	case headlessview.KeyEffectRequestQuit:
		return m, m.requestQuitCmd()
	case headlessview.KeyEffectSaveSettings:
		return m, m.saveSettingsDraft()
	case headlessview.KeyEffectMarkAllRead:
		return m, m.markAllReadFromUI()
	case headlessview.KeyEffectActivateFocused:
		return m, m.activateFocusedControl()
	case headlessview.KeyEffectConfirmQuitAccept:
		return m, m.beginQuitCmd()
	case headlessview.KeyEffectUpdateAccept:
		return m, m.openLatestReleaseCmd()
	default:
		nextState, cmd, ok := headlessview.ReduceInput(m.ui, msg)
		if ok {
			m.ui = nextState
			return m, cmd
		}
		return m, nil
	}
}

// noteUpdateModalOutcome records a dismissal when a reducer closed the update
// modal without the user accepting it.
func (m *headlessModel) noteUpdateModalOutcome(wasOpen bool, offeredTag string, accepted bool) {
	if wasOpen && !m.ui.UpdateModalOpen && !accepted {
		m.rememberDismissedUpdateTag(offeredTag)
	}
}

func (m *headlessModel) activateFocusedControl() tea.Cmd {
	next, effect := headlessview.ReduceActivate(m.ui, m.canConnect(), m.running, m.connecting)
	m.ui = next
	switch effect {
	case headlessview.ActivateEffectStartNotifier:
		return m.startNotifierCmd(false)
	case headlessview.ActivateEffectStopNotifier:
		m.runner.Stop()
		m.status = "Stopping..."
		m.kind = statusStopping
		headlessview.ResizePaneViewports(&m.ui, m.runtimeView())
		return nil
	case headlessview.ActivateEffectMarkAllRead:
		return m.markAllReadCmd()
	case headlessview.ActivateEffectRequestQuit:
		return m.requestQuitCmd()
	case headlessview.ActivateEffectDebugLevelChanged:
		m.logger.SetDebugEnabled(m.ui.DebugOn)
		return nil
	case headlessview.ActivateEffectOpenBrowse:
		return m.openBrowseCmd()
	case headlessview.ActivateEffectSaveSettings:
		return m.saveSettingsDraft()
	default:
		return nil
	}
}

func (m *headlessModel) markAllReadFromUI() tea.Cmd {
	if !m.running {
		return nil
	}
	return m.markAllReadCmd()
}

func (m *headlessModel) openBrowseCmd() tea.Cmd {
	m.ui.FilePicker.CurrentDirectory = pickerStartDir(m.ui.Inputs[2].Value())
	m.ui.FilePicker.Path = ""
	m.ui.FilePickerOpen = true
	m.ui.ResizeFilePicker()
	return m.ui.FilePicker.Init()
}

// pickerStartDir resolves where the directory picker opens: the configured
// log dir when it points at a real directory, the default log location
// otherwise, and the working directory as the last resort.
func pickerStartDir(configured string) string {
	dir := strings.TrimSpace(configured)
	if dir == "" {
		if fallback, err := logging.DefaultLogDirPath(); err == nil {
			dir = fallback
		}
	}
	dir = absOrSelf(dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = absOrSelf(".")
	}
	return dir
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (m *headlessModel) requestQuitCmd() tea.Cmd {
	if m.running || m.connecting {
		m.ui.ConfirmQuit = true
		m.ui.ConfirmQuitChoice = headlessview.ConfirmQuitChoiceCancel
		return nil
	}
	return m.beginQuitCmd()
}

func (m *headlessModel) beginQuitCmd() tea.Cmd {
	m.quitting = true
	m.ui.ConfirmQuit = false
	return quitProgramCmd()
}

// quitProgramCmd turns mouse reporting off and lets the terminal drain the
// trailing mouse escape bytes before the program exits.
func quitProgramCmd() tea.Cmd {
	return tea.Sequence(func() tea.Msg {
		return tea.DisableMouse()
	}, func() tea.Msg {
		time.Sleep(120 * time.Millisecond)
		return nil
	}, func() tea.Msg {
		return quitNowMsg{}
	})
}

func appendLogLinesWithLimit(current string, next string, limit int) string {
	if limit <= 0 {
		return ""
	}
	lines := logging.SplitLines(current)
	lines = append(lines, logging.SplitLines(next)...)
	if len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	return strings.Join(lines, "\n")
}

func (m *headlessModel) updateFilePickerMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			m.ui.FilePickerOpen = false
			return m, m.requestQuitCmd()
		case "esc":
			m.ui.FilePickerOpen = false
			return m, nil
		case "left", "backspace":
			parent := filepath.Dir(m.ui.FilePicker.CurrentDirectory)
			if parent == "" || parent == m.ui.FilePicker.CurrentDirectory {
				return m, nil
			}
			m.ui.FilePicker.CurrentDirectory = parent
			return m, m.ui.FilePicker.Init()
		case "enter":
			return m.selectCurrentFilePickerDir()
		}
	}
	var cmd tea.Cmd
	m.ui.FilePicker, cmd = m.ui.FilePicker.Update(msg)
	if ok, path := m.ui.FilePicker.DidSelectFile(msg); ok {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			path = filepath.Dir(path)
		}
		m.ui = m.ui.WithSelectedLogDir(path)
		return m, nil
	}
	return m, cmd
}

func (m *headlessModel) selectCurrentFilePickerDir() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.ui.FilePicker.CurrentDirectory)
	if path == "" {
		path = "."
	}
	m.ui = m.ui.WithSelectedLogDir(path)
	return m, nil
}

// saveSettingsDraft persists the draft while preserving the desktop-only
// settings and the dismissed-update marker already on disk.
func (m *headlessModel) saveSettingsDraft() tea.Cmd {
	if !m.ui.SettingsDirty {
		return nil
	}

	m.ui = m.ui.WithDraftFromControls()
	next := m.ui.WithSaveCommitted()

	settings := config.SettingsFromOptions(m.currentOptions())
	if saved, err := config.LoadSettings(); err == nil {
		settings.MinimizeToTray = saved.MinimizeToTray
		settings.StartMinimized = saved.StartMinimized
		settings.LastDismissedUpdateTag = saved.LastDismissedUpdateTag
	} else {
		settings.LastDismissedUpdateTag = m.dismissedTag
	}
	if err := config.SaveSettings(settings); err != nil {
		m.ui.ErrorModalText = err.Error()
		return nil
	}

	m.ui = next
	return nil
}

// shouldSuppressUpdatePrompt quiets repeat offers: a tag already
// prompted this run, or one no newer than what the user dismissed.
func (m *headlessModel) shouldSuppressUpdatePrompt(tag string) bool {
	if m.updatePrompted == tag {
		return true
	}
	dismissed := strings.TrimSpace(m.dismissedTag)
	if dismissed == "" {
		return false
	}
	return !release.Supersedes(tag, dismissed)
}

func (m *headlessModel) rememberDismissedUpdateTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	m.dismissedTag = tag
	m.updatePrompted = tag

	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.SettingsFromOptions(m.currentOptions())
	}
	settings.LastDismissedUpdateTag = tag
	if saveErr := config.SaveSettings(settings); saveErr != nil {
		m.logger.Warn("failed to persist dismissed update tag", logging.Field("tag", tag), logging.Field("error", saveErr))
	}
}

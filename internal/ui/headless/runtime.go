package headless

import (
	"context"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/runctx"
	"unpod-notifier/internal/runstatus"
	"unpod-notifier/internal/runtime"
	"unpod-notifier/internal/ui/headless/feed"
)

const markAllReadTimeout = 10 * time.Second

func (m *headlessModel) currentOptions() config.Options {
	return config.Options{
		BaseURL:      strings.TrimSpace(m.ui.Inputs[0].Value()),
		Token:        strings.TrimSpace(m.ui.Inputs[1].Value()),
		AutoConnect:  m.ui.AutoConn,
		Rainbow:      m.ui.Rainbow,
		LogDir:       strings.TrimSpace(m.ui.Inputs[2].Value()),
		PollInterval: m.pollInterval,
		Debug:        m.ui.DebugOn,
	}
}

func (m *headlessModel) canConnect() bool {
	return strings.TrimSpace(m.ui.Inputs[0].Value()) != "" && strings.TrimSpace(m.ui.Inputs[1].Value()) != ""
}

func (m *headlessModel) startNotifierCmd(auto bool) tea.Cmd {
	opts := m.currentOptions()

	// A blank log dir falls back to the default cache location, so only a
	// non-blank value has to point at a real directory.
	if dir := strings.TrimSpace(opts.LogDir); dir != "" {
		info, statErr := os.Stat(dir)
		if statErr != nil {
			m.ui.ErrorModalText = m.startErrorText(auto, "Log directory is not accessible: "+statErr.Error())
			return nil
		}
		if !info.IsDir() {
			m.ui.ErrorModalText = m.startErrorText(auto, "Log directory is not a directory.")
			return nil
		}
	}

	if err := config.ValidateRequired(opts); err != nil {
		m.ui.ErrorModalText = m.startErrorText(auto, err.Error())
		return nil
	}

	m.connecting = true
	m.status = runstatus.Connecting
	m.kind = statusConnecting
	m.ui.ErrorModalText = ""

	return func() tea.Msg {
		err := m.runner.Start(opts, m.logger, runtime.StartHooks{
			OnStatus:       m.onRuntimeStatus,
			OnUnread:       m.onRuntimeUnread,
			OnNotification: m.onRuntimeNotification,
			OnExit:         m.onRuntimeExit,
		})

		return startResultMsg{err: err}
	}
}

func (m *headlessModel) markAllReadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rootCtx, markAllReadTimeout)
		defer cancel()

		return markReadResultMsg{err: m.runner.MarkAllRead(ctx)}
	}
}

// Runtime hooks fire on runtime goroutines; each feeds its channel with
// drop-oldest semantics so a stalled Update loop never blocks the app.

func (m *headlessModel) onRuntimeStatus(status string) {
	runctx.SendLatest(m.statusCh, status)
}

func (m *headlessModel) onRuntimeUnread(count int) {
	runctx.SendLatest(m.unreadCh, count)
}

func (m *headlessModel) onRuntimeNotification(n dispatch.Notification) {
	runctx.SendLatest(m.notifCh, n)
}

func (m *headlessModel) onRuntimeExit(runErr error) {
	if m.program == nil {
		return
	}

	m.program.Send(runDoneMsg{err: runErr})
}

func (m *headlessModel) applyRuntimeStatus(status string) {
	switch runstatus.Key(status) {
	case runstatus.KeyConnecting:
		m.status = runstatus.Connecting
		m.kind = statusConnecting
		m.connecting = true
	case runstatus.KeyConnected:
		m.status = runstatus.Connected
		m.kind = statusConnected
		m.running = true
		m.connecting = false
		m.refreshFeedRows()
	case runstatus.KeyReconnecting:
		m.status = runstatus.Reconnecting
		m.kind = statusConnecting
		m.connecting = true
	case runstatus.KeyRealtimeOff:
		m.status = runstatus.RealtimeOff
		m.kind = statusPolling
		m.running = true
		m.connecting = false
		m.refreshFeedRows()
	case runstatus.KeyPolling:
		m.status = runstatus.Polling
		m.kind = statusPolling
		m.running = true
		m.connecting = false
		m.refreshFeedRows()
	case runstatus.KeyDisconnectedAuth:
		m.status = runstatus.DisconnectedAuth
		m.kind = statusError
		m.connecting = false
	case runstatus.KeyDisconnectedError:
		// The service keeps going in polling fallback after this, so only
		// the exit hook may clear the running flag.
		m.status = runstatus.DisconnectedError
		m.kind = statusError
		m.connecting = false
	case runstatus.KeyStopped:
		m.status = runstatus.Stopped
		m.kind = statusIdle
		m.running = false
		m.connecting = false
	case runstatus.KeyIdle:
		m.status = runstatus.Idle
		m.kind = statusIdle
		m.connecting = false
	default:
		m.status = status
	}
}

func (m *headlessModel) startErrorText(auto bool, message string) string {
	if !auto {
		return message
	}

	return "Couldn't auto-connect due to: " + message
}

// refreshFeedRows re-reads delivery history from the running service and
// recomputes display rows. While stopped the last known list keeps aging in
// place.
func (m *headlessModel) refreshFeedRows() {
	if m.running {
		if recent := m.runner.Recent(); recent != nil {
			m.notifications = recent
		}
	}
	m.lastFeedRefresh = time.Now()
	m.feedRows, m.feedDetail = feed.Compute(m.notifications, m.unread, m.lastFeedRefresh)
}

func (m *headlessModel) cleanup() {
	m.cleanupOnce.Do(func() {
		m.logger.Debug("headless cleanup started")

		if m.rootCancel != nil {
			m.logger.Debug("canceling headless root context")
			m.rootCancel()
		}

		if m.unsubscribe != nil {
			m.logger.Debug("unsubscribing headless log listener")
			m.unsubscribe()
		}

		m.logger.Debug("stopping runtime controller")
		m.runner.Stop()
		m.logger.Debug("runtime controller stop requested")

		m.logger.Debug("headless cleanup complete")
	})
}

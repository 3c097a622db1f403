//go:build !headless

package gui

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"unpod-notifier/internal/app"
	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/runctx"
	"unpod-notifier/internal/runstatus"
	"unpod-notifier/internal/runtime"
)

const markReadTimeout = 10 * time.Second

func waitGroupWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (c *controller) startBackgroundLoop(name string, fn func(context.Context)) {
	c.bgWG.Go(func() {
		c.logger.Debug("background loop started", logging.Field("loop", name))
		fn(c.appCtx)
		c.logger.Debug("background loop stopped", logging.Field("loop", name))
	})
}

func (c *controller) bindLogs() {
	logCh := make(chan string, 256)
	c.unsubscribe = c.logger.Subscribe(func(event logging.Event) {
		runctx.SendLatest(logCh, logging.FormatEventANSI(event))
	})

	c.startBackgroundLoop("gui log pump", func(ctx context.Context) {
		for {
			line, ok := runctx.RecvOrDone(ctx, "GUI log pump", c.logger, logCh)
			if !ok {
				return
			}
			text := line
			fyne.Do(func() {
				c.logs.append(text)
			})
		}
	})
}

func (c *controller) currentOptions() config.Options {
	debugEnabled := false
	if c.debugLogs != nil {
		debugEnabled = c.debugLogs.Checked
	}
	return config.Options{
		BaseURL:      strings.TrimSpace(c.baseURL.Text),
		Token:        strings.TrimSpace(c.token.Text),
		LogDir:       strings.TrimSpace(c.logDir.Text),
		PollInterval: c.settings.PollIntervalSeconds,
		Debug:        debugEnabled,
	}
}

func (c *controller) startNotifier() {
	c.startNotifierWithContext(false)
}

func (c *controller) startNotifierWithContext(auto bool) {
	c.setStatus(runstatus.Connecting, statusConnectingColor)
	opts := c.currentOptions()
	if err := validateStartOptions(opts); err != nil {
		c.failStart(auto, err.Error())
		return
	}
	if err := c.runner.Start(opts, c.logger, c.startHooks()); err != nil {
		c.failStart(auto, err.Error())
		return
	}
	c.setRunningState(true)
	c.setStatus("Starting", statusConnectingColor)
}

func validateStartOptions(opts config.Options) error {
	// A blank log dir falls back to the default cache location, so only a
	// non-blank value has to point at a real directory.
	if dir := strings.TrimSpace(opts.LogDir); dir != "" {
		info, statErr := os.Stat(dir)
		if statErr != nil {
			return errors.New("log directory is not accessible: " + statErr.Error())
		}
		if !info.IsDir() {
			return errors.New("log path is not a directory")
		}
	}
	return config.ValidateRequired(opts)
}

func (c *controller) failStart(auto bool, message string) {
	c.setStatus(runstatus.DisconnectedError, statusErrorColor)
	if auto {
		message = "Couldn't auto-connect due to: " + message
	}
	dialog.ShowError(errors.New(message), c.win)
}

func (c *controller) startHooks() runtime.StartHooks {
	return runtime.StartHooks{
		OnStatus: func(status string) {
			fyne.Do(func() {
				c.applyRuntimeStatus(status)
			})
		},
		OnUnread:       c.onUnreadChanged,
		OnNotification: c.onNotificationDelivered,
		OnExit:         c.onServiceExit,
	}
}

func (c *controller) applyRuntimeStatus(status string) {
	switch runstatus.Key(status) {
	case runstatus.KeyConnecting:
		c.setStatus(runstatus.Connecting, statusConnectingColor)
	case runstatus.KeyConnected:
		c.setStatus(runstatus.Connected, statusRunningColor)
		c.refreshNotificationRows()
	case runstatus.KeyReconnecting:
		c.setStatus(runstatus.Reconnecting, statusConnectingColor)
	case runstatus.KeyRealtimeOff, runstatus.KeyPolling:
		c.setStatus(runstatus.Polling, statusPollingColor)
		c.refreshNotificationRows()
	case runstatus.KeyDisconnectedAuth:
		c.setStatus(runstatus.DisconnectedAuth, statusErrorColor)
	case runstatus.KeyDisconnectedError:
		// The service keeps going in polling fallback after this, so only
		// the exit hook may flip the running state.
		c.setStatus(runstatus.DisconnectedError, statusErrorColor)
	case runstatus.KeyStopped:
		c.setStatus(runstatus.Stopped, statusIdleColor)
	default:
		c.setStatus(status, statusIdleColor)
	}
}

func (c *controller) onUnreadChanged(count int) {
	fyne.Do(func() {
		c.unread = count
		c.refreshUnreadDisplays()
		if !c.shuttingDown {
			c.refreshTrayMenu()
		}
	})
}

func (c *controller) onNotificationDelivered(n dispatch.Notification) {
	fyne.Do(func() {
		c.feedItems = append([]dispatch.Notification{n}, c.feedItems...)
		if len(c.feedItems) > feedHistoryLimit {
			c.feedItems = c.feedItems[:feedHistoryLimit]
		}
		c.refreshNotificationRows()
	})
}

func (c *controller) onServiceExit(runErr error) {
	fyne.Do(func() {
		c.setRunningState(false)
		if !c.shuttingDown {
			c.refreshTrayMenu()
		}
		if runErr != nil {
			if errors.Is(runErr, app.ErrAuthenticationFailed) {
				c.setStatus(runstatus.DisconnectedAuth, statusErrorColor)
			} else {
				c.setStatus(runstatus.DisconnectedError, statusErrorColor)
			}
			dialog.ShowError(runErr, c.win)
			return
		}
		c.setStatus(runstatus.Idle, statusIdleColor)
	})
}

// markAllRead clears the unread state server-side off the UI goroutine,
// holding the button disabled until the call settles.
func (c *controller) markAllRead() {
	if !c.runner.IsRunning() {
		return
	}
	c.markReadButton.Disable()
	go func() {
		ctx, cancel := context.WithTimeout(c.appCtx, markReadTimeout)
		defer cancel()
		err := c.runner.MarkAllRead(ctx)
		fyne.Do(func() {
			if c.runner.IsRunning() {
				c.markReadButton.Enable()
			}
			if err != nil {
				c.logger.Warn("mark all read failed", logging.Field("error", err.Error()))
				dialog.ShowError(errors.New("couldn't mark notifications read: "+err.Error()), c.win)
				return
			}
			c.refreshNotificationRows()
		})
	}()
}

func (c *controller) stopNotifier() {
	if c.runner.IsRunning() {
		c.setStatus("Stopping", statusStoppingColor)
	}
	c.runner.Stop()
}

func (c *controller) refreshStartAvailability() {
	if c.runner.IsRunning() {
		return
	}
	ready := strings.TrimSpace(c.baseURL.Text) != "" && strings.TrimSpace(c.token.Text) != ""
	setButtonEnabled(c.startButton, ready)
}

func (c *controller) tryAutoConnect() {
	if !c.settings.AutoConnect || c.runner.IsRunning() {
		return
	}
	if strings.TrimSpace(c.baseURL.Text) == "" || strings.TrimSpace(c.token.Text) == "" {
		return
	}
	fyne.Do(func() {
		c.startNotifierWithContext(true)
		c.refreshTrayMenu()
	})
}

func (c *controller) setRunningState(running bool) {
	setButtonEnabled(c.stopButton, running)
	setButtonEnabled(c.markReadButton, running)
	if running {
		c.startButton.Disable()
	} else {
		c.refreshStartAvailability()
	}
	c.refreshFeedPlaceholder()
}

func (c *controller) cleanup() {
	c.cleanupOnce.Do(func() {
		c.shuttingDown = true
		c.logger.Debug("gui cleanup started")
		if c.appCancel != nil {
			c.logger.Debug("canceling GUI root context")
			c.appCancel()
		}
		if c.unsubscribe != nil {
			c.logger.Debug("unsubscribing GUI log listener")
			c.unsubscribe()
		}
		c.logger.Debug("waiting for GUI background loops to stop")
		if ok := waitGroupWithTimeout(&c.bgWG, 2*time.Second); !ok {
			c.logger.Warn("GUI background loops did not stop within timeout")
		}
		c.logger.Debug("stopping runtime controller")
		if ok := c.runner.StopAndWait(3 * time.Second); !ok {
			c.logger.Warn("runtime controller did not stop within timeout")
		} else {
			c.logger.Debug("runtime controller stopped")
		}
		c.logger.Debug("gui cleanup complete")
	})
}

func (c *controller) quitApp() {
	c.quitOnce.Do(func() {
		c.logger.Debug("quit requested")
		c.cleanup()
		c.logger.Debug("calling fyne app quit")
		c.app.Quit()
	})
}

func (c *controller) requestQuit() {
	if c.shuttingDown {
		return
	}
	if !c.runner.IsRunning() {
		c.quitApp()
		return
	}
	if c.confirmingQuit {
		return
	}
	c.confirmingQuit = true
	dialog.ShowConfirm(
		"Quit Unpod Notifier?",
		"This will stop the notifier connection.",
		func(ok bool) {
			c.confirmingQuit = false
			if !ok {
				return
			}
			c.quitApp()
		},
		c.win,
	)
}

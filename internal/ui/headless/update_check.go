package headless

import (
	"context"
	"os/exec"
	goruntime "runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"unpod-notifier/internal/release"
	"unpod-notifier/internal/runctx"
)

func (m *headlessModel) startUpdateCheckerCmd() tea.Cmd {
	return func() tea.Msg {
		go m.runUpdateCheckLoop()
		return nil
	}
}

func (m *headlessModel) runUpdateCheckLoop() {
	ctx := m.rootCtx
	if ctx == nil {
		ctx = context.Background()
	}
	release.Watch(ctx, m.logger, m.buildVersion, func(latest release.Release) {
		// Coalesce offers the UI has not drained yet; only the newest
		// one matters.
		runctx.SendLatest(m.updateCh, updateAvailableMsg{
			tag: strings.TrimSpace(latest.TagName),
			url: strings.TrimSpace(latest.HTMLURL),
		})
	})
}

func (m *headlessModel) openLatestReleaseCmd() tea.Cmd {
	dest := strings.TrimSpace(m.ui.UpdateReleaseURL)
	if dest == "" {
		dest = release.PageURL
	}
	return func() tea.Msg {
		return openReleaseResultMsg{
			url: dest,
			err: openExternalURL(dest),
		}
	}
}

func openExternalURL(rawURL string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}

//go:build !headless

package gui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/release"
)

func (c *controller) startUpdateCheckLoop() {
	c.startBackgroundLoop("update checker", func(ctx context.Context) {
		release.Watch(ctx, c.logger, c.version, func(latest release.Release) {
			fyne.Do(func() {
				c.promptForUpdate(latest)
			})
		})
	})
}

func (c *controller) promptForUpdate(latest release.Release) {
	tag := strings.TrimSpace(latest.TagName)
	if tag == "" || c.shouldSuppressUpdatePrompt(tag) {
		return
	}
	c.updatePrompted = tag

	dest := strings.TrimSpace(latest.HTMLURL)
	if dest == "" {
		dest = release.PageURL
	}
	dialog.ShowConfirm(
		"Update Available",
		fmt.Sprintf("A newer notifier version is available (%s). Current version is %s.\n\nOpen the releases page?", tag, c.version),
		func(ok bool) {
			if !ok {
				c.rememberDismissedUpdateTag(tag)
				return
			}
			u, err := url.Parse(dest)
			if err != nil {
				c.logger.Warn("failed to parse release url", logging.Field("url", dest), logging.Field("error", err))
				return
			}
			if err := c.app.OpenURL(u); err != nil {
				c.logger.Warn("failed to open release url", logging.Field("url", dest), logging.Field("error", err))
			}
		},
		c.win,
	)
}

// shouldSuppressUpdatePrompt quiets repeat offers: a tag already
// prompted this run, or one no newer than what the user dismissed.
func (c *controller) shouldSuppressUpdatePrompt(tag string) bool {
	if c.updatePrompted == tag {
		return true
	}
	dismissed := strings.TrimSpace(c.dismissedTag)
	if dismissed == "" {
		return false
	}
	return !release.Supersedes(tag, dismissed)
}

func (c *controller) rememberDismissedUpdateTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	c.dismissedTag = tag
	c.updatePrompted = tag
	c.settings.LastDismissedUpdateTag = tag
	c.draft.LastDismissedUpdateTag = tag
	if err := config.SaveSettings(c.settings); err != nil {
		c.logger.Warn("failed to persist dismissed update tag", logging.Field("tag", tag), logging.Field("error", err))
	}
}

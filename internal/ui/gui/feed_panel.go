//go:build !headless

package gui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/dispatch"
)

var (
	feedFreshColor  = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	feedRecentColor = color.NRGBA{R: 219, G: 167, B: 74, A: 255}
	feedOlderColor  = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
)

const (
	feedFreshFor     = 10 * time.Minute
	feedRecentFor    = time.Hour
	feedRefreshRate  = 30 * time.Second
	feedHistoryLimit = 50
)

// notificationRow is one rendered feed entry: title text, an age-coded dot
// color, and the hover tooltip body.
type notificationRow struct {
	Title   string
	Color   color.NRGBA
	Tooltip string
}

func (c *controller) buildFeedPanel() fyne.CanvasObject {
	c.feedRowsBox = container.NewVBox()
	c.feedList = container.NewVScroll(c.feedRowsBox)
	c.feedNotice = widget.NewLabel("Not connected")
	c.feedNotice.Alignment = fyne.TextAlignCenter
	c.feedEmpty = container.NewVBox(
		layout.NewSpacer(),
		container.NewCenter(c.feedNotice),
		layout.NewSpacer(),
	)
	feedStack := container.NewMax(c.feedList, c.feedEmpty)
	return container.NewPadded(container.NewBorder(
		widget.NewLabel("Recent Notifications"),
		nil,
		nil,
		nil,
		feedStack,
	))
}

// startFeedRefreshLoop re-ages the feed rows periodically so dot colors and
// tooltips stay honest between deliveries.
func (c *controller) startFeedRefreshLoop() {
	c.startBackgroundLoop("feed refresh", func(ctx context.Context) {
		ticker := time.NewTicker(feedRefreshRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fyne.Do(c.refreshNotificationRows)
			}
		}
	})
}

// refreshNotificationRows re-reads delivery history from the running service
// and rebuilds the feed rows. While stopped the last known list keeps aging
// in place.
func (c *controller) refreshNotificationRows() {
	if c.runner != nil && c.runner.IsRunning() {
		if items := c.runner.Recent(); items != nil {
			c.feedItems = items
		}
	}
	now := time.Now()
	rows := make([]notificationRow, 0, len(c.feedItems))
	for _, item := range c.feedItems {
		rows = append(rows, buildNotificationRow(item, now))
	}
	c.feedRows = rows
	c.rebuildFeedRows()
	c.refreshFeedPlaceholder()
}

func buildNotificationRow(n dispatch.Notification, now time.Time) notificationRow {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = strings.TrimSpace(n.Body)
	}
	if title == "" {
		title = "(untitled)"
	}
	row := notificationRow{Title: title, Color: feedOlderColor}
	tip := ""
	if !n.Received.IsZero() {
		age := max(now.Sub(n.Received), 0)
		switch {
		case age <= feedFreshFor:
			row.Color = feedFreshColor
		case age <= feedRecentFor:
			row.Color = feedRecentColor
		}
		tip = fmt.Sprintf("Received %s ago.", age.Round(time.Second))
	}
	if body := strings.TrimSpace(n.Body); body != "" && body != title {
		if tip != "" {
			tip = body + "\n" + tip
		} else {
			tip = body
		}
	}
	row.Tooltip = tip
	return row
}

func (c *controller) rebuildFeedRows() {
	if c.feedRowsBox == nil {
		return
	}
	rows := make([]fyne.CanvasObject, 0, len(c.feedRows))
	for _, item := range c.feedRows {
		row := newStatusBadgeLabel(c.tips, item.Title, statusBadgeLabelOptions{})
		row.SetStatus(item.Color, item.Tooltip)
		row.Label().Truncation = fyne.TextTruncateEllipsis
		row.Label().Wrapping = fyne.TextWrapOff
		rows = append(rows, row.Object())
	}
	c.feedRowsBox.Objects = rows
	c.feedRowsBox.Refresh()
}

// refreshFeedPlaceholder swaps between the scrollable row list and the
// empty-state notice.
func (c *controller) refreshFeedPlaceholder() {
	if c.feedList == nil || c.feedRowsBox == nil || c.feedEmpty == nil || c.feedNotice == nil {
		return
	}
	if len(c.feedRows) > 0 {
		c.feedEmpty.Hide()
		c.feedList.Show()
		return
	}
	if c.runner != nil && c.runner.IsRunning() {
		c.feedNotice.SetText("No notifications yet")
	} else {
		c.feedNotice.SetText("Not connected")
	}
	c.feedList.Hide()
	c.feedEmpty.Show()
}

func (c *controller) refreshUnreadDisplays() {
	if c.unreadLabel == nil {
		return
	}
	if c.unread > 0 {
		c.unreadLabel.SetText(fmt.Sprintf("%d unread", c.unread))
	} else {
		c.unreadLabel.SetText("No unread")
	}
}

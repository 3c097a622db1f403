//go:build !headless

package gui

import (
	"context"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/logging"
)

// logHistoryLimit caps both the raw line history and the rendered grid rows.
const logHistoryLimit = 1000

// logPane is the log viewer window's state: an ANSI-colored text grid by
// default, with a plain selectable entry behind a toggle for copy/paste.
// All access happens on the fyne goroutine.
type logPane struct {
	win  fyne.Window
	open bool

	grid         *widget.TextGrid
	gridScroll   *container.Scroll
	plain        *widget.Entry
	plainScroll  *container.Scroll
	plainToggle  *widget.Check
	followButton *widget.Button

	following bool
	jumping   bool
	rawLines  []string
	rows      []widget.TextGridRow
	cols      int
}

// buildLogWindow assembles the log viewer. Closing the window only hides
// it; the debug checkbox in its header is shared with the settings draft,
// which is why construction happens on the controller.
func (c *controller) buildLogWindow() {
	p := &c.logs
	p.grid = widget.NewTextGrid()
	p.grid.Scroll = fyne.ScrollNone
	p.gridScroll = container.NewVScroll(p.grid)
	p.plain = widget.NewMultiLineEntry()
	p.plain.Wrapping = fyne.TextWrapWord
	p.plainScroll = container.NewVScroll(p.plain)
	p.plainScroll.Hide()
	p.following = true
	p.cols = p.wrapColumns()
	p.plainToggle = widget.NewCheck("Selectable text", func(selectable bool) {
		if selectable {
			p.gridScroll.Hide()
			p.plainScroll.Show()
		} else {
			p.plainScroll.Hide()
			p.gridScroll.Show()
		}
		if p.following {
			p.scrollToBottom()
		}
	})

	p.followButton = widget.NewButton("Following", func() {
		p.setFollowing(true)
		p.scrollToBottom()
	})
	p.followButton.Disable()
	clearButton := widget.NewButton("Clear", p.clear)

	p.win = c.app.NewWindow("Unpod Notifier Logs")
	p.win.Resize(fyne.NewSize(900, 520))
	toggles := container.NewHBox(c.debugLogs, p.plainToggle, layout.NewSpacer())
	header := container.NewBorder(nil, nil, clearButton, p.followButton, toggles)
	logBG := canvas.NewRectangle(color.NRGBA{A: 255})
	p.gridScroll.OnScrolled = func(pos fyne.Position) {
		// Scrolling away from the tail turns follow mode off; the follow
		// button's own jump is excluded.
		if p.jumping {
			return
		}
		if !p.atBottom(pos) {
			p.setFollowing(false)
		}
	}
	p.win.SetContent(container.NewBorder(header, nil, nil, nil, container.NewMax(logBG, p.gridScroll, p.plainScroll)))
	p.open = false
	p.win.SetCloseIntercept(func() {
		if c.shuttingDown {
			return
		}
		p.open = false
		p.win.Hide()
		c.refreshTrayMenu()
	})

	c.watchLogPaneWidth()
}

func (p *logPane) setVisible(visible bool) {
	p.open = visible
	if visible {
		p.win.Show()
		p.win.RequestFocus()
	} else {
		p.win.Hide()
	}
}

func (p *logPane) clear() {
	p.rawLines = nil
	p.rows = nil
	p.grid.Rows = nil
	p.grid.Refresh()
	p.scrollToBottom()
}

// append folds freshly emitted log text into the raw history and
// re-renders the grid. Runs on the fyne goroutine.
func (p *logPane) append(line string) {
	if p.grid == nil && p.plain == nil {
		return
	}
	lines := logging.SplitLines(line)
	if len(lines) == 0 {
		return
	}
	p.rawLines = append(p.rawLines, lines...)
	p.trim()
	p.rebuildRows()
	p.refreshView()
	if p.following {
		p.scrollToBottom()
	}
}

func (p *logPane) trim() {
	if len(p.rawLines) > logHistoryLimit {
		p.rawLines = append([]string(nil), p.rawLines[len(p.rawLines)-logHistoryLimit:]...)
	}
	if len(p.rows) > logHistoryLimit {
		p.rows = append([]widget.TextGridRow(nil), p.rows[len(p.rows)-logHistoryLimit:]...)
	}
}

// rebuildRows rewraps the raw history to the current column width and
// reparses each wrapped line into styled grid cells.
func (p *logPane) rebuildRows() {
	wrapped := wrapANSILines(p.rawLines, p.wrapColumns())
	if len(wrapped) > logHistoryLimit {
		wrapped = wrapped[len(wrapped)-logHistoryLimit:]
	}
	rows := make([]widget.TextGridRow, 0, len(wrapped))
	for _, line := range wrapped {
		rows = append(rows, parseANSITextGridRow(line))
	}
	p.rows = rows
}

func (p *logPane) refreshView() {
	if p.grid != nil {
		p.grid.Rows = p.rows
		p.grid.Refresh()
	}
	if p.plain != nil {
		stripped := make([]string, 0, len(p.rawLines))
		for _, line := range p.rawLines {
			stripped = append(stripped, stripANSIText(line))
		}
		p.plain.SetText(strings.Join(stripped, "\n"))
	}
}

func (p *logPane) setFollowing(enabled bool) {
	p.following = enabled
	if p.followButton == nil {
		return
	}
	if enabled {
		p.followButton.SetText("Following")
		p.followButton.Disable()
	} else {
		p.followButton.SetText("Follow")
		p.followButton.Enable()
	}
}

func (p *logPane) scrollToBottom() {
	p.jumping = true
	if p.plainToggle != nil && p.plainToggle.Checked {
		if p.plainScroll != nil {
			p.plainScroll.ScrollToBottom()
		}
	} else if p.gridScroll != nil {
		p.gridScroll.ScrollToBottom()
	}
	p.jumping = false
}

func (p *logPane) atBottom(pos fyne.Position) bool {
	if p.gridScroll == nil || p.grid == nil {
		return true
	}
	contentHeight := p.grid.MinSize().Height
	viewportHeight := p.gridScroll.Size().Height
	if contentHeight <= viewportHeight+1 {
		return true
	}
	return pos.Y+viewportHeight >= contentHeight-1
}

// watchLogPaneWidth polls the grid width and rewraps when the window is
// resized; TextGrid has no resize callback to hook instead.
func (c *controller) watchLogPaneWidth() {
	p := &c.logs
	c.startBackgroundLoop("log rewrap watcher", func(ctx context.Context) {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next := p.wrapColumns()
				if next == p.cols {
					continue
				}
				p.cols = next
				fyne.Do(func() {
					p.rebuildRows()
					p.refreshView()
					if p.following {
						p.scrollToBottom()
					}
				})
			}
		}
	})
}

func (p *logPane) wrapColumns() int {
	const fallbackCols = 120
	if p.grid == nil {
		return fallbackCols
	}
	widthPx := p.grid.Size().Width
	if p.gridScroll != nil && p.gridScroll.Size().Width > 0 {
		widthPx = p.gridScroll.Size().Width
	}
	if widthPx <= 0 {
		widthPx = 900
	}
	charSize := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{Monospace: true})
	if charSize.Width <= 0 {
		return fallbackCols
	}
	return min(max(int(widthPx/charSize.Width), 40), 240) - 2
}

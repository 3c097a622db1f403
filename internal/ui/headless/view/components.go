package view

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"unpod-notifier/internal/ui/headless/feed"
	"unpod-notifier/internal/ui/headless/theme"
)

const (
	statusIdle = iota
	statusConnecting
	statusConnected
	statusPolling
	statusStopping
	statusError
)

const minComponentWidth = 1

// Status and dot styles are keyed by kind and built once; the overview
// repaints on every tick.
var statusStyles = map[int]lipgloss.Style{
	statusIdle:       lipgloss.NewStyle().Foreground(theme.TextFaintColor),
	statusConnecting: lipgloss.NewStyle().Foreground(theme.StatusWarnColor),
	statusConnected:  lipgloss.NewStyle().Foreground(theme.StatusOKColor),
	statusPolling:    lipgloss.NewStyle().Foreground(theme.StatusInfoColor),
	statusStopping:   lipgloss.NewStyle().Foreground(theme.StatusBusyColor),
	statusError:      lipgloss.NewStyle().Foreground(theme.StatusErrColor),
}

var dotStyles = map[feed.Kind]lipgloss.Style{
	feed.Fresh:  lipgloss.NewStyle().Foreground(theme.StatusOKColor),
	feed.Recent: lipgloss.NewStyle().Foreground(theme.StatusWarnColor),
	feed.Older:  lipgloss.NewStyle().Foreground(theme.TextFaintColor),
}

var (
	scrollTrackStyle = lipgloss.NewStyle().Foreground(theme.ScrollTrackColor)
	scrollThumbStyle = lipgloss.NewStyle().Foreground(theme.ScrollThumbColor)
)

func RenderTabs(activeTab int, hoverZone string) string {
	overview := tabLabel(" Overview ", zoneTabOverview, activeTab == TabOverview, hoverZone)
	settings := tabLabel(" Settings ", zoneTabSettings, activeTab == TabSettings, hoverZone)

	return lipgloss.JoinHorizontal(lipgloss.Bottom, overview, settings)
}

// tabLabel styles one tab header. Active wins over hover so the pointer
// resting on the current tab doesn't dim it.
func tabLabel(label string, zoneID string, active bool, hoverZone string) string {
	style := theme.TabInactiveStyle
	switch {
	case active:
		style = theme.TabActiveStyle
	case hoverZone == zoneID:
		style = theme.TabHoverStyle
	}

	return zone.Mark(zoneID, style.Render(label))
}

func RenderStatus(status string, kind int) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusIdle]
	}
	return style.Render(status)
}

// RenderActionsRow lays button segments out horizontally, wrapping onto
// further rows when the panel is too narrow for all of them.
func RenderActionsRow(segments []string, maxWidth int) string {
	maxWidth = max(maxWidth, minComponentWidth)

	var lines []string
	var row []string
	rowWidth := 0
	for _, seg := range segments {
		segWidth := lipgloss.Width(seg)
		if len(row) > 0 && rowWidth+1+segWidth > maxWidth {
			lines = append(lines, joinSegments(row))
			row, rowWidth = nil, 0
		}
		if len(row) > 0 {
			rowWidth++
		}
		row = append(row, seg)
		rowWidth += segWidth
	}
	if len(row) > 0 {
		lines = append(lines, joinSegments(row))
	}
	return strings.Join(lines, "\n")
}

func joinSegments(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	row := parts[0]
	for _, part := range parts[1:] {
		row = lipgloss.JoinHorizontal(lipgloss.Top, row, " ", part)
	}
	return row
}

// NotificationDotStyle colors the feed row marker by freshness.
func NotificationDotStyle(kind feed.Kind) (string, lipgloss.Style) {
	style, ok := dotStyles[kind]
	if !ok {
		style = dotStyles[feed.Older]
	}
	return "●", style
}

func RainbowText(text string, phase int) string {
	var b strings.Builder
	for i, r := range text {
		hue := float64(i)/2.0 - float64(phase)*0.4
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.RainbowColorAt(hue))).Render(string(r)))
	}
	return b.String()
}

func RainbowTitle(text string, phase int, animated bool) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	span := theme.RainbowSpan()
	phaseF := float64(phase)

	var b strings.Builder
	for i, r := range runes {
		x := float64(i) / float64(max(len(runes)-1, 1)) * span
		if animated {
			// Smooth visible wave: a global drift plus a per-character sinusoidal ripple.
			x += -phaseF*0.14 + math.Sin((float64(i)*0.42)+(phaseF*0.12))*0.85
		}
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.RainbowColorAt(x))).Render(string(r)))
	}
	return b.String()
}

// WithScrollBar pads or clips content to height and attaches a one-cell
// scrollbar column, thumb positioned by percent.
func WithScrollBar(content string, width int, height int, percent float64) string {
	if height <= 0 {
		return content
	}
	width = max(width, minComponentWidth)
	lines := fitLineCount(strings.Split(content, "\n"), height)
	thumb := min(max(int(percent*float64(height-1)), 0), height-1)

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		text := ansi.Cut(line, 0, width)
		if pad := width - ansi.StringWidth(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
		b.WriteString(text)
		b.WriteByte(' ')
		if i == thumb {
			b.WriteString(scrollThumbStyle.Render("▯"))
		} else {
			b.WriteString(scrollTrackStyle.Render("┊"))
		}
	}
	return b.String()
}

// fitLineCount pads with blanks or clips so exactly want lines come back.
func fitLineCount(lines []string, want int) []string {
	for len(lines) < want {
		lines = append(lines, "")
	}
	return lines[:want]
}

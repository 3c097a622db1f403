// Package theme holds the terminal palette and shared lipgloss styles
// for the TUI. The indigo accent mirrors the desktop surface so both
// frontends read as the same product.
package theme

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	AccentColor     = lipgloss.Color("63")
	AccentSoftColor = lipgloss.Color("105")

	TextBrightColor = lipgloss.Color("230")
	TextColor       = lipgloss.Color("252")
	TextFaintColor  = lipgloss.Color("245")
	TextDimColor    = lipgloss.Color("240")

	StatusOKColor   = lipgloss.Color("10")
	StatusWarnColor = lipgloss.Color("226")
	StatusInfoColor = lipgloss.Color("39")
	StatusBusyColor = lipgloss.Color("214")
	StatusErrColor  = lipgloss.Color("9")

	UnreadBadgeColor = lipgloss.Color("161")

	ScrollTrackColor = lipgloss.Color("238")
	ScrollThumbColor = lipgloss.Color("250")

	surfaceColor = lipgloss.Color("236")
)

var (
	PanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentSoftColor)
	FocusStyle = lipgloss.NewStyle().Foreground(AccentSoftColor)
	ErrorStyle = lipgloss.NewStyle().Foreground(StatusErrColor).Bold(true)
	HelpStyle  = lipgloss.NewStyle().Foreground(TextFaintColor)
	BadgeStyle = lipgloss.NewStyle().Bold(true).Foreground(TextBrightColor).Background(UnreadBadgeColor).Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextBrightColor).
			Background(AccentColor).
			Border(lipgloss.NormalBorder(), true, true, true, true).
			BorderForeground(AccentSoftColor)
	TabInactiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(TextFaintColor).
				Background(surfaceColor).
				Border(lipgloss.NormalBorder(), true, true, true, true).
				BorderForeground(TextDimColor)
	TabHoverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(surfaceColor).
			Border(lipgloss.NormalBorder(), true, true, true, true).
			BorderForeground(lipgloss.Color("15"))
	ModalBackdrop = lipgloss.NewStyle().Foreground(TextDimColor)

	DisabledButtonBorder = lipgloss.Border{
		Top:         "╌",
		Bottom:      "╌",
		Left:        "┊",
		Right:       "┊",
		TopLeft:     "┌",
		TopRight:    "┐",
		BottomLeft:  "└",
		BottomRight: "┘",
	}
	DisabledBorderColor = TextDimColor
	DisabledTextColor   = TextDimColor

	ButtonStyle                = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder())
	ButtonFocusedStyle         = ButtonStyle.BorderForeground(AccentSoftColor).Foreground(AccentSoftColor)
	ButtonHoverStyle           = ButtonStyle.BorderForeground(lipgloss.Color("15")).Foreground(lipgloss.Color("15"))
	ButtonDisabledBaseStyle    = ButtonStyle.Border(DisabledButtonBorder).BorderForeground(DisabledBorderColor)
	ButtonDisabledStyle        = ButtonDisabledBaseStyle.Foreground(DisabledTextColor)
	ButtonDisabledFocusedStyle = ButtonStyle.BorderForeground(lipgloss.Color("255")).Foreground(lipgloss.Color("250"))
	ButtonDisabledHoverStyle   = ButtonDisabledBaseStyle.BorderForeground(lipgloss.Color("255")).Foreground(lipgloss.Color("250"))
	SegmentBaseStyle           = lipgloss.NewStyle().Padding(0, 1)
	SegmentOnStyle             = SegmentBaseStyle.Bold(true).Foreground(TextBrightColor).Background(AccentColor)
	SegmentOffStyle            = SegmentBaseStyle.Foreground(TextFaintColor).Background(surfaceColor)
)

var rainbowStops = []string{
	"#ff1f5a", "#ff8f1f", "#ffe44d", "#4ce06b", "#39d3ff", "#4f6bff", "#c45bff",
}

func RainbowSpan() float64 {
	return float64(max(len(rainbowStops)-1, 1))
}

// RainbowColorAt samples the gradient at position, wrapping so callers
// can feed it an unbounded animation phase.
func RainbowColorAt(position float64) string {
	n := float64(len(rainbowStops))
	if n == 0 {
		return "#ffffff"
	}
	wrapped := math.Mod(position, n)
	if wrapped < 0 {
		wrapped += n
	}
	i0 := int(math.Floor(wrapped))
	i1 := (i0 + 1) % len(rainbowStops)
	t := wrapped - float64(i0)
	return interpolateHex(rainbowStops[i0], rainbowStops[i1], t)
}

func interpolateHex(a string, b string, t float64) string {
	ar, ag, ab := parseHexRGB(a)
	br, bg, bb := parseHexRGB(b)
	lerp := func(x int, y int) int {
		return int(float64(x) + (float64(y)-float64(x))*t)
	}
	return fmt.Sprintf("#%02x%02x%02x", lerp(ar, br), lerp(ag, bg), lerp(ab, bb))
}

func parseHexRGB(s string) (int, int, int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int((v >> 16) & 0xff), int((v >> 8) & 0xff), int(v & 0xff)
}

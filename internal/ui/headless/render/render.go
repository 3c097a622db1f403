package render

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"unpod-notifier/internal/ui/headless/theme"
)

// Frame wraps content in the panel border, optionally recoloring the
// border runes through the rainbow gradient. Content cells stay
// untouched; only the frame itself animates.
func Frame(content string, width int, rainbow bool, phase int, panelStyle lipgloss.Style) string {
	innerWidth := max(width-panelStyle.GetHorizontalFrameSize(), 1)
	framed := panelStyle.Width(innerWidth).Render(content)
	if !rainbow {
		return framed
	}
	return paintBorders(framed, phase)
}

const frameBorderRunes = "╭╮╰╯─│"

func paintBorders(framed string, phase int) string {
	lines := strings.Split(framed, "\n")
	if len(lines) == 0 {
		return framed
	}
	out := make([]string, len(lines))
	last := len(lines) - 1
	for y, line := range lines {
		if y == 0 || y == last {
			out[y] = paintBorderRow(line, y, phase)
		} else {
			out[y] = paintEdgeRunes(line, y, phase)
		}
	}
	return strings.Join(out, "\n")
}

// paintBorderRow recolors every border rune in a top or bottom row.
func paintBorderRow(line string, y int, phase int) string {
	var b strings.Builder
	x := 0
	for _, r := range line {
		if strings.ContainsRune(frameBorderRunes, r) {
			b.WriteString(borderRuneColor(string(r), x, y, phase))
		} else {
			b.WriteRune(r)
		}
		x++
	}
	return b.String()
}

// paintEdgeRunes recolors just the outermost pipes of an interior row,
// leaving the content between them alone.
func paintEdgeRunes(line string, y int, phase int) string {
	if line == "" {
		return line
	}
	leftRune, leftSize := utf8.DecodeRuneInString(line)
	if leftRune != '│' {
		return line
	}
	rightIdx := strings.LastIndex(line, "│")
	if rightIdx <= 0 {
		return line
	}
	rightX := ansi.StringWidth(line[:rightIdx])
	return borderRuneColor("│", 0, y, phase) + line[leftSize:rightIdx] + borderRuneColor("│", rightX, y, phase)
}

func borderRuneColor(ch string, x int, y int, phase int) string {
	position := float64(x+y)/3.0 - float64(phase)*0.35
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.RainbowColorAt(position))).Render(ch)
}

// TruncateDisplayWidth cuts value to the given display width, ending
// with an ellipsis when anything was dropped. Widths account for
// double-width runes but not ANSI sequences, so callers truncate before
// styling.
func TruncateDisplayWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(value) <= width {
		return value
	}
	if width == 1 {
		return "…"
	}
	limit := max(width-ansi.StringWidth("…"), 0)
	var b strings.Builder
	used := 0
	for _, r := range value {
		w := ansi.StringWidth(string(r))
		if used+w > limit {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}

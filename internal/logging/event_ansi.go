package logging

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// forceColorOnce upgrades the lipgloss profile so the rendered sequences
// carry real colors even when stdout is not a terminal (the GUI log pane
// parses them itself).
var forceColorOnce = sync.OnceFunc(func() {
	lipgloss.SetColorProfile(termenv.TrueColor)
})

var (
	ansiBadgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	ansiTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ansiMsgStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	ansiKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	ansiValStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	ansiSepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	ansiPunctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ansiBlockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
)

// FormatEventANSI renders a log event with terminal color sequences, matching
// the pretty stderr output so UI log panes can reuse the styling.
func FormatEventANSI(event Event) string {
	forceColorOnce()

	levelLabel, levelStyle := levelBadge(event.Level)
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		ansiTimeStyle.Render(event.Time.Format("15:04:05.000")),
		" ",
		levelStyle.Render(levelLabel),
		" ",
		ansiMsgStyle.Render(event.Message),
	)

	inline, blocks := renderEventFields(event.Fields)
	if len(inline) > 0 {
		line += "  " + strings.Join(inline, " ")
	}
	for _, block := range blocks {
		line += "\n  " + block
	}
	return line + "\n"
}

// renderEventFields splits fields into inline key=value segments and
// bordered JSON blocks that render below the main line.
func renderEventFields(fields map[string]any) (inline, blocks []string) {
	for _, key := range orderedFieldKeys(fields) {
		if pretty, ok := prettyJSONString(fields[key]); ok {
			blocks = append(blocks, renderJSONFieldBlock(key, pretty))
		} else {
			inline = append(inline, ansiKeyStyle.Render(key)+ansiSepStyle.Render("=")+ansiValStyle.Render(formatFieldValue(fields[key])))
		}
	}
	return inline, blocks
}

func levelBadge(level slog.Level) (string, lipgloss.Style) {
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG", ansiBadgeStyle.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("240"))
	case level <= slog.LevelInfo:
		return "INFO", ansiBadgeStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("31"))
	case level <= slog.LevelWarn:
		return "WARN", ansiBadgeStyle.Foreground(lipgloss.Color("234")).Background(lipgloss.Color("214"))
	default:
		return "ERROR", ansiBadgeStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160"))
	}
}

func renderJSONFieldBlock(key string, pretty string) string {
	header := ansiKeyStyle.Render(key) + ansiSepStyle.Render("=")
	return header + "\n" + ansiBlockStyle.Render(colorizePrettyJSON(pretty))
}

func colorizePrettyJSON(pretty string) string {
	lines := strings.Split(pretty, "\n")
	for i, line := range lines {
		lines[i] = colorizeJSONLine(line)
	}
	return strings.Join(lines, "\n")
}

// colorizeJSONLine walks one indented JSON line, painting structural
// punctuation dim and everything else in the value color. Quote tracking
// keeps braces inside string values from being treated as punctuation.
func colorizeJSONLine(line string) string {
	var b strings.Builder
	var inString, escaped bool
	for _, r := range line {
		style := ansiValStyle
		switch {
		case r == '"':
			style = ansiPunctStyle
			if !escaped {
				inString = !inString
			}
			escaped = false
		case inString && r == '\\':
			escaped = !escaped
		case !inString && strings.ContainsRune("{}[]:,", r):
			style = ansiPunctStyle
			escaped = false
		case r == ' ' || r == '\t':
			escaped = false
			b.WriteRune(r)
			continue
		default:
			escaped = false
		}
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

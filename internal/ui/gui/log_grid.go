//go:build !headless

package gui

import (
	"image/color"
	"strconv"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/x/ansi"

	"unpod-notifier/internal/logging"
)

// The log window renders the logger's ANSI event lines into a TextGrid,
// so the SGR subset the formatter emits (basic + 256 + truecolor, bold,
// dim, reverse) has to be decoded here. Anything outside that subset is
// ignored rather than rendered literally.

var (
	ansiDefaultFG = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	ansiDefaultBG = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
)

// gridStyleKey collapses an SGR state to the attributes the TextGrid can
// actually show. Styles are interned per key; the grid holds one pointer
// per cell, so per-cell allocation would dwarf the text itself.
type gridStyleKey struct {
	fg   color.NRGBA
	bg   color.NRGBA
	bold bool
}

var gridStyleCache = map[gridStyleKey]*widget.CustomTextGridStyle{}

type sgrState struct {
	fg      color.NRGBA
	bg      color.NRGBA
	fgSet   bool
	bgSet   bool
	bold    bool
	dim     bool
	reverse bool
}

func (s *sgrState) setFG(c color.NRGBA) {
	s.fg = c
	s.fgSet = true
}

func (s *sgrState) setBG(c color.NRGBA) {
	s.bg = c
	s.bgSet = true
}

func stripANSIText(input string) string {
	return ansi.Strip(input)
}

func wrapANSILines(lines []string, columns int) []string {
	if columns <= 1 {
		return append([]string(nil), lines...)
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, logging.SplitLines(ansi.Wrap(line, columns, ""))...)
	}
	return out
}

// cutSGRPrefix splits a leading CSI ... m sequence off input. Reports false
// when input does not start with a complete SGR sequence.
func cutSGRPrefix(input string) (seq string, rest string, ok bool) {
	if len(input) < 2 || input[0] != '\x1b' || input[1] != '[' {
		return "", input, false
	}
	end := strings.IndexByte(input[2:], 'm')
	if end < 0 {
		return "", input, false
	}
	return input[2 : 2+end], input[2+end+1:], true
}

func parseANSITextGridRow(line string) widget.TextGridRow {
	row := widget.TextGridRow{Cells: make([]widget.TextGridCell, 0, len(line))}
	var state sgrState
	for len(line) > 0 {
		if seq, rest, ok := cutSGRPrefix(line); ok {
			state.apply(seq)
			line = rest
			continue
		}

		r, size := utf8.DecodeRuneInString(line)
		if r == utf8.RuneError && size == 1 {
			r = rune(line[0])
		}
		row.Cells = append(row.Cells, widget.TextGridCell{
			Rune:  r,
			Style: state.gridStyle(),
		})
		line = line[size:]
	}
	// TextGrid drops zero-cell rows entirely; keep a blank cell so empty
	// log lines still occupy a row.
	if len(row.Cells) == 0 {
		row.Cells = append(row.Cells, widget.TextGridCell{
			Rune:  ' ',
			Style: state.gridStyle(),
		})
	}
	return row
}

// apply folds one SGR parameter string ("1;38;5;208", ...) into the
// state. Parameters that fail to parse are skipped, which also covers
// malformed extended-color sequences: their tail parses as harmless
// unknown codes.
func (s *sgrState) apply(seq string) {
	if seq == "" {
		*s = sgrState{}
		return
	}
	parts := strings.Split(strings.ReplaceAll(seq, ":", ";"), ";")

	for i := 0; i < len(parts); i++ {
		code, err := strconv.Atoi(parts[i])
		if err != nil {
			continue
		}

		switch {
		case code == 0:
			*s = sgrState{}
		case code == 1:
			s.bold = true
		case code == 2:
			s.dim = true
		case code == 22:
			s.bold = false
			s.dim = false
		case code == 7:
			s.reverse = true
		case code == 27:
			s.reverse = false
		case code == 39:
			s.fgSet = false
		case code == 49:
			s.bgSet = false
		case code >= 30 && code <= 37:
			s.setFG(ansiPalette[code-30])
		case code >= 90 && code <= 97:
			s.setFG(ansiPalette[code-90+8])
		case code >= 40 && code <= 47:
			s.setBG(ansiPalette[code-40])
		case code >= 100 && code <= 107:
			s.setBG(ansiPalette[code-100+8])
		case code == 38:
			if c, consumed, ok := extendedColor(parts[i:]); ok {
				s.setFG(c)
				i += consumed
			}
		case code == 48:
			if c, consumed, ok := extendedColor(parts[i:]); ok {
				s.setBG(c)
				i += consumed
			}
		}
	}
}

// extendedColor decodes the parameters after a 38/48 introducer: "5;<idx>"
// for indexed color, "2;<r>;<g>;<b>" for truecolor.
func extendedColor(params []string) (color.NRGBA, int, bool) {
	if len(params) >= 3 && params[1] == "5" {
		idx, err := strconv.Atoi(params[2])
		if err != nil {
			return color.NRGBA{}, 0, false
		}
		return xterm256Color(idx), 2, true
	}
	if len(params) >= 5 && params[1] == "2" {
		channels := [3]uint8{}
		for n := range channels {
			v, err := strconv.Atoi(params[2+n])
			if err != nil {
				return color.NRGBA{}, 0, false
			}
			channels[n] = clampChannel(v)
		}
		return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, 4, true
	}
	return color.NRGBA{}, 0, false
}

// resolvedColors applies defaults, reverse video, and dimming to produce
// the final cell colors.
func (s *sgrState) resolvedColors() (color.NRGBA, color.NRGBA) {
	fg, bg := ansiDefaultFG, ansiDefaultBG
	if s.fgSet {
		fg = s.fg
	}
	if s.bgSet {
		bg = s.bg
	}
	if s.reverse {
		fg, bg = bg, fg
	}
	if s.dim {
		fg = dimColor(fg)
	}
	return fg, bg
}

func (s *sgrState) gridStyle() widget.TextGridStyle {
	fg, bg := s.resolvedColors()

	key := gridStyleKey{fg: fg, bg: bg, bold: s.bold}
	if cached, ok := gridStyleCache[key]; ok {
		return cached
	}
	style := &widget.CustomTextGridStyle{
		FGColor: fg,
		BGColor: bg,
		TextStyle: fyne.TextStyle{
			Bold:      s.bold,
			Monospace: true,
		},
	}
	gridStyleCache[key] = style
	return style
}

// ansiPalette holds the 16 basic colors in the VS Code terminal scheme,
// which reads well on the dark grid background.
var ansiPalette = [16]color.NRGBA{
	{0, 0, 0, 255},
	{205, 49, 49, 255},
	{13, 188, 121, 255},
	{229, 229, 16, 255},
	{36, 114, 200, 255},
	{188, 63, 188, 255},
	{17, 168, 205, 255},
	{229, 229, 229, 255},
	{102, 102, 102, 255},
	{241, 76, 76, 255},
	{35, 209, 139, 255},
	{245, 245, 67, 255},
	{59, 142, 234, 255},
	{214, 112, 214, 255},
	{41, 184, 219, 255},
	{255, 255, 255, 255},
}

func dimColor(c color.NRGBA) color.NRGBA {
	return color.NRGBA{
		R: uint8(int(c.R) * 70 / 100),
		G: uint8(int(c.G) * 70 / 100),
		B: uint8(int(c.B) * 70 / 100),
		A: c.A,
	}
}

func clampChannel(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

// xterm256Color maps a 256-color index: 16 palette entries, a 6x6x6
// color cube, then the 24-step grayscale ramp.
func xterm256Color(index int) color.NRGBA {
	index = min(max(index, 0), 255)

	switch {
	case index < 16:
		return xterm16[index]
	case index <= 231:
		c := index - 16
		scale := [6]uint8{0, 95, 135, 175, 215, 255}
		return color.NRGBA{
			R: scale[c/36],
			G: scale[(c%36)/6],
			B: scale[c%6],
			A: 255,
		}
	default:
		v := uint8(8 + (index-232)*10)
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	}
}

// xterm16 is the standard xterm palette for indexed colors 0-15, kept
// separate from ansiPalette so indexed output matches other terminals.
var xterm16 = [16]color.NRGBA{
	{0, 0, 0, 255},
	{128, 0, 0, 255},
	{0, 128, 0, 255},
	{128, 128, 0, 255},
	{0, 0, 128, 255},
	{128, 0, 128, 255},
	{0, 128, 128, 255},
	{192, 192, 192, 255},
	{128, 128, 128, 255},
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 255, 255, 255},
}

package view

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/ui/headless/theme"
)

const (
	TabOverview = iota
	TabSettings
)

const (
	DefaultNonLogLayoutReserveMin = 24
	DefaultMinLogPanelHeight      = 8
	ConfirmQuitChoiceCancel       = 0
)

// Overview-tab focus slots, in visual order. Settings-tab slots are dynamic:
// the text inputs come first, then the four trailing controls.
const (
	connectControlIndex = iota
	markReadControlIndex
	logsControlIndex
	quitControlIndex
	logsDebugControlIndex
)

const (
	overviewFocusCountWithoutLogs = 4
	overviewFocusCountWithLogs    = 5
	settingsExtraFocusSlots       = 4
)

// Layout minimums and fixed overheads used when fitting viewports into the
// terminal.
const (
	minPageWidth = 24

	logPanelHorizontalInset = 8
	minViewportDimension    = 1
	minLogViewportWidth     = 20
	logViewportHeightOffset = 3
	minLogViewportHeight    = 3
	panelFrameOverhead      = 4
	filePickerHeightOffset  = 14
	minFilePickerHeight     = 8
	borderRows              = 2
	sectionGapRows          = 2
)

// ApplyFocus syncs the textinput focus flags with the model's focus slot.
func (s *State) ApplyFocus() {
	focused := -1
	if s.Tab == TabSettings {
		focused = s.Focus
	}
	for i := range s.Inputs {
		if i == focused {
			s.Inputs[i].Focus()
		} else {
			s.Inputs[i].Blur()
		}
	}
}

// FocusCount reports how many focus slots the current tab exposes.
func (s State) FocusCount() int {
	switch {
	case s.Tab != TabOverview:
		return len(s.Inputs) + settingsExtraFocusSlots
	case s.ShowLogs:
		return overviewFocusCountWithLogs
	default:
		return overviewFocusCountWithoutLogs
	}
}

func (s State) ConnectIndex() int     { return connectControlIndex }
func (s State) MarkReadIndex() int    { return markReadControlIndex }
func (s State) LogsIndex() int        { return logsControlIndex }
func (s State) QuitIndex() int        { return quitControlIndex }
func (s State) LogsDebugIndex() int   { return logsDebugControlIndex }
func (s State) BrowseIndex() int      { return len(s.Inputs) }
func (s State) AutoConnectIndex() int { return len(s.Inputs) + 1 }
func (s State) SaveIndex() int        { return len(s.Inputs) + 2 }
func (s State) CancelIndex() int      { return len(s.Inputs) + 3 }

func (s State) ContentWidth() int {
	width := max(s.Width, 1)
	if runtime.GOOS != "windows" {
		return width
	}
	// Some Windows terminals wrap when a styled line lands exactly on the
	// reported last column; keep one-column headroom to avoid right-edge drift.
	return max(width-1, 1)
}

func (s State) PageWidth() int {
	return max(s.ContentWidth()-theme.PanelStyle.GetHorizontalFrameSize(), minPageWidth)
}

func (s State) logPanelHeight(reserve int, minHeight int) int {
	return max(s.Height-reserve, minHeight)
}

func (s *State) SetLogViewportContent() {
	text := s.LogText
	if text != "" {
		text = ansi.Wrap(text, max(s.LogView.Width, minViewportDimension), "")
	}
	s.LogView.SetContent(text)
}

// ResizeLogs refits the log viewport to the current terminal size and
// rewraps its content.
func (s *State) ResizeLogs(reserve int, minHeight int) {
	s.LogView.Width = max(s.PageWidth()-logPanelHorizontalInset, minLogViewportWidth)
	s.LogView.Height = max(s.logPanelHeight(reserve, minHeight)-logViewportHeightOffset, minLogViewportHeight)
	s.SetLogViewportContent()
}

// FitLogViewportHeight shrinks the log viewport so the panel plus the
// sections above it still fit the terminal height.
func (s *State) FitLogViewportHeight(nonLogSections []string, reserve int, minHeight int) {
	if s.Height <= 0 {
		return
	}
	desired := max(s.logPanelHeight(reserve, minHeight)-logViewportHeightOffset, minLogViewportHeight)
	occupied := lipgloss.Height(strings.Join(nonLogSections, "\n\n")) + borderRows + sectionGapRows
	room := s.Height - occupied - panelFrameOverhead
	s.LogView.Height = min(desired, max(room, minLogViewportHeight))
}

func (s *State) ResizeFilePicker() {
	s.FilePicker.SetHeight(max(s.Height-filePickerHeightOffset, minFilePickerHeight))
}

// settingsBindings pairs each text input slot with its draft field so the
// pull (form to draft) and push (draft to form) directions cannot drift.
func settingsBindings(d *config.NotifierSettings) [inputCount]*string {
	return [inputCount]*string{
		baseURLInputIndex: &d.BaseURL,
		tokenInputIndex:   &d.Token,
		logDirInputIndex:  &d.LogDir,
	}
}

// WithDraftFromControls pulls the current control values into the draft
// settings and recomputes dirtiness against the saved copy.
func (s State) WithDraftFromControls() State {
	for idx, field := range settingsBindings(&s.DraftSettings) {
		*field = strings.TrimSpace(s.Inputs[idx].Value())
	}
	s.DraftSettings.AutoConnect = s.AutoConn
	s.DraftSettings.Debug = s.DebugOn
	return s.withDirtyRecomputed()
}

func (s State) WithDraftAppliedToControls() State {
	for idx, field := range settingsBindings(&s.DraftSettings) {
		s.Inputs[idx].SetValue(strings.TrimSpace(*field))
	}
	s.AutoConn = s.DraftSettings.AutoConnect
	return s
}

func (s State) WithSaveCommitted() State {
	s.SavedSettings = s.DraftSettings
	s.SettingsDirty = false
	return s
}

func (s State) WithCancelDraft() State {
	s.DraftSettings = s.SavedSettings
	s = s.WithDraftAppliedToControls()
	s.SettingsDirty = false
	return s
}

// WithSelectedLogDir records a directory chosen in the picker, closing the
// picker and folding the path into the draft.
func (s State) WithSelectedLogDir(path string) State {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.Inputs[logDirInputIndex].SetValue(path)
	s.FilePickerOpen = false
	return s.WithDraftFromControls()
}

func (s State) withDirtyRecomputed() State {
	s.SettingsDirty = s.DraftSettings != s.SavedSettings
	return s
}

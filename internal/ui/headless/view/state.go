package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/ui/headless/keyboard"
	"unpod-notifier/internal/ui/headless/theme"
)

// Indexes into State.Inputs; the settings form renders the fields in this
// order and inputCount sizes the slice.
const (
	baseURLInputIndex = iota
	tokenInputIndex
	logDirInputIndex
	inputCount
)

const (
	inputCharLimit = 2048
	inputWidth     = 80

	logViewWidth   = 80
	logViewHeight  = 20
	paneWidth      = 24
	paneHeight     = 8
	settingsHeight = 12

	animPhaseWrap = 1_000_000_000
)

// State is the whole TUI model for the notifier surface: tab and focus
// position, the settings form controls, viewports, and modal overlays.
// Reducers take State by value and return the updated copy.
type State struct {
	Inputs []textinput.Model
	Focus  int
	Tab    int

	HelpView help.Model
	Keys     keyboard.Map

	ShowLogs      bool
	AutoConn      bool
	SettingsDirty bool
	FollowLogs    bool
	DebugOn       bool

	LogText      string
	LogView      viewport.Model
	LeftView     viewport.Model
	RightView    viewport.Model
	SettingsView viewport.Model

	Width     int
	Height    int
	AnimPhase int
	Rainbow   bool

	ConfirmQuit       bool
	ConfirmQuitChoice int
	ErrorModalText    string
	FilePickerOpen    bool
	FilePicker        filepicker.Model
	HoverZone         string

	UpdateModalOpen   bool
	UpdateModalChoice int
	UpdateLatestTag   string
	UpdateReleaseURL  string

	SavedSettings config.NotifierSettings
	DraftSettings config.NotifierSettings
}

// NewState seeds the model from resolved options. Saved and draft settings
// start equal; edits only touch the draft until the user saves.
func NewState(opts config.Options, defaultLogDir string) State {
	saved := config.SettingsFromOptions(opts)
	return State{
		Inputs:        newSettingsInputs(opts, defaultLogDir),
		Tab:           TabOverview,
		HelpView:      newHelpView(),
		Keys:          keyboard.New(),
		AutoConn:      opts.AutoConnect,
		DebugOn:       opts.Debug,
		FollowLogs:    true,
		Rainbow:       opts.Rainbow,
		LogView:       viewport.New(logViewWidth, logViewHeight),
		LeftView:      viewport.New(paneWidth, paneHeight),
		RightView:     viewport.New(paneWidth, paneHeight),
		SettingsView:  viewport.New(logViewWidth, settingsHeight),
		FilePicker:    newDirPicker(),
		SavedSettings: saved,
		DraftSettings: saved,
	}
}

func newSettingsInputs(opts config.Options, defaultLogDir string) []textinput.Model {
	newField := func(placeholder, value string) textinput.Model {
		field := textinput.New()
		field.CharLimit = inputCharLimit
		field.Width = inputWidth
		field.Prompt = ""
		field.Placeholder = placeholder
		field.SetValue(strings.TrimSpace(value))
		return field
	}

	inputs := make([]textinput.Model, inputCount)
	inputs[baseURLInputIndex] = newField("https://app.unpod.example", opts.BaseURL)
	inputs[tokenInputIndex] = newField("API token", opts.Token)
	inputs[logDirInputIndex] = newField(defaultLogDir, opts.LogDir)

	inputs[baseURLInputIndex].Focus()
	inputs[tokenInputIndex].EchoMode = textinput.EchoPassword
	inputs[tokenInputIndex].EchoCharacter = '•'
	return inputs
}

// newDirPicker builds the directory-only picker behind the log dir Browse
// button.
func newDirPicker() filepicker.Model {
	picker := filepicker.New()
	picker.DirAllowed = true
	picker.FileAllowed = false
	picker.ShowHidden = false
	picker.ShowSize = false
	picker.ShowPermissions = false
	picker.KeyMap.Open = key.NewBinding(key.WithKeys(" ", "right", "l"), key.WithHelp("space", "open"))
	picker.KeyMap.Select = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select"))
	return picker
}

func newHelpView() help.Model {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(theme.TextFaintColor)
	sepStyle := lipgloss.NewStyle().Foreground(theme.TextDimColor)

	hv := help.New()
	hv.Styles.ShortKey = keyStyle
	hv.Styles.FullKey = keyStyle
	hv.Styles.ShortDesc = descStyle
	hv.Styles.FullDesc = descStyle
	hv.Styles.ShortSeparator = sepStyle
	hv.Styles.FullSeparator = sepStyle
	hv.Styles.Ellipsis = sepStyle
	return hv
}

func (s State) WithWindowSize(width, height int) State {
	s.Width, s.Height = width, height
	return s
}

// WithTick advances the animation counter, wrapping long before overflow.
func (s State) WithTick() State {
	s.AnimPhase = (s.AnimPhase + 1) % animPhaseWrap
	return s
}

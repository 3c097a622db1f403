package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"unpod-notifier/internal/ui/headless/feed"
	"unpod-notifier/internal/ui/headless/render"
	"unpod-notifier/internal/ui/headless/theme"
)

// Runtime is the snapshot of service state the renderer draws from. The
// model assembles it fresh per frame so render code never touches the
// controller.
type Runtime struct {
	BuildVersion string
	Running      bool
	Connecting   bool
	Status       string
	StatusKind   int
	CanConnect   bool
	Unread       int
	Rows         []feed.Row
	FeedDetail   string
}

// Overview pane geometry.
const (
	outerPaneGap               = 2
	frameInnerInset            = 4
	minOverviewLeftContent     = 12
	minOverviewLeftHeight      = 6
	minOverviewRemainingWidth  = 24
	leftFrameExtraWidth        = 6
	leftFrameMinWidth          = 24
	rightPaneMinWidth          = 32
	sideBySideMinTotalWidth    = 84
	paneInnerMinWidth          = 1
	defaultOverviewPaneHeight  = 8
	largeOverviewPaneHeight    = 10
	largeOverviewHeightCutover = 36
)

// Feed and settings panes.
const (
	feedPaneMinWidth          = 8
	feedPaneMinHeight         = 3
	feedListMinWidth          = 10
	settingsLabelWidth        = 9
	settingsRowExtraCapacity  = 5
	settingsControlMinWidth   = 16
	settingsBrowsePaddingLeft = settingsLabelWidth + 1
	settingsHeightPadding     = 4
	settingsPaneMinHeight     = 12
)

// Modal dialogs.
const (
	dialogHorizontalInset    = 8
	quitDialogWidth          = 72
	updateDialogWidth        = 72
	errorDialogWidth         = 78
	filePickerDialogMaxWidth = 96
)

func RenderApp(state *State, rt Runtime) string {
	if state.Width == 0 {
		return "initializing..."
	}

	base := renderBase(state, rt)
	if dialog, ok := activeDialog(state); ok {
		faded := theme.ModalBackdrop.Render(base)
		overlay := lipgloss.Place(state.Width, state.Height, lipgloss.Center, lipgloss.Center, dialog)
		return zone.Scan(faded + "\n" + overlay)
	}

	return zone.Scan(base)
}

// activeDialog picks the topmost modal. The file picker and error dialogs
// outrank quit confirmation and the update offer.
func activeDialog(state *State) (string, bool) {
	switch {
	case state.FilePickerOpen:
		return renderFilePickerDialog(state), true
	case state.ErrorModalText != "":
		return renderErrorDialog(state), true
	case state.ConfirmQuit:
		return renderQuitConfirmDialog(state), true
	case state.UpdateModalOpen:
		return renderUpdateDialog(state), true
	}
	return "", false
}

func renderBase(state *State, rt Runtime) string {
	title := "Unpod Notifier (" + rt.BuildVersion + ")"
	header := theme.TitleStyle.Render(title)
	if state.Rainbow {
		header = RainbowTitle(title, state.AnimPhase, true)
	}
	if rt.Unread > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", theme.BadgeStyle.Render(strconv.Itoa(rt.Unread)))
	}
	tabs := RenderTabs(state.Tab, state.HoverZone)

	var content string
	if state.Tab == TabOverview {
		content = renderOverview(state, rt)
	} else {
		content = renderSettings(state)
	}

	helpText := state.HelpView.View(state.Keys)
	if state.Tab == TabSettings {
		helpText += " • ctrl+s save"
	}

	sections := []string{header, tabs, content}
	if state.Tab == TabOverview && state.ShowLogs {
		state.FitLogViewportHeight([]string{header, tabs, content, helpText}, DefaultNonLogLayoutReserveMin, DefaultMinLogPanelHeight)
		sections = append(sections, renderLogPanel(state))
	}
	sections = append(sections, theme.HelpStyle.Render(helpText))

	return renderFrame(state, strings.Join(sections, "\n\n"), state.ContentWidth())
}

func renderFrame(state *State, content string, width int) string {
	return render.Frame(content, width, state.Rainbow, state.AnimPhase, theme.PanelStyle)
}

// paneGeometry is the computed overview split: status pane on the left,
// notification feed on the right, stacked vertically when the terminal is
// too narrow for both.
type paneGeometry struct {
	total   int
	left    int
	right   int
	stacked bool
}

func overviewGeometry(state *State, rt Runtime) paneGeometry {
	total := state.PageWidth()
	left := min(statusPaneFrameWidth(state, rt), total)

	g := paneGeometry{total: total, left: left, right: total - left - outerPaneGap}
	if total < sideBySideMinTotalWidth || g.right < rightPaneMinWidth {
		g.right = total
		g.stacked = true
	}
	return g
}

// statusPaneFrameWidth sizes the left frame to its widest line, measured
// with the wrap limit effectively off.
func statusPaneFrameWidth(state *State, rt Runtime) int {
	statusLine := "Status: " + RenderStatus(rt.Status, rt.StatusKind)
	actionsLine := renderActionButtons(state, rt, 10_000)
	inner := max(lipgloss.Width(statusLine), lipgloss.Width(actionsLine))
	inner = max(inner, actionButtonsPreferredWidth(state, rt))

	return max(inner+leftFrameExtraWidth, leftFrameMinWidth)
}

func (g paneGeometry) paneHeight(termHeight int) int {
	if termHeight >= largeOverviewHeightCutover {
		return largeOverviewPaneHeight
	}
	return defaultOverviewPaneHeight
}

func renderOverview(state *State, rt Runtime) string {
	ResizePaneViewports(state, rt)
	g := overviewGeometry(state, rt)

	leftFrameWidth := g.left
	if g.stacked {
		leftFrameWidth = g.total
	}
	left := renderStatusPane(state, rt, leftFrameWidth, g.stacked)

	layout := ""
	if g.stacked {
		state.RightView.SetContent(renderFeedBody(rt, g.total-frameInnerInset, state.RightView.Height))
		layout = left + "\n\n" + renderFrame(state, state.RightView.View(), g.right)
	} else {
		remaining := max(g.total-lipgloss.Width(left)-outerPaneGap, minOverviewRemainingWidth)
		state.RightView.SetContent(renderFeedBody(rt, remaining-frameInnerInset, state.RightView.Height))
		right := renderFrame(state, state.RightView.View(), remaining)
		layout = lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", outerPaneGap), right)
	}

	return lipgloss.NewStyle().Width(g.total).Render(layout)
}

// renderStatusPane fills the left viewport with the status line and action
// buttons, growing both viewports when the wrapped button rows need more
// room than the default pane height allows.
func renderStatusPane(state *State, rt Runtime, frameWidth int, stacked bool) string {
	contentWidth := frameWidth - frameInnerInset
	if contentWidth <= 0 {
		contentWidth = state.LeftView.Width
	}
	if contentWidth > outerPaneGap {
		contentWidth -= outerPaneGap
	}
	contentWidth = max(contentWidth, minOverviewLeftContent)
	state.LeftView.Width = contentWidth

	statusLine := "Status: " + RenderStatus(rt.Status, rt.StatusKind)
	actionsLine := renderActionButtons(state, rt, contentWidth)

	needHeight := max(1+outerPaneGap+lipgloss.Height(actionsLine), minOverviewLeftHeight)
	state.LeftView.Height = max(state.LeftView.Height, needHeight)
	if !stacked {
		state.RightView.Height = max(state.RightView.Height, needHeight)
	}

	state.LeftView.SetContent(statusLine + "\n\n" + actionsLine)

	return renderFrame(state, state.LeftView.View(), frameWidth)
}

func renderActionButtons(state *State, rt Runtime, maxWidth int) string {
	segments := []string{
		zone.Mark(zoneOverviewConnect, renderConnectToggle(state, rt)),
		zone.Mark(zoneOverviewMarkRead, renderMarkReadButton(state, rt)),
		zone.Mark(zoneOverviewLogs, renderLogsButton(state)),
		zone.Mark(zoneOverviewQuit, renderQuitButton(state)),
	}

	return RenderActionsRow(segments, maxWidth)
}

// actionButtonsPreferredWidth measures the row with every button at its
// widest label so toggling between Logs and Hide Logs can't reflow panes.
func actionButtonsPreferredWidth(state *State, rt Runtime) int {
	row := joinSegments([]string{
		renderConnectToggle(state, rt),
		theme.ButtonStyle.Render("Mark Read"),
		theme.ButtonStyle.Render("Hide Logs"),
		theme.ButtonStyle.Render("Quit"),
	})

	return lipgloss.Width(row)
}

func buttonStyleFor(state *State, zoneID string, focused bool, disabled bool) lipgloss.Style {
	hovered := state.HoverZone == zoneID
	switch {
	case disabled && focused:
		return theme.ButtonDisabledFocusedStyle
	case disabled && hovered:
		return theme.ButtonDisabledHoverStyle
	case disabled:
		return theme.ButtonDisabledStyle
	case focused:
		return theme.ButtonFocusedStyle
	case hovered:
		return theme.ButtonHoverStyle
	default:
		return theme.ButtonStyle
	}
}

// renderConnectToggle draws the Connect|Disconnect segmented control. The
// active half is highlighted; while a connection attempt is in flight the
// Connect half animates instead.
func renderConnectToggle(state *State, rt Runtime) string {
	focused := state.Focus == state.ConnectIndex()
	disabled := !rt.Running && !rt.Connecting && !rt.CanConnect
	style := buttonStyleFor(state, zoneOverviewConnect, focused, disabled)

	switch {
	case disabled:
		dim := lipgloss.NewStyle().Foreground(theme.TextDimColor)
		return style.Render(joinToggleHalves(dim.Render("Connect"), dim.Render("Disconnect")))
	case rt.Connecting:
		connecting := theme.SegmentOnStyle.Render(RainbowText("Connecting...", state.AnimPhase))
		return style.Render(joinToggleHalves(connecting, theme.SegmentOffStyle.Render("Disconnect")))
	case rt.Running:
		return style.Render(joinToggleHalves(theme.SegmentOffStyle.Render("Connect"), theme.SegmentOnStyle.Render("Disconnect")))
	default:
		return style.Render(joinToggleHalves(theme.SegmentOnStyle.Render("Connect"), theme.SegmentOffStyle.Render("Disconnect")))
	}
}

func joinToggleHalves(left string, right string) string {
	return left + theme.SegmentBaseStyle.Render("|") + right
}

func renderMarkReadButton(state *State, rt Runtime) string {
	focused := state.Focus == state.MarkReadIndex()

	return buttonStyleFor(state, zoneOverviewMarkRead, focused, !rt.Running).Render("Mark Read")
}

func renderLogsButton(state *State) string {
	label := "Logs"
	if state.ShowLogs {
		label = "Hide Logs"
	}

	return buttonStyleFor(state, zoneOverviewLogs, state.Focus == state.LogsIndex(), false).Render(label)
}

func renderQuitButton(state *State) string {
	return buttonStyleFor(state, zoneOverviewQuit, state.Focus == state.QuitIndex(), false).Render("Quit")
}

// renderFeedBody builds the Recent Notifications pane: one line per
// delivery with a freshness dot and relative age, or a centered
// placeholder while the list is empty.
func renderFeedBody(rt Runtime, width int, height int) string {
	header := theme.TitleStyle.Render("Recent Notifications")
	if !rt.Running && !rt.Connecting {
		return header + "\n" + centeredPlaceholder("Not connected", width, height)
	}
	if len(rt.Rows) == 0 {
		placeholder := rt.FeedDetail
		if placeholder == "" {
			placeholder = "No notifications yet"
		}
		return header + "\n" + centeredPlaceholder(placeholder, width, height)
	}

	width = max(width, feedListMinWidth)
	lines := make([]string, 0, len(rt.Rows)+1)
	for _, row := range rt.Rows {
		lines = append(lines, renderFeedLine(row, width))
	}
	if rt.FeedDetail != "" {
		lines = append(lines, theme.HelpStyle.Render(rt.FeedDetail))
	}

	return header + "\n" + strings.Join(lines, "\n")
}

func renderFeedLine(row feed.Row, width int) string {
	dot, style := NotificationDotStyle(row.Kind)
	prefix := style.Render(dot) + " "
	suffix := ""
	if row.Age != "" {
		suffix = " " + theme.HelpStyle.Render(row.Age)
	}
	available := max(width-ansi.StringWidth(prefix)-ansi.StringWidth(suffix), 1)

	return prefix + render.TruncateDisplayWidth(row.Title, available) + suffix
}

func centeredPlaceholder(text string, width int, height int) string {
	return lipgloss.NewStyle().
		Width(max(width, feedPaneMinWidth)).
		Height(max(height, feedPaneMinHeight) - 1).
		AlignHorizontal(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Foreground(theme.TextFaintColor).
		Render(text)
}

func renderSettings(state *State) string {
	rows := make([]string, 0, len(state.Inputs)+settingsRowExtraCapacity)
	controlWidth := max(state.SettingsView.Width-settingsLabelWidth-outerPaneGap, settingsControlMinWidth)
	for i, label := range []string{"Base URL", "Token", "Log Dir"} {
		state.Inputs[i].Width = controlWidth
		rows = append(rows, settingsRow(state, i, label, zone.Mark(zoneSettingsInput(i), state.Inputs[i].View())))
	}

	browseButton := buttonStyleFor(state, zoneSettingsBrowse, state.Focus == state.BrowseIndex(), false).Render("Choose Folder")
	rows = append(rows, lipgloss.NewStyle().PaddingLeft(settingsBrowsePaddingLeft).Render(zone.Mark(zoneSettingsBrowse, browseButton)))

	auto := checkbox("Auto-connect", state.AutoConn)
	rows = append(rows, settingsRow(state, state.AutoConnectIndex(), "Auto", zone.Mark(zoneSettingsAutoConnect, auto)))

	rows = append(rows, "", settingsActionRow(state))
	if state.SettingsDirty {
		rows = append(rows, theme.HelpStyle.Render("unsaved changes"))
	}

	state.SettingsView.SetContent(strings.Join(rows, "\n"))

	return renderFrame(state, state.SettingsView.View(), state.PageWidth())
}

// settingsRow pads the label into a fixed column, with a focus marker when
// the row's control holds keyboard focus.
func settingsRow(state *State, focusIndex int, label string, control string) string {
	if state.Focus == focusIndex {
		label = theme.FocusStyle.Render("-> " + label)
	}

	return fmt.Sprintf("%-*s %s", settingsLabelWidth, label+":", control)
}

func settingsActionRow(state *State) string {
	save := buttonStyleFor(state, zoneSettingsSave, state.Focus == state.SaveIndex(), !state.SettingsDirty).Render("Save")
	cancel := buttonStyleFor(state, zoneSettingsCancel, state.Focus == state.CancelIndex(), !state.SettingsDirty).Render("Cancel")

	return lipgloss.JoinHorizontal(lipgloss.Left, zone.Mark(zoneSettingsSave, save), " ", zone.Mark(zoneSettingsCancel, cancel))
}

func checkbox(label string, on bool) string {
	if on {
		return "[x] " + label
	}
	return "[ ] " + label
}

func renderLogPanel(state *State) string {
	debug := buttonStyleFor(state, zoneOverviewLogsDebug, state.Focus == state.LogsDebugIndex(), false).Render(checkbox("Debug", state.DebugOn))
	followHint := theme.HelpStyle.Render("ctrl+f follow")
	toolbar := lipgloss.JoinHorizontal(lipgloss.Center, theme.TitleStyle.Render("Logs"), "  ", zone.Mark(zoneOverviewLogsDebug, debug), "  ", followHint)
	body := WithScrollBar(state.LogView.View(), state.LogView.Width, state.LogView.Height, state.LogView.ScrollPercent())

	return renderFrame(state, toolbar+"\n"+body, state.PageWidth())
}

// choiceDialog describes a two-button modal: title, message lines, the
// marked buttons, and the key hint under them.
type choiceDialog struct {
	title    string
	message  string
	buttons  []string
	hint     string
	maxWidth int
}

func renderChoiceDialog(state *State, d choiceDialog) string {
	width := min(state.ContentWidth()-dialogHorizontalInset, d.maxWidth)

	buttonRow := d.buttons[0]
	for _, button := range d.buttons[1:] {
		buttonRow = lipgloss.JoinHorizontal(lipgloss.Top, buttonRow, "  ", button)
	}
	buttonLine := lipgloss.NewStyle().
		Width(max(width-frameInnerInset, 1)).
		AlignHorizontal(lipgloss.Center).
		Render(buttonRow)

	body := strings.Join([]string{
		theme.TitleStyle.Render(d.title),
		d.message,
		buttonLine,
		theme.HelpStyle.Render(d.hint),
	}, "\n")

	return renderFrame(state, body, width)
}

func renderQuitConfirmDialog(state *State) string {
	cancelStyle := buttonStyleFor(state, zoneDialogQuitCancel, state.ConfirmQuitChoice == ConfirmQuitChoiceCancel, false)
	quitStyle := buttonStyleFor(state, zoneDialogQuitAccept, state.ConfirmQuitChoice != ConfirmQuitChoiceCancel, false)

	return renderChoiceDialog(state, choiceDialog{
		title:   "Quit while connected?",
		message: "This will stop the notifier connection.",
		buttons: []string{
			zone.Mark(zoneDialogQuitCancel, cancelStyle.Render("Cancel")),
			zone.Mark(zoneDialogQuitAccept, quitStyle.Render("Quit")),
		},
		hint:     "tab/arrow switch • enter confirms",
		maxWidth: quitDialogWidth,
	})
}

func renderUpdateDialog(state *State) string {
	laterStyle := buttonStyleFor(state, zoneDialogUpdateLater, state.UpdateModalChoice == UpdateChoiceLater, false)
	openStyle := buttonStyleFor(state, zoneDialogUpdateOpen, state.UpdateModalChoice != UpdateChoiceLater, false)

	return renderChoiceDialog(state, choiceDialog{
		title:   "Update available",
		message: fmt.Sprintf("Version %s is ready to download.", state.UpdateLatestTag),
		buttons: []string{
			zone.Mark(zoneDialogUpdateLater, laterStyle.Render("Later")),
			zone.Mark(zoneDialogUpdateOpen, openStyle.Render("Open Release")),
		},
		hint:     "tab/arrow switch • enter confirms • esc dismisses",
		maxWidth: updateDialogWidth,
	})
}

func renderErrorDialog(state *State) string {
	body := strings.Join([]string{
		theme.ErrorStyle.Render("Error"),
		state.ErrorModalText,
		theme.HelpStyle.Render("Press Enter or Esc to close"),
	}, "\n")

	return renderFrame(state, body, min(state.ContentWidth()-dialogHorizontalInset, errorDialogWidth))
}

func renderFilePickerDialog(state *State) string {
	body := strings.Join([]string{
		theme.TitleStyle.Render("Select Log Directory"),
		state.FilePicker.View(),
		theme.HelpStyle.Render("up/down move • space open • enter select • left/backspace up • esc close"),
	}, "\n")

	return renderFrame(state, body, min(state.PageWidth(), filePickerDialogMaxWidth))
}

// ResizePaneViewports recomputes viewport dimensions from the current
// terminal size. Called on resize and before each overview render so the
// widths reflect the latest status text.
func ResizePaneViewports(state *State, rt Runtime) {
	g := overviewGeometry(state, rt)
	paneHeight := g.paneHeight(state.Height)

	state.LeftView.Width = max(g.left-frameInnerInset, paneInnerMinWidth)
	state.LeftView.Height = paneHeight
	state.RightView.Width = max(g.right-frameInnerInset, paneInnerMinWidth)
	state.RightView.Height = paneHeight
	state.SettingsView.Width = max(g.total-frameInnerInset, paneInnerMinWidth)
	state.SettingsView.Height = max(settingsPaneMinHeight, paneHeight+settingsHeightPadding)
}

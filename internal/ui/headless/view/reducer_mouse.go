package view

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

type MouseEffect int

const (
	MouseEffectNone MouseEffect = iota
	MouseEffectActivateFocused
	MouseEffectConfirmQuitAccept
	MouseEffectUpdateAccept
)

// zoneTarget binds a marked zone to the focus slot it represents. Targets
// with activate set fire the control on click, matching enter on the same
// focus; input targets only move focus so typing can continue.
type zoneTarget struct {
	id       string
	focus    int
	activate bool
}

func ReduceMouse(state State, msg tea.MouseMsg) (State, tea.Cmd, MouseEffect) {
	if tea.MouseEvent(msg).IsWheel() {
		next, cmd := reduceMouseScroll(state, msg)
		return next, cmd, MouseEffectNone
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		state.HoverZone = hoveredZone(state, msg)
		return state, nil, MouseEffectNone
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return state, nil, MouseEffectNone
		}
		return reduceMouseClick(state, msg)
	default:
		return state, nil, MouseEffectNone
	}
}

func reduceMouseClick(state State, msg tea.MouseMsg) (State, tea.Cmd, MouseEffect) {
	if state.ErrorModalText != "" {
		state.ErrorModalText = ""
		return state, nil, MouseEffectNone
	}

	if state.UpdateModalOpen {
		switch {
		case zone.Get(zoneDialogUpdateOpen).InBounds(msg):
			state.UpdateModalOpen = false
			return state, nil, MouseEffectUpdateAccept
		case zone.Get(zoneDialogUpdateLater).InBounds(msg):
			state.UpdateModalOpen = false
		}
		return state, nil, MouseEffectNone
	}

	if state.ConfirmQuit {
		switch {
		case zone.Get(zoneDialogQuitAccept).InBounds(msg):
			return state, nil, MouseEffectConfirmQuitAccept
		case zone.Get(zoneDialogQuitCancel).InBounds(msg):
			state.ConfirmQuit = false
		}
		return state, nil, MouseEffectNone
	}

	switch {
	case zone.Get(zoneTabOverview).InBounds(msg):
		state.Tab = TabOverview
		state.Focus = 0
		state.ApplyFocus()
		return state, nil, MouseEffectNone
	case zone.Get(zoneTabSettings).InBounds(msg):
		state.Tab = TabSettings
		state.Focus = 0
		state.ApplyFocus()
		return state, nil, MouseEffectNone
	}

	for _, target := range clickTargets(state) {
		if !zone.Get(target.id).InBounds(msg) {
			continue
		}
		state.Focus = target.focus
		state.ApplyFocus()
		if target.activate {
			return state, nil, MouseEffectActivateFocused
		}
		return state, nil, MouseEffectNone
	}

	return state, nil, MouseEffectNone
}

func reduceMouseScroll(state State, msg tea.MouseMsg) (State, tea.Cmd) {
	var cmds []tea.Cmd
	if state.Tab == TabOverview {
		var cmd tea.Cmd
		state.RightView, cmd = state.RightView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		state.LeftView, cmd = state.LeftView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if state.ShowLogs {
		var cmd tea.Cmd
		state.LogView, cmd = state.LogView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		state.FollowLogs = state.LogView.AtBottom()
	}
	return state, tea.Batch(cmds...)
}

func hoveredZone(state State, msg tea.MouseMsg) string {
	for _, id := range hoverCandidates(state) {
		if zone.Get(id).InBounds(msg) {
			return id
		}
	}
	return ""
}

func hoverCandidates(state State) []string {
	if state.FilePickerOpen || state.ErrorModalText != "" {
		return nil
	}
	if state.UpdateModalOpen {
		return []string{zoneDialogUpdateLater, zoneDialogUpdateOpen}
	}
	if state.ConfirmQuit {
		return []string{zoneDialogQuitCancel, zoneDialogQuitAccept}
	}
	ids := []string{zoneTabOverview, zoneTabSettings}
	for _, target := range clickTargets(state) {
		ids = append(ids, target.id)
	}
	return ids
}

func clickTargets(state State) []zoneTarget {
	if state.Tab == TabOverview {
		targets := []zoneTarget{
			{id: zoneOverviewConnect, focus: state.ConnectIndex(), activate: true},
			{id: zoneOverviewMarkRead, focus: state.MarkReadIndex(), activate: true},
			{id: zoneOverviewLogs, focus: state.LogsIndex(), activate: true},
			{id: zoneOverviewQuit, focus: state.QuitIndex(), activate: true},
		}
		if state.ShowLogs {
			targets = append(targets, zoneTarget{id: zoneOverviewLogsDebug, focus: state.LogsDebugIndex(), activate: true})
		}
		return targets
	}

	targets := make([]zoneTarget, 0, len(state.Inputs)+settingsExtraFocusSlots)
	for i := range state.Inputs {
		targets = append(targets, zoneTarget{id: zoneSettingsInput(i), focus: i})
	}
	return append(targets,
		zoneTarget{id: zoneSettingsBrowse, focus: state.BrowseIndex(), activate: true},
		zoneTarget{id: zoneSettingsAutoConnect, focus: state.AutoConnectIndex(), activate: true},
		zoneTarget{id: zoneSettingsSave, focus: state.SaveIndex(), activate: true},
		zoneTarget{id: zoneSettingsCancel, focus: state.CancelIndex(), activate: true},
	)
}

package view

import tea "github.com/charmbracelet/bubbletea"

// ReduceInput forwards a message to the focused settings input. Modal
// surfaces consume their own keys in ReduceKey but still report no
// effect, so keystrokes are dropped here while one is open rather than
// leaking into the field underneath. Non-key messages (cursor blinks,
// paste events) always pass through.
func ReduceInput(state State, msg tea.Msg) (State, tea.Cmd, bool) {
	if state.Tab != TabSettings || state.Focus >= len(state.Inputs) {
		return state, nil, false
	}
	if _, isKey := msg.(tea.KeyMsg); isKey && state.modalOpen() {
		return state, nil, false
	}
	updated, cmd := state.Inputs[state.Focus].Update(msg)
	state.Inputs[state.Focus] = updated
	return state.WithDraftFromControls(), cmd, true
}

func (s State) modalOpen() bool {
	return s.ErrorModalText != "" || s.UpdateModalOpen || s.ConfirmQuit
}

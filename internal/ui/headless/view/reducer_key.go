package view

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type KeyEffect int

const (
	KeyEffectNone KeyEffect = iota
	KeyEffectRequestQuit
	KeyEffectActivateFocused
	KeyEffectSaveSettings
	KeyEffectMarkAllRead
	KeyEffectConfirmQuitAccept
	KeyEffectUpdateAccept
)

const confirmChoiceCount = 2

const confirmChoiceQuit = 1

const (
	UpdateChoiceLater = 0
	updateChoiceOpen  = 1
)

// reduceModalNav covers the keys the two-button dialogs share: esc
// closes, the toggle keys cycle the highlighted choice. Reports whether
// the key was consumed.
func (s *State) reduceModalNav(msg tea.KeyMsg, open *bool, choice *int) bool {
	switch {
	case msg.String() == "esc":
		*open = false
		return true
	case key.Matches(msg, s.Keys.ModalToggle):
		*choice = (*choice + 1) % confirmChoiceCount
		return true
	}
	return false
}

func ReduceKey(state State, msg tea.KeyMsg) (State, KeyEffect) {
	if state.ErrorModalText != "" {
		if msg.String() == "esc" || key.Matches(msg, state.Keys.Activate) {
			state.ErrorModalText = ""
		}
		return state, KeyEffectNone
	}

	if state.UpdateModalOpen {
		if state.reduceModalNav(msg, &state.UpdateModalOpen, &state.UpdateModalChoice) {
			return state, KeyEffectNone
		}
		if key.Matches(msg, state.Keys.Activate) {
			accepted := state.UpdateModalChoice == updateChoiceOpen
			state.UpdateModalOpen = false
			if accepted {
				return state, KeyEffectUpdateAccept
			}
		}
		return state, KeyEffectNone
	}

	if state.ConfirmQuit {
		if state.reduceModalNav(msg, &state.ConfirmQuit, &state.ConfirmQuitChoice) {
			return state, KeyEffectNone
		}
		if key.Matches(msg, state.Keys.Activate) {
			// Accepting quit leaves the dialog up; the shutdown path
			// owns dismissing it.
			if state.ConfirmQuitChoice == confirmChoiceQuit {
				return state, KeyEffectConfirmQuitAccept
			}
			state.ConfirmQuit = false
		}
		return state, KeyEffectNone
	}

	switch {
	case key.Matches(msg, state.Keys.Quit):
		return state, KeyEffectRequestQuit
	case key.Matches(msg, state.Keys.MarkRead):
		return state, KeyEffectMarkAllRead
	case msg.String() == "ctrl+f" && state.Tab == TabOverview && state.ShowLogs:
		state.FollowLogs = true
		state.LogView.GotoBottom()
		return state, KeyEffectNone
	case msg.String() == "ctrl+s" && state.Tab == TabSettings:
		return state, KeyEffectSaveSettings
	case key.Matches(msg, state.Keys.PrevTab):
		state.Tab = TabOverview
		state.Focus = 0
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.NextTab):
		state.Tab = TabSettings
		state.Focus = 0
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.NextFocus):
		state.Focus = (state.Focus + 1) % state.FocusCount()
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.PrevFocus):
		state.Focus = (state.Focus + state.FocusCount() - 1) % state.FocusCount()
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.Activate):
		if state.Tab == TabOverview || state.Focus >= len(state.Inputs) {
			return state, KeyEffectActivateFocused
		}
	}

	return state, KeyEffectNone
}

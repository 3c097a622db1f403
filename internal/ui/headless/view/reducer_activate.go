package view

// ActivateEffect tells the outer update loop what an enter press or click on
// the focused control asks for. The reducer only mutates view state; side
// effects such as starting the notifier or opening dialogs stay with the
// caller.
type ActivateEffect int

const (
	ActivateEffectNone ActivateEffect = iota
	ActivateEffectStartNotifier
	ActivateEffectStopNotifier
	ActivateEffectMarkAllRead
	ActivateEffectRequestQuit
	ActivateEffectOpenBrowse
	ActivateEffectSaveSettings
	ActivateEffectDebugLevelChanged
)

// ReduceActivate applies an activation to whichever control holds focus on
// the current tab.
func ReduceActivate(state State, canConnect bool, running bool, connecting bool) (State, ActivateEffect) {
	if state.Tab == TabOverview {
		return reduceOverviewActivate(state, canConnect, running, connecting)
	}
	return reduceSettingsActivate(state)
}

func reduceOverviewActivate(state State, canConnect bool, running bool, connecting bool) (State, ActivateEffect) {
	switch state.Focus {
	case state.ConnectIndex():
		switch {
		case connecting:
			return state, ActivateEffectNone
		case !canConnect:
			state.ErrorModalText = "Base URL and API token are required."
			return state, ActivateEffectNone
		case running:
			return state, ActivateEffectStopNotifier
		default:
			return state, ActivateEffectStartNotifier
		}
	case state.MarkReadIndex():
		if !running {
			return state, ActivateEffectNone
		}
		return state, ActivateEffectMarkAllRead
	case state.LogsIndex():
		return state.withLogPanelToggled(), ActivateEffectNone
	case state.QuitIndex():
		return state, ActivateEffectRequestQuit
	case state.LogsDebugIndex():
		state.DebugOn = !state.DebugOn
		state.DraftSettings.Debug = state.DebugOn
		return state.withDirtyRecomputed(), ActivateEffectDebugLevelChanged
	default:
		return state, ActivateEffectNone
	}
}

func reduceSettingsActivate(state State) (State, ActivateEffect) {
	switch state.Focus {
	case state.BrowseIndex():
		return state, ActivateEffectOpenBrowse
	case state.AutoConnectIndex():
		state.AutoConn = !state.AutoConn
		state.DraftSettings.AutoConnect = state.AutoConn
		return state.withDirtyRecomputed(), ActivateEffectNone
	case state.SaveIndex():
		return state, ActivateEffectSaveSettings
	case state.CancelIndex():
		if !state.SettingsDirty {
			return state, ActivateEffectNone
		}
		return state.WithCancelDraft(), ActivateEffectNone
	default:
		return state, ActivateEffectNone
	}
}

// withLogPanelToggled shows or hides the log panel, resuming follow mode on
// show and clamping focus when the panel's extra focus slot disappears.
func (s State) withLogPanelToggled() State {
	s.ShowLogs = !s.ShowLogs
	if s.ShowLogs {
		s.FollowLogs = true
		s.LogView.GotoBottom()
	} else if s.Focus >= s.FocusCount() {
		s.Focus = s.FocusCount() - 1
	}
	return s
}

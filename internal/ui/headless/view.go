package headless

import headlessview "unpod-notifier/internal/ui/headless/view"

// runtimeView projects mutable runtime state into the render DTO consumed by the view package.
func (m *headlessModel) runtimeView() headlessview.Runtime {
	return headlessview.Runtime{
		BuildVersion: m.buildVersion,
		Running:      m.running,
		Connecting:   m.connecting,
		Status:       m.status,
		StatusKind:   int(m.kind),
		CanConnect:   m.canConnect(),
		Unread:       m.unread,
		Rows:         m.feedRows,
		FeedDetail:   m.feedDetail,
	}
}

// View is the Bubble Tea render entrypoint; rendering is delegated to the pure view package.
func (m *headlessModel) View() string {
	return headlessview.RenderApp(&m.ui, m.runtimeView())
}

package headless

import (
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"unpod-notifier/internal/notify"
)

// tuiBridge adapts the terminal bridge to a running Bubble Tea session.
// Toasts go out as escape sequences on stderr so they never interleave with
// the renderer that owns stdout; badge counts are forwarded into the program,
// which carries them in the window title. Counts that arrive before the
// program starts are replayed on attach.
type tuiBridge struct {
	*notify.TerminalBridge

	mu         sync.Mutex
	program    *tea.Program
	pending    int
	hasPending bool
}

func newTUIBridge() *tuiBridge {
	return &tuiBridge{
		TerminalBridge: notify.NewTerminalBridge(termenv.NewOutput(os.Stderr)),
	}
}

func (b *tuiBridge) attach(program *tea.Program) {
	b.mu.Lock()
	b.program = program
	pending, hasPending := b.pending, b.hasPending
	b.hasPending = false
	b.mu.Unlock()

	if hasPending && program != nil {
		program.Send(badgeMsg(pending))
	}
}

func (b *tuiBridge) SetBadge(count int) error {
	b.mu.Lock()
	program := b.program
	if program == nil {
		b.pending = count
		b.hasPending = true
	}
	b.mu.Unlock()

	if program != nil {
		program.Send(badgeMsg(count))
	}
	return nil
}

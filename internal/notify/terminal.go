package notify

import (
	"context"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// TerminalBridge raises notifications through the hosting terminal: OSC 777
// for the toast, the window title for the badge. Terminals without the
// notification extension quietly drop the sequence, which is the best a
// headless session can do.
type TerminalBridge struct {
	output *termenv.Output
	tty    bool
}

func NewTerminalBridge(output *termenv.Output) *TerminalBridge {
	if output == nil {
		output = termenv.DefaultOutput()
	}
	tty := false
	if f := output.TTY(); f != nil {
		tty = isatty.IsTerminal(f.Fd())
	}
	return &TerminalBridge{output: output, tty: tty}
}

func (b *TerminalBridge) NativeHost() bool { return false }

func (b *TerminalBridge) Notify(title, body string) error {
	if !b.tty {
		return &BridgeError{Op: "notify", Err: ErrNoTerminal}
	}
	b.output.Notify(title, body)
	return nil
}

func (b *TerminalBridge) SetBadge(count int) error {
	if !b.tty {
		return &BridgeError{Op: "badge", Err: ErrNoTerminal}
	}
	b.output.SetWindowTitle(BadgeTitle(count))
	return nil
}

func (b *TerminalBridge) RequestPermission(ctx context.Context) (PermissionState, error) {
	if !b.tty {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// Package notify delivers notifications and badge counts to whatever shell
// hosts the app. The desktop surface wraps the fyne application, the terminal
// surface emits escape sequences; exactly one is picked at bootstrap.
package notify

import (
	"context"
	"errors"
	"fmt"
)

type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionState) String() string {
	switch s {
	case PermissionUnknown:
		return "unknown"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return fmt.Sprintf("permission(%d)", int(s))
	}
}

// Bridge is the platform delivery surface.
type Bridge interface {
	// NativeHost reports whether a desktop shell backs this bridge.
	NativeHost() bool
	Notify(title, body string) error
	SetBadge(count int) error
	RequestPermission(ctx context.Context) (PermissionState, error)
}

// BridgeError wraps every failure a concrete bridge surfaces, so callers can
// tell delivery trouble apart from their own errors.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string { return fmt.Sprintf("notify %s: %v", e.Op, e.Err) }

func (e *BridgeError) Unwrap() error { return e.Err }

var (
	ErrNoTerminal = errors.New("no terminal attached")
	ErrNoWindow   = errors.New("no window to carry the badge")
)

// BadgeTitle renders the unread count into a window title.
func BadgeTitle(count int) string {
	if count <= 0 {
		return "Unpod Notifier"
	}
	return fmt.Sprintf("(%d) Unpod Notifier", count)
}

package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/muesli/termenv"
)

func TestBadgeTitle(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{0, "Unpod Notifier"},
		{-3, "Unpod Notifier"},
		{1, "(1) Unpod Notifier"},
		{42, "(42) Unpod Notifier"},
	}
	for _, tc := range cases {
		if got := BadgeTitle(tc.count); got != tc.want {
			t.Errorf("BadgeTitle(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestTerminalBridgeWithoutTTY(t *testing.T) {
	bridge := NewTerminalBridge(termenv.NewOutput(&bytes.Buffer{}))

	if bridge.NativeHost() {
		t.Fatal("NativeHost() = true for terminal bridge")
	}

	err := bridge.Notify("Build finished", "3 new notifications")
	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) || bridgeErr.Op != "notify" {
		t.Fatalf("Notify() = %v, want BridgeError with op notify", err)
	}
	if !errors.Is(err, ErrNoTerminal) {
		t.Fatalf("Notify() = %v, want ErrNoTerminal underneath", err)
	}

	err = bridge.SetBadge(2)
	if !errors.As(err, &bridgeErr) || bridgeErr.Op != "badge" {
		t.Fatalf("SetBadge() = %v, want BridgeError with op badge", err)
	}

	state, err := bridge.RequestPermission(context.Background())
	if err != nil || state != PermissionDenied {
		t.Fatalf("RequestPermission() = %s, %v, want denied, nil", state, err)
	}
}

func TestBridgeErrorFormatsOp(t *testing.T) {
	err := &BridgeError{Op: "badge", Err: ErrNoWindow}
	want := "notify badge: no window to carry the badge"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrNoWindow) {
		t.Fatal("errors.Is did not reach the wrapped error")
	}
}

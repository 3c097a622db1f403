//go:build !headless

package notify

import (
	"context"

	"fyne.io/fyne/v2"
)

// DesktopBridge wraps the fyne application the GUI surface already owns.
// The badge rides on the main window title; the tray mirror is the GUI
// controller's job, fed by the same unread callbacks.
type DesktopBridge struct {
	app fyne.App
	win fyne.Window
}

func NewDesktopBridge(app fyne.App, win fyne.Window) *DesktopBridge {
	if app == nil {
		panic("notify.NewDesktopBridge: fyne app must not be nil")
	}
	return &DesktopBridge{app: app, win: win}
}

func (b *DesktopBridge) NativeHost() bool { return true }

func (b *DesktopBridge) Notify(title, body string) error {
	b.app.SendNotification(fyne.NewNotification(title, body))
	return nil
}

func (b *DesktopBridge) SetBadge(count int) error {
	if b.win == nil {
		return &BridgeError{Op: "badge", Err: ErrNoWindow}
	}
	title := BadgeTitle(count)
	fyne.Do(func() { b.win.SetTitle(title) })
	return nil
}

func (b *DesktopBridge) RequestPermission(ctx context.Context) (PermissionState, error) {
	// Desktop shells deliver through the OS notification center without a
	// runtime prompt.
	return PermissionGranted, nil
}

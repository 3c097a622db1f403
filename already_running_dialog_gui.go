//go:build !headless

package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/ui/gui"
)

// showAlreadyRunningDialog puts up a minimal one-button window without
// booting the full controller; the real instance may be hiding in the
// tray.
func showAlreadyRunningDialog() {
	uiApp := app.New()
	uiApp.SetIcon(gui.AppIconResource())
	win := uiApp.NewWindow("Unpod Notifier")
	win.SetFixedSize(true)
	win.Resize(fyne.NewSize(420, 140))

	message := widget.NewLabel("Unpod Notifier is already running.\n(Check your system tray?)")
	message.Alignment = fyne.TextAlignCenter
	ok := widget.NewButton("OK", uiApp.Quit)
	buttonWrap := container.NewGridWrap(fyne.NewSize(104, 34), ok)
	buttonBar := container.NewHBox(layout.NewSpacer(), buttonWrap, spacerRect(3, 1))

	content := container.NewBorder(
		message,
		container.NewVBox(buttonBar, spacerRect(1, 3)),
		nil,
		nil,
		nil,
	)
	win.SetContent(container.NewPadded(content))
	win.SetCloseIntercept(uiApp.Quit)
	win.Show()
	uiApp.Run()
}

func spacerRect(w float32, h float32) *canvas.Rectangle {
	r := canvas.NewRectangle(nil)
	r.SetMinSize(fyne.NewSize(w, h))
	return r
}

//go:build !headless

package gui

import (
	_ "embed"

	"fyne.io/fyne/v2"
)

//go:embed assets/notifier-icon.png
var notifierIconPNG []byte

func notifierIconResource() fyne.Resource {
	return fyne.NewStaticResource("notifier-icon.png", notifierIconPNG)
}

func AppIconResource() fyne.Resource {
	return notifierIconResource()
}

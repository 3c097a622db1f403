//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Accent carried by toggles, focus rings, and selected tabs.
var notifierAccentColor = color.NRGBA{R: 94, G: 114, B: 235, A: 255}

type notifierTheme struct {
	base fyne.Theme
}

func newNotifierTheme() fyne.Theme {
	return &notifierTheme{base: theme.DefaultTheme()}
}

func (t *notifierTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if name == theme.ColorNamePrimary {
		return notifierAccentColor
	}
	return t.base.Color(name, variant)
}

func (t *notifierTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *notifierTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *notifierTheme) Size(name fyne.ThemeSizeName) float32 {
	return t.base.Size(name)
}

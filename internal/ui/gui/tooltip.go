//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const tooltipCursorGap = 10

// hoverTip is the single shared tooltip card, drawn on an overlay layer
// stacked above the window content. fyne has no native tooltips, so badge
// widgets report pointer events and this card trails the cursor.
type hoverTip struct {
	layer  *fyne.Container
	card   *fyne.Container
	shadow *canvas.Rectangle
	label  *widget.Label

	canvasSize func() fyne.Size
}

func newHoverTip(canvasSize func() fyne.Size) *hoverTip {
	t := &hoverTip{canvasSize: canvasSize}
	t.label = widget.NewLabel("")
	t.label.Wrapping = fyne.TextWrapOff
	bg := canvas.NewRectangle(color.NRGBA{R: 44, G: 44, B: 44, A: 250})
	t.shadow = canvas.NewRectangle(color.NRGBA{R: 0, G: 0, B: 0, A: 120})
	t.shadow.Hide()
	t.card = container.NewMax(bg, container.NewPadded(t.label))
	t.card.Hide()
	t.layer = container.NewWithoutLayout(t.shadow, t.card)
	return t
}

func (t *hoverTip) show(text string, anchor fyne.Position) {
	t.label.SetText(text)
	size := t.card.MinSize()
	t.card.Resize(size)
	t.place(anchor, size)
	t.shadow.Show()
	t.card.Show()
	t.layer.Refresh()
}

func (t *hoverTip) move(anchor fyne.Position) {
	if !t.card.Visible() {
		return
	}
	size := t.card.Size()
	if size.Width <= 0 || size.Height <= 0 {
		size = t.card.MinSize()
		t.card.Resize(size)
	}
	t.place(anchor, size)
	t.layer.Refresh()
}

func (t *hoverTip) hide() {
	t.shadow.Hide()
	t.card.Hide()
	t.layer.Refresh()
}

// place pins the card just past the cursor while keeping it inside the
// canvas, with the drop shadow offset beneath it.
func (t *hoverTip) place(anchor fyne.Position, size fyne.Size) {
	const pad = float32(4)
	bounds := t.canvasSize()
	x := min(max(pad, anchor.X+tooltipCursorGap), max(pad, bounds.Width-size.Width-pad))
	y := min(max(pad, anchor.Y+tooltipCursorGap), max(pad, bounds.Height-size.Height-pad))
	t.card.Move(fyne.NewPos(x, y))
	t.shadow.Resize(size)
	t.shadow.Move(fyne.NewPos(x+2, y+2))
}

//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const statusBadgeLabelGapX = float32(2)

type statusBadgeLabelOptions struct {
	DotNudgeY float32
	GapX      float32
}

// statusBadgeLabel pairs a compact status dot with a text label, used for
// the status line and the notification feed rows.
type statusBadgeLabel struct {
	object *fyne.Container
	badge  *statusBadge
	label  *widget.Label
}

func newStatusBadgeLabel(tips *hoverTip, text string, opts statusBadgeLabelOptions) *statusBadgeLabel {
	badge := newStatusBadge(tips)
	badge.SetCompact(true)
	badge.SetDotNudgeY(opts.DotNudgeY)
	label := widget.NewLabel(text)
	gapX := opts.GapX
	if gapX <= 0 {
		gapX = statusBadgeLabelGapX
	}
	gap := canvas.NewRectangle(color.Transparent)
	gap.SetMinSize(fyne.NewSize(gapX, 1))
	left := container.NewHBox(badge, gap)
	object := container.NewBorder(nil, nil, left, nil, label)
	return &statusBadgeLabel{
		object: object,
		badge:  badge,
		label:  label,
	}
}

func (s *statusBadgeLabel) Object() fyne.CanvasObject {
	return s.object
}

func (s *statusBadgeLabel) Label() *widget.Label {
	return s.label
}

func (s *statusBadgeLabel) SetText(text string) {
	s.label.SetText(text)
}

func (s *statusBadgeLabel) SetStatus(fill color.NRGBA, tooltip string) {
	s.badge.SetStatus(fill, tooltip)
}

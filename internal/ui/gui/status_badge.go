//go:build !headless

package gui

import (
	"image/color"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	badgeDotSize       = float32(12)
	badgeHoverTarget   = float32(24)
	badgeHoverSlack    = float32(3)
	badgeTooltipDelay  = 180 * time.Millisecond
	badgeTooltipLinger = 120 * time.Millisecond
)

// statusBadge is a colored dot with a delayed hover tooltip. Compact mode
// shrinks the hover target to the dot itself for use inside list rows.
type statusBadge struct {
	widget.BaseWidget

	fill    color.NRGBA
	tooltip string
	compact bool
	nudgeY  float32

	dot  *canvas.Circle
	tips *hoverTip

	hoverTimer  *time.Timer
	hideTimer   *time.Timer
	hoverSeq    atomic.Uint64
	shown       bool
	hovered     bool
	hoverPos    fyne.Position
	hasHoverPos bool
}

var _ desktop.Hoverable = (*statusBadge)(nil)

func newStatusBadge(tips *hoverTip) *statusBadge {
	b := &statusBadge{fill: statusIdleColor, tips: tips}
	b.dot = canvas.NewCircle(b.fill)
	b.ExtendBaseWidget(b)
	return b
}

func (b *statusBadge) SetStatus(fill color.NRGBA, tooltip string) {
	b.fill = fill
	b.tooltip = tooltip
	b.dot.FillColor = fill
	b.dot.Refresh()

	switch {
	case tooltip == "":
		b.hideTooltip()
	case b.shown:
		// Retarget the visible tooltip to the new text in place.
		b.showTooltipNow()
	}
}

func (b *statusBadge) SetCompact(compact bool) {
	b.compact = compact
	b.Refresh()
}

func (b *statusBadge) SetDotNudgeY(offset float32) {
	b.nudgeY = offset
	b.Refresh()
}

func (b *statusBadge) MinSize() fyne.Size {
	text := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{})
	height := max(text.Height, badgeDotSize+2)
	if b.compact {
		return fyne.NewSize(badgeDotSize+2*badgeHoverSlack, height)
	}
	return fyne.NewSize(badgeHoverTarget, max(height, badgeHoverTarget))
}

func (b *statusBadge) CreateRenderer() fyne.WidgetRenderer {
	return &statusBadgeRenderer{badge: b, objs: []fyne.CanvasObject{b.dot}}
}

type statusBadgeRenderer struct {
	badge *statusBadge
	objs  []fyne.CanvasObject
}

func (r *statusBadgeRenderer) Layout(size fyne.Size) {
	x := (size.Width - badgeDotSize) / 2
	y := (size.Height-badgeDotSize)/2 + r.badge.nudgeY
	r.badge.dot.Resize(fyne.NewSize(badgeDotSize, badgeDotSize))
	r.badge.dot.Move(fyne.NewPos(x, y))
}

func (r *statusBadgeRenderer) MinSize() fyne.Size {
	return r.badge.MinSize()
}

func (r *statusBadgeRenderer) Refresh() {
	r.Layout(r.badge.Size())
	canvas.Refresh(r.badge.dot)
}

func (r *statusBadgeRenderer) Objects() []fyne.CanvasObject {
	return r.objs
}

func (r *statusBadgeRenderer) Destroy() {}

// trackPointer records the cursor's canvas position and keeps any pending
// hide from firing while the pointer stays over the badge.
func (b *statusBadge) trackPointer(ev *desktop.MouseEvent) {
	b.hovered = true
	b.cancelHideTimer()
	if ev != nil {
		b.hoverPos = b.pointerCanvasPos(ev.Position)
		b.hasHoverPos = true
	}
}

func (b *statusBadge) MouseIn(ev *desktop.MouseEvent) {
	b.trackPointer(ev)
	b.scheduleTooltip()
}

func (b *statusBadge) MouseMoved(ev *desktop.MouseEvent) {
	b.trackPointer(ev)
	if b.shown {
		b.moveTooltip()
		return
	}
	b.scheduleTooltip()
}

func (b *statusBadge) MouseOut() {
	b.hovered = false
	b.cancelTooltipTimer()
	b.scheduleHideTooltip()
}

// afterOnUI runs fn on the fyne event loop after the delay. Timer callbacks
// fire on their own goroutine; every statusBadge field access has to hop
// back first.
func afterOnUI(delay time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(delay, func() { fyne.Do(fn) })
}

func (b *statusBadge) scheduleTooltip() {
	if b.tooltip == "" || b.shown || b.hoverTimer != nil {
		return
	}
	seq := b.hoverSeq.Add(1)
	b.hoverTimer = afterOnUI(badgeTooltipDelay, func() {
		b.hoverTimer = nil
		if b.hoverSeq.Load() == seq {
			b.showTooltipNow()
		}
	})
}

// cancelTooltipTimer bumps the sequence as well as stopping the timer: a
// stopped timer may already have queued its callback on the fyne loop, and
// the sequence check discards those.
func (b *statusBadge) cancelTooltipTimer() {
	b.hoverSeq.Add(1)
	if b.hoverTimer != nil {
		b.hoverTimer.Stop()
		b.hoverTimer = nil
	}
}

func (b *statusBadge) scheduleHideTooltip() {
	b.cancelHideTimer()
	b.hideTimer = afterOnUI(badgeTooltipLinger, func() {
		b.hideTimer = nil
		if b.hovered {
			return
		}
		b.hideTooltip()
		b.hasHoverPos = false
	})
}

func (b *statusBadge) cancelHideTimer() {
	if b.hideTimer != nil {
		b.hideTimer.Stop()
		b.hideTimer = nil
	}
}

func (b *statusBadge) showTooltipNow() {
	if b.tooltip == "" {
		b.hideTooltip()
		return
	}
	if b.tips != nil {
		b.tips.show(b.tooltip, b.tooltipAnchor())
	}
	b.shown = true
}

func (b *statusBadge) moveTooltip() {
	if b.shown && b.tips != nil {
		b.tips.move(b.tooltipAnchor())
	}
}

// tooltipAnchor prefers the live cursor position, falling back to the
// badge's right edge when no pointer position has been seen yet.
func (b *statusBadge) tooltipAnchor() fyne.Position {
	if b.hasHoverPos {
		return b.hoverPos
	}
	current := fyne.CurrentApp()
	if current == nil {
		return fyne.NewPos(0, 0)
	}
	pos := current.Driver().AbsolutePositionForObject(b)
	if pos == (fyne.Position{}) {
		pos = current.Driver().AbsolutePositionForObject(b.dot)
	}
	size := b.Size()
	return fyne.NewPos(pos.X+size.Width, pos.Y+size.Height/2)
}

func (b *statusBadge) pointerCanvasPos(local fyne.Position) fyne.Position {
	current := fyne.CurrentApp()
	if current == nil {
		return local
	}
	base := current.Driver().AbsolutePositionForObject(b)
	return fyne.NewPos(base.X+local.X, base.Y+local.Y)
}

func (b *statusBadge) hideTooltip() {
	if b.tips != nil {
		b.tips.hide()
	}
	b.shown = false
}

//go:build !headless

package gui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"unpod-notifier/internal/logging"
)

// dirPicker is a minimal folder chooser in its own window: a path entry, an
// Up button, and a list of subdirectories. The stock file dialog can't be
// limited to directories on every backend, so the picker walks the tree
// itself.
type dirPicker struct {
	app    fyne.App
	onPick func(path string)

	win     fyne.Window
	path    *widget.Entry
	list    *widget.List
	current string
	items   []string
}

func newDirPicker(uiApp fyne.App, onPick func(path string)) *dirPicker {
	return &dirPicker{app: uiApp, onPick: onPick}
}

// open shows the picker rooted at start, building the window on first use.
func (p *dirPicker) open(start string) {
	p.current = p.normalize(start)
	if p.win == nil {
		p.buildWindow()
	}
	p.path.SetText(p.current)
	p.refresh()
	p.win.Show()
	p.win.RequestFocus()
}

func (p *dirPicker) buildWindow() {
	p.win = p.app.NewWindow("Select Log Folder")
	p.win.Resize(fyne.NewSize(760, 520))

	p.path = widget.NewEntry()
	p.path.OnSubmitted = func(value string) {
		p.enter(value)
	}
	upButton := widget.NewButton("Up", func() {
		parent := filepath.Dir(p.current)
		if parent == "" || parent == p.current {
			return
		}
		p.enter(parent)
	})
	useCurrent := widget.NewButton("Use Current Folder", func() {
		p.onPick(p.current)
		p.win.Hide()
	})
	closeButton := widget.NewButton("Close", p.win.Hide)

	p.list = widget.NewList(
		func() int { return len(p.items) },
		func() fyne.CanvasObject { return widget.NewLabel("directory") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(p.items[id])
		},
	)
	p.list.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(p.items) {
			return
		}
		p.enter(filepath.Join(p.current, p.items[id]))
	}

	header := container.NewBorder(nil, nil, upButton, nil, p.path)
	actions := container.NewHBox(useCurrent, closeButton)
	p.win.SetContent(container.NewBorder(header, actions, nil, nil, p.list))
}

// enter navigates to candidate and reloads the subdirectory list.
func (p *dirPicker) enter(candidate string) {
	p.current = p.normalize(candidate)
	p.path.SetText(p.current)
	p.refresh()
}

// normalize returns candidate when it is an existing directory, otherwise
// falling back to the default log location and then the home dir.
func (p *dirPicker) normalize(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		if fallback, err := logging.DefaultLogDirPath(); err == nil {
			candidate = fallback
		}
	}
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return filepath.Clean(candidate)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Clean(home)
	}
	return "/"
}

func (p *dirPicker) refresh() {
	entries, err := os.ReadDir(p.current)
	if err != nil {
		p.items = nil
		p.list.Refresh()
		return
	}
	items := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			items = append(items, entry.Name())
		}
	}
	sort.Strings(items)
	p.items = items
	p.list.Refresh()
}

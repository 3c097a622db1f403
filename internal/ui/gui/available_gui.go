//go:build !headless

package gui

// Available reports whether this binary carries the desktop UI.
func Available() bool { return true }

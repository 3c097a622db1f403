//go:build headless

package gui

import (
	"context"

	"unpod-notifier/internal/config"
)

// Available reports whether this binary carries the desktop UI.
func Available() bool { return false }

// Run keeps headless-tag builds linking; main falls back to the TUI whenever
// Available reports false, so this is never reached.
func Run(context.Context, string, config.Options) {}

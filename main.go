package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/ui/gui"
	"unpod-notifier/internal/ui/headless"

	flags "github.com/jessevdk/go-flags"
)

var BuildVersion = "dev"

func main() {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, err := config.ParseOptions()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lock, lockedByOther, lockErr := acquireInstanceLock()
	if lockErr != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize single-instance lock:", lockErr)
		os.Exit(2)
	}
	if lockedByOther {
		if !gui.Available() || opts.Headless {
			fmt.Fprintln(os.Stderr, "Unpod Notifier is already running.")
		} else {
			hideAndDetachConsoleForGUI()
			showAlreadyRunningDialog()
		}
		os.Exit(1)
	}
	defer func() {
		_ = lock.Release()
	}()

	// Headless-tag builds always run the TUI; runtime UI selection only
	// exists in desktop builds.
	if !gui.Available() || opts.Headless {
		headless.Run(rootCtx, BuildVersion, opts)
		return
	}
	hideAndDetachConsoleForGUI()
	gui.Run(rootCtx, BuildVersion, opts)
}

//go:build windows

package main

import (
	"golang.org/x/sys/windows"
)

// hideAndDetachConsoleForGUI hides the console window a double-clicked
// binary inherits, then detaches from it so the desktop surface does not
// leave a stray terminal behind the main window.
func hideAndDetachConsoleForGUI() {
	kernel32 := windows.NewLazySystemDLL("kernel32.dll")
	user32 := windows.NewLazySystemDLL("user32.dll")
	getConsoleWindow := kernel32.NewProc("GetConsoleWindow")
	freeConsole := kernel32.NewProc("FreeConsole")
	showWindow := user32.NewProc("ShowWindow")

	const swHide = 0

	if hwnd, _, _ := getConsoleWindow.Call(); hwnd != 0 {
		_, _, _ = showWindow.Call(hwnd, swHide)
	}
	_, _, _ = freeConsole.Call()
}

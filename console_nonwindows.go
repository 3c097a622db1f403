//go:build !windows

package main

// Console detachment is a Windows concern; elsewhere the process keeps
// whatever terminal it was started from.
func hideAndDetachConsoleForGUI() {}

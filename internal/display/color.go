// Package display renders uyan's terminal output: ANSI colors, aligned
// tables and Turkish-aware casing for prayer labels.
//
// Colors honour NO_COLOR (https://no-color.org/) and are switched off when
// stdout is not a terminal. FORCE_COLOR turns them on regardless.
package display

import (
	"fmt"
	"os"
)

const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
)

var enabled = shouldEnable()

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return isTerminal(os.Stdout)
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// SetEnabled overrides the detected color state, e.g. for --json output.
func SetEnabled(b bool) { enabled = b }

// Enabled reports whether color output is active.
func Enabled() bool { return enabled }

func wrap(code, text string) string {
	if !enabled {
		return text
	}
	return code + text + reset
}

func Bold(text string) string    { return wrap(bold, text) }
func Dim(text string) string     { return wrap(dim, text) }
func Red(text string) string     { return wrap(red, text) }
func Green(text string) string   { return wrap(green, text) }
func Yellow(text string) string  { return wrap(yellow, text) }
func Magenta(text string) string { return wrap(magenta, text) }
func Cyan(text string) string    { return wrap(cyan, text) }

// Accent highlights the next prayer (bold cyan).
func Accent(text string) string { return wrap(bold+cyan, text) }

// Boldf formats and bolds a string.
func Boldf(format string, a ...any) string {
	return Bold(fmt.Sprintf(format, a...))
}

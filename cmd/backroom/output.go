package main

import (
	"fmt"
	"io"
	"os"

	"github.com/uwillc/backroom/internal/directory"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// Line markers for CLI feedback. Messages go to stderr so stdout stays
// clean for JSON and listings.
const (
	markOK   = "✓ "
	markFail = "✗ "
	markWarn = "⚠ "
	markStep = "→ "
)

func writeMarked(w io.Writer, color, mark, format string, args ...any) {
	fmt.Fprintln(w, colorize(color, mark+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) {
	writeMarked(os.Stderr, colorGreen, markOK, format, args...)
}

func printError(format string, args ...any) {
	writeMarked(os.Stderr, colorRed, markFail, format, args...)
}

func printWarning(format string, args ...any) {
	writeMarked(os.Stderr, colorYellow, markWarn, format, args...)
}

func printStep(format string, args ...any) {
	writeMarked(os.Stderr, colorCyan, markStep, format, args...)
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// requestStatus renders a connection request status in the color of its
// outcome: pending yellow, accepted green, declined red.
func requestStatus(s directory.Status) string {
	switch s {
	case directory.StatusAccepted:
		return colorize(colorGreen, string(s))
	case directory.StatusDeclined:
		return colorize(colorRed, string(s))
	case directory.StatusPending:
		return colorize(colorYellow, string(s))
	default:
		return string(s)
	}
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCII logo for the application
const ASCIILogo = `
  ██╗ ██████╗ ██████╗  ██████╗ ███████╗████████╗
  ██║██╔════╝ ██╔══██╗██╔═══██╗██╔════╝╚══██╔══╝
  ██║██║  ███╗██████╔╝██║   ██║███████╗   ██║
  ██║██║   ██║██╔═══╝ ██║   ██║╚════██║   ██║
  ██║╚██████╔╝██║     ╚██████╔╝███████║   ██║
  ╚═╝ ╚═════╝ ╚═╝      ╚═════╝ ╚══════╝   ╚═╝
      public post lookup and download
`

var (
	mu      sync.RWMutex
	out     io.Writer = os.Stderr
	quiet   bool
	noColor bool
)

// SetOutput redirects status output, which goes to stderr by default so
// that stdout stays machine readable. A nil w restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return quiet
}

// SetNoColor disables ANSI colors
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.RLock()
		plain := noColor
		mu.RUnlock()
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func emit(errorLevel bool, text string) {
	mu.RLock()
	w, q := out, quiet
	mu.RUnlock()
	if q && !errorLevel {
		return
	}
	fmt.Fprintln(w, text)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	emit(false, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg += ": " + fmt.Sprintf("%v", args[0])
	}
	emit(true, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(false, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	emit(false, fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg += ": " + fmt.Sprintf("%v", args[0])
	}
	emit(false, Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(false, Magenta(msg))
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

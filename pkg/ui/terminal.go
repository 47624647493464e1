package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"igproxy/pkg/history"
	"igproxy/pkg/models"
)

// Banner is printed when the gateway starts
const Banner = `
    ╔══════════════════════════════════════════════╗
    ║   igproxy :: instagram media gateway         ║
    ╚══════════════════════════════════════════════╝
`

var (
	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	noColor bool
)

// SetOutput redirects everything this package prints
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetNoColor disables ANSI colour codes
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
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
		disabled := noColor
		mu.RUnlock()
		if disabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintBanner prints the startup banner
func PrintBanner() {
	fmt.Fprint(writer(), Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(writer(), Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(), Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(writer(), Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(writer(), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(writer(), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(writer(), Magenta(msg))
}

// PrintResult prints a media result with one line per download option
func PrintResult(r *models.MediaResult) {
	w := writer()
	PrintInfo("URL", r.OriginalURL)
	PrintInfo("Type", string(r.Type))
	if r.Thumbnail != "" {
		PrintInfo("Thumbnail", r.Thumbnail)
	}
	fmt.Fprintln(w, Cyan("Downloads:"))
	for i, opt := range r.DownloadOptions {
		fmt.Fprintf(w, "  %d. %-10s %-10s %s\n", i+1, Yellow(opt.Quality), Dim(opt.Size), opt.URL)
	}
}

// PrintHistory prints remembered results, most recent first
func PrintHistory(entries []history.Entry) {
	w := writer()
	if len(entries) == 0 {
		fmt.Fprintln(w, Dim("No history yet"))
		return
	}
	for i, e := range entries {
		options := make([]string, 0, len(e.Result.DownloadOptions))
		for _, opt := range e.Result.DownloadOptions {
			options = append(options, opt.Quality)
		}
		fmt.Fprintf(w, "%d. %s %s %s\n",
			i+1,
			Dim(e.FetchedAt.Local().Format(time.DateTime)),
			Yellow(string(e.Result.Type)),
			e.Result.OriginalURL,
		)
		if len(options) > 0 {
			fmt.Fprintf(w, "   %s\n", Dim(strings.Join(options, ", ")))
		}
	}
}

package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// BarSink renders a single transfer as a terminal progress bar.
type BarSink struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// NewBarSink creates a bar for a transfer of total bytes (-1 when unknown).
// When out is not a terminal the bar is rendered to io.Discard and only the
// completion line is printed.
func NewBarSink(total int64, description string, out *os.File) *BarSink {
	var w io.Writer = io.Discard
	if IsTerminal(out) {
		enableANSIOnWindows(out)
		w = out
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &BarSink{bar: bar, out: out}
}

// Notify moves the bar to n.Bytes and completes it on EndOfFile.
func (b *BarSink) Notify(n Notification) {
	_ = b.bar.Set64(n.Bytes)
	if n.EndOfFile {
		_ = b.bar.Finish()
	}
}

// Fail prints err below the bar.
func (b *BarSink) Fail(err error) {
	if err != nil {
		fmt.Fprintf(b.out, "\nError: %v\n", err)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// truncatePath shortens a path to its last maxComponents elements.
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows for ANSI escape sequences
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}

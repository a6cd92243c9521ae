package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DownloadUI manages multiple concurrent project download bars using mpb
type DownloadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	totalFiles int
	completed  int32
}

// DownloadBar is the bar of a single project download. It implements Sink.
type DownloadBar struct {
	bar        *mpb.Bar
	ui         *DownloadUI
	index      int
	name       string
	localPath  string
	startTime  time.Time
	lastUpdate time.Time

	mu        sync.Mutex
	lastBytes int64
}

// NewDownloadUI creates a new download UI with the given number of total files
func NewDownloadUI(totalFiles int) *DownloadUI {
	isTerminal := IsTerminal(os.Stderr)

	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		// Non-TTY: disable progress bars, just use text output
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &DownloadUI{
		progress:   p,
		out:        os.Stdout,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddBar creates a new bar for a project download. size may be 0 when the
// server does not announce a length.
func (u *DownloadUI) AddBar(index int, name, localPath string, size int64) *DownloadBar {
	destPath := truncatePath(localPath, 2)

	db := &DownloadBar{
		ui:         u,
		index:      index,
		name:       name,
		localPath:  localPath,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		db.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s ← %s", index, u.totalFiles, destPath, name), decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Downloading [%d/%d]: %s ← %s\n", index, u.totalFiles, destPath, name)
	}

	return db
}

// Notify updates the bar from a progress notification.
func (d *DownloadBar) Notify(n Notification) {
	if d.bar == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.bar.EwmaSetCurrent(n.Bytes, now.Sub(d.lastUpdate))
	d.lastBytes = n.Bytes
	d.lastUpdate = now

	if n.EndOfFile {
		// A negative total takes the current value, which also covers unknown sizes.
		d.bar.SetTotal(-1, true)
	}
}

// Complete marks the download as finished and prints a summary line.
func (d *DownloadBar) Complete(err error) {
	elapsed := time.Since(d.startTime)
	d.mu.Lock()
	written := d.lastBytes
	d.mu.Unlock()

	var msg string
	if err == nil {
		if d.bar != nil && !d.bar.Completed() {
			d.bar.SetTotal(-1, true)
		}
		msg = fmt.Sprintf("✓ %s ← %s (%.1f KiB, %s)\n",
			truncatePath(d.localPath, 2), d.name,
			float64(written)/1024, elapsed.Round(time.Millisecond))
	} else {
		if d.bar != nil {
			d.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s ← %s: %v\n", truncatePath(d.localPath, 2), d.name, err)
	}

	if d.ui.isTerminal {
		_, _ = d.ui.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(d.ui.out, msg)
	}

	atomic.AddInt32(&d.ui.completed, 1)
}

// Wait blocks until all progress bars complete
func (u *DownloadUI) Wait() {
	u.progress.Wait()
}

// Writer returns an io.Writer that safely prints above the progress bars
func (u *DownloadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// GetCompleted returns the number of completed downloads
func (u *DownloadUI) GetCompleted() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal returns whether output is to a terminal
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}

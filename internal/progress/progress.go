// Package progress renders download progress and a spinner for long
// network calls. Live output is only drawn on a terminal; other writers
// get a single summary line.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// lineWidth is the width cleared before redrawing a status line.
const lineWidth = 80

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminalFunc(int(f.Fd()))
}

// Writer wraps an io.Writer with progress tracking and display
type Writer struct {
	writer    io.Writer
	output    io.Writer
	label     string
	total     int64
	written   int64
	live      bool
	startTime time.Time
	lastPrint time.Time
	mu        sync.Mutex
}

// NewWriter creates a progress writer for a transfer of total bytes,
// reported on output under label. If total is <= 0, no percentage or
// ETA can be calculated.
func NewWriter(w io.Writer, total int64, output io.Writer, label string) *Writer {
	return &Writer{
		writer:    w,
		output:    output,
		label:     label,
		total:     total,
		live:      IsTerminal(output),
		startTime: time.Now(),
	}
}

// Write implements io.Writer and updates progress display
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	if n > 0 {
		pw.mu.Lock()
		pw.written += int64(n)
		if pw.live {
			pw.printProgress(time.Now())
		}
		pw.mu.Unlock()
	}
	return n, err
}

// Finish clears the progress line and prints the final size.
func (pw *Writer) Finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.live {
		fmt.Fprintf(pw.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	}
	fmt.Fprintf(pw.output, "%s: %s in %s\n", pw.label, humanize.Bytes(uint64(pw.written)),
		time.Since(pw.startTime).Round(100*time.Millisecond))
}

// printProgress redraws the status line at most ten times per second.
func (pw *Writer) printProgress(now time.Time) {
	if now.Sub(pw.lastPrint) < 100*time.Millisecond {
		return
	}
	pw.lastPrint = now

	elapsed := now.Sub(pw.startTime).Seconds()
	if elapsed < 0.1 {
		return
	}
	fmt.Fprint(pw.output, pw.line(float64(pw.written)/elapsed))
}

// line formats the status line for the given speed in bytes per second.
func (pw *Writer) line(speed float64) string {
	var line string
	if pw.total > 0 {
		percent := float64(pw.written) / float64(pw.total) * 100
		if percent > 100 {
			percent = 100
		}

		eta := "--:--"
		if speed > 0 {
			eta = formatDuration(float64(pw.total-pw.written) / speed)
		}

		line = fmt.Sprintf("\r%s [%s] %3.0f%% (%s/%s) %s/s ETA: %s",
			pw.label,
			bar(percent, 30),
			percent,
			humanize.Bytes(uint64(pw.written)),
			humanize.Bytes(uint64(pw.total)),
			humanize.Bytes(uint64(speed)),
			eta,
		)
	} else {
		line = fmt.Sprintf("\r%s %s (%s/s)",
			pw.label,
			humanize.Bytes(uint64(pw.written)),
			humanize.Bytes(uint64(speed)),
		)
	}

	// Pad with spaces to clear any remaining characters from previous line
	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	return line
}

func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1)
}

// formatDuration formats seconds into MM:SS or HH:MM:SS format
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

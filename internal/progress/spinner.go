package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerInterval = 100 * time.Millisecond

// Spinner shows a message while a network call is in flight. Off a
// terminal the message is printed once without animation.
type Spinner struct {
	mu      sync.Mutex
	output  io.Writer
	message string
	done    chan struct{}
	stopped bool
	isTTY   bool
}

// NewSpinner returns a spinner writing to output, or os.Stderr when
// output is nil.
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{
		output: output,
		done:   make(chan struct{}),
		isTTY:  IsTerminal(output),
	}
}

// Start shows message until Stop is called.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	s.stopped = false
	s.mu.Unlock()

	if !s.isTTY {
		fmt.Fprintf(s.output, "%s\n", message)
		return
	}

	go s.animate()
}

// Stop halts the spinner and prints message unless it is empty. Calls
// after the first are ignored.
func (s *Spinner) Stop(message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.done)

	if s.isTTY {
		fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	}
	if message != "" {
		fmt.Fprintf(s.output, "%s\n", message)
	}
}

// animate runs the spinner animation loop.
func (s *Spinner) animate() {
	frame := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			char := spinnerFrames[frame%len(spinnerFrames)]
			line := fmt.Sprintf("\r%s %s", char, msg)
			if len(line) < lineWidth {
				line += strings.Repeat(" ", lineWidth-len(line))
			}
			fmt.Fprint(s.output, line)

			frame++
		}
	}
}

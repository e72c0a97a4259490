package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer written by the animation goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func ttySpinner(out *syncBuffer) *Spinner {
	s := NewSpinner(out)
	s.isTTY = true
	return s
}

func TestSpinner_TTY_StartStop(t *testing.T) {
	output := &syncBuffer{}
	s := ttySpinner(output)
	s.Start("Looking up cyrus-sasl-2.1.28")

	// Let the spinner animate for a bit
	time.Sleep(350 * time.Millisecond)

	s.Stop("Found cyrus-sasl-2.1.28")

	content := output.String()
	if !strings.Contains(content, "| Looking up cyrus-sasl-2.1.28") {
		t.Errorf("spinner output should contain an animated frame, got %q", content)
	}
	if !strings.HasSuffix(content, "\rFound cyrus-sasl-2.1.28\n") {
		t.Errorf("spinner should clear the line before the final message, got %q", content)
	}
}

func TestSpinner_StopEmptyMessage(t *testing.T) {
	output := &syncBuffer{}
	s := ttySpinner(output)
	s.Start("Working")
	s.Stop("")

	if strings.HasSuffix(output.String(), "\n") {
		t.Errorf("empty stop message should print nothing after clearing, got %q", output.String())
	}
}

func TestSpinner_NonTTY(t *testing.T) {
	output := &syncBuffer{}
	s := NewSpinner(output)
	s.Start("Looking up release")

	time.Sleep(250 * time.Millisecond)
	s.Stop("Done.")

	if got := output.String(); got != "Looking up release\nDone.\n" {
		t.Errorf("non-TTY output = %q", got)
	}
}

func TestSpinner_DoubleStop(t *testing.T) {
	output := &syncBuffer{}
	s := ttySpinner(output)
	s.Start("Working")
	s.Stop("first")
	s.Stop("second")

	content := output.String()
	if strings.Contains(content, "second") {
		t.Error("second Stop should be a no-op")
	}
}

func TestNewSpinner_NilOutput(t *testing.T) {
	s := NewSpinner(nil)
	if s.output == nil {
		t.Error("nil output should default to stderr")
	}
}

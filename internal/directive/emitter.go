package directive

import (
	"fmt"
	"io"
	"sync"
)

// Emitter prints directives as they are produced and keeps them for the
// generated files written at the end of a run.
type Emitter struct {
	mu      sync.Mutex
	w       io.Writer
	emitted []Directive
}

// NewEmitter returns an Emitter writing to w. A nil w only collects.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit prints and records each directive in order.
func (e *Emitter) Emit(ds ...Directive) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range ds {
		if e.w != nil {
			if _, err := fmt.Fprintln(e.w, d.String()); err != nil {
				return fmt.Errorf("write directive: %w", err)
			}
		}
		e.emitted = append(e.emitted, d)
	}
	return nil
}

// Directives returns everything emitted so far.
func (e *Emitter) Directives() []Directive {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Directive(nil), e.emitted...)
}

// Filter returns the emitted directives with the given key.
func Filter(ds []Directive, key string) []Directive {
	var out []Directive
	for _, d := range ds {
		if d.Key == key {
			out = append(out, d)
		}
	}
	return out
}

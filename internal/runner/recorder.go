package runner

import (
	"context"
	"sync"
)

// Recorder is a Runner that records commands instead of executing them.
// Respond, when set, supplies the output and error for each command.
type Recorder struct {
	Respond func(Command) (string, error)

	mu       sync.Mutex
	commands []Command
}

// Commands returns the recorded commands in invocation order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

func (r *Recorder) record(c Command) (string, error) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
	if r.Respond == nil {
		return "", nil
	}
	return r.Respond(c)
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, c Command) (string, error) {
	return r.record(c)
}

// Output implements Runner.
func (r *Recorder) Output(_ context.Context, c Command) ([]byte, error) {
	out, err := r.record(c)
	return []byte(out), err
}

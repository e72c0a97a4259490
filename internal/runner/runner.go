// Package runner executes the external tools the build drives: configure,
// make, nmake, pkg-config, and the C preprocessor.
package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"golang.org/x/term"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/log"
)

// Command describes one external invocation.
type Command struct {
	// Step names the command in error messages (e.g., "configure", "make lib").
	Step string
	Name string
	Args []string
	Dir  string

	// Env overlays the current process environment.
	Env map[string]string
}

// String returns the shell-quoted command line.
func (c Command) String() string {
	return shellescape.QuoteCommand(append([]string{c.Name}, c.Args...))
}

// Runner runs commands. Failures are reported as tool errors naming the step.
type Runner interface {
	// Run executes the command and returns its combined output.
	Run(ctx context.Context, cmd Command) (string, error)

	// Output executes the command and returns stdout only. Stderr is
	// attached to the error on failure.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	Logger log.Logger

	// Stream, when set, receives combined output as it is produced.
	Stream io.Writer
}

// New returns an Exec runner that streams to stderr when it is a terminal.
func New(logger log.Logger) *Exec {
	return &Exec{Logger: logger, Stream: StreamIfTerminal(os.Stderr)}
}

// StreamIfTerminal returns f when it is attached to a terminal, nil otherwise.
func StreamIfTerminal(f *os.File) io.Writer {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return f
	}
	return nil
}

func (e *Exec) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	return cmd
}

func (e *Exec) logStart(c Command) {
	l := log.OrDefault(e.Logger)
	if len(c.Env) > 0 {
		l.Debug("command environment", "step", c.Step, "env", envString(c.Env))
	}
	l.Info("running", "step", c.Step, "dir", c.Dir, "cmd", c.String())
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, c Command) (string, error) {
	e.logStart(c)
	cmd := e.command(ctx, c)

	var buf bytes.Buffer
	var w io.Writer = &buf
	if e.Stream != nil {
		w = io.MultiWriter(&buf, e.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	start := time.Now()
	err := cmd.Run()
	log.OrDefault(e.Logger).Debug("finished", "step", c.Step, "elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil {
		return buf.String(), builderr.Tool(c.Step, err, buf.String())
	}
	return buf.String(), nil
}

// Output implements Runner.
func (e *Exec) Output(ctx context.Context, c Command) ([]byte, error) {
	e.logStart(c)
	cmd := e.command(ctx, c)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), builderr.Tool(c.Step, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// MergeEnv returns base with every key in overrides replaced or appended.
// base is not modified.
func MergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, len(base), len(base)+len(overrides))
	copy(out, base)

	idx := make(map[string]int, len(out))
	for i, kv := range out {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kv := k + "=" + overrides[k]
		if i, ok := idx[k]; ok {
			out[i] = kv
		} else {
			out = append(out, kv)
		}
	}
	return out
}

func envString(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+shellescape.Quote(env[k]))
	}
	return strings.Join(parts, " ")
}

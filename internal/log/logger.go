// Package log provides structured logging for sasl2-build.
//
// This package defines a Logger interface backed by Go's stdlib slog.
// Every acquisition step (staging, configure, make, discovery probes,
// header validation) accepts a Logger, with a global default for
// convenience.
//
// Output semantics:
//   - Directives (stdout): the sasl2:key=value lines consumed by the caller
//   - Diagnostic logging (stderr): Debug, Info, Warn, Error messages
//
// Keeping diagnostics off stdout matters: the orchestrating build parses
// stdout line by line and must never see log records there.
//
// Verbosity levels:
//   - ERROR (--quiet): Errors only
//   - WARN (default): Warnings
//   - INFO (--verbose): Which strategy ran, which paths matched
//   - DEBUG (--debug): Every probed path and external command line
package log

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs at DEBUG level. Use for probed paths, rejected
	// candidates and command lines.
	Debug(msg string, args ...any)

	// Info logs at INFO level. Use for the strategy that matched and the
	// paths it produced.
	Info(msg string, args ...any)

	// Warn logs at WARN level. Use for ignored configuration values such
	// as an unparsable NUM_JOBS.
	Warn(msg string, args ...any)

	// Error logs at ERROR level. Use for failures that abort the build.
	Error(msg string, args ...any)

	// With returns a Logger with additional context attributes.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewText creates a text Logger writing records at or above level to w.
func NewText(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LevelFromFlags maps the CLI verbosity flags to a slog level.
// The most verbose flag wins when several are set.
func LevelFromFlags(quiet, verbose, debug bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (s *slogLogger) Debug(msg string, args ...any) {
	s.l.Debug(msg, args...)
}

func (s *slogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

func (s *slogLogger) Warn(msg string, args ...any) {
	s.l.Warn(msg, args...)
}

func (s *slogLogger) Error(msg string, args ...any) {
	s.l.Error(msg, args...)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup.
// Returns a noop logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Call it once from main after the
// verbosity flags are parsed.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l Logger) Logger {
	if l != nil {
		return l
	}
	return Default()
}

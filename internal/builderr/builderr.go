// Package builderr defines the failure taxonomy shared by every acquisition
// step. None of these errors are recoverable: the caller prints them and
// aborts the build.
package builderr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind classifies acquisition failures for formatting and exit codes.
type Kind int

const (
	// KindMissingEnv indicates required build metadata (HOST, TARGET, OUT_DIR) is absent
	KindMissingEnv Kind = iota
	// KindTool indicates an external step (copy, configure, make, nmake, pkg-config, cc) failed
	KindTool
	// KindDiscoveryExhausted indicates no discovery strategy found a usable library
	KindDiscoveryExhausted
	// KindVersionMismatch indicates the resolved headers describe an unsupported version
	KindVersionMismatch
	// KindMalformedProbe indicates the version probe produced unparsable output
	KindMalformedProbe
	// KindUnsupported indicates a feature combination the platform cannot build
	KindUnsupported
	// KindConfig indicates an invalid feature file, toggle, or flag value
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindMissingEnv:
		return "missing-env"
	case KindTool:
		return "tool"
	case KindDiscoveryExhausted:
		return "discovery-exhausted"
	case KindVersionMismatch:
		return "version-mismatch"
	case KindMalformedProbe:
		return "malformed-probe"
	case KindUnsupported:
		return "unsupported"
	case KindConfig:
		return "config"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified acquisition failure.
type Error struct {
	Kind    Kind
	Step    string // Failing step for KindTool (e.g., "configure", "make lib")
	Message string
	Output  string // Captured tool output, if any
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Step != "" {
		sb.WriteString(e.Step)
		sb.WriteString(" failed")
		if e.Message != "" {
			sb.WriteString(": ")
		}
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}
		sb.WriteString(e.Err.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		sb.WriteString("\nOutput: ")
		sb.WriteString(out)
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain support
func (e *Error) Unwrap() error {
	return e.Err
}

// MissingEnv reports an absent required environment variable.
func MissingEnv(name string) error {
	return errors.WithHintf(
		&Error{Kind: KindMissingEnv, Message: fmt.Sprintf("environment variable %s is not set", name)},
		"set %s or pass the matching command-line flag", name)
}

// Tool reports a failed external step. output is the captured combined
// output of the command and may be empty.
func Tool(step string, err error, output string) error {
	return &Error{Kind: KindTool, Step: step, Err: err, Output: output}
}

// Exhausted reports that discovery found nothing. Each hint becomes a
// remediation suggestion.
func Exhausted(message string, hints ...string) error {
	var err error = &Error{Kind: KindDiscoveryExhausted, Message: message}
	for _, h := range hints {
		err = errors.WithHint(err, h)
	}
	return err
}

// VersionMismatch reports headers outside the supported range.
func VersionMismatch(detected, supported string) error {
	return errors.WithHintf(
		&Error{
			Kind:    KindVersionMismatch,
			Message: fmt.Sprintf("system libsasl is v%s, but sasl2-build requires %s", detected, supported),
		},
		"point SASL2_LIB_DIR/SASL2_INCLUDE_DIR at a libsasl2 in %s, or enable the vendored feature", supported)
}

// MalformedProbe reports unusable version probe output.
func MalformedProbe(format string, args ...any) error {
	return &Error{Kind: KindMalformedProbe, Message: fmt.Sprintf(format, args...)}
}

// Unsupported reports a combination the selected platform cannot build.
func Unsupported(format string, args ...any) error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

// Config reports invalid configuration input.
func Config(err error, format string, args ...any) error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Hints returns every remediation hint attached anywhere in err's chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}

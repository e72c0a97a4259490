package main

import (
	"errors"
	"os"

	"github.com/tsukumogami/sasl2/internal/builderr"
)

// Exit codes for different error types.
// These enable build drivers to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error
	ExitUsage = 2

	// ExitMissingEnv indicates a required environment variable was not set
	ExitMissingEnv = 3

	// ExitToolFailed indicates an external build step failed
	ExitToolFailed = 4

	// ExitNotFound indicates discovery found no installation
	ExitNotFound = 5

	// ExitVersionMismatch indicates headers outside the supported range
	ExitVersionMismatch = 6

	// ExitMalformedProbe indicates unusable version probe output
	ExitMalformedProbe = 7

	// ExitUnsupported indicates a feature combination the host cannot build
	ExitUnsupported = 8

	// ExitConfig indicates an invalid feature file or feature list
	ExitConfig = 9
)

var kindExitCodes = map[builderr.Kind]int{
	builderr.KindMissingEnv:         ExitMissingEnv,
	builderr.KindTool:               ExitToolFailed,
	builderr.KindDiscoveryExhausted: ExitNotFound,
	builderr.KindVersionMismatch:    ExitVersionMismatch,
	builderr.KindMalformedProbe:     ExitMalformedProbe,
	builderr.KindUnsupported:        ExitUnsupported,
	builderr.KindConfig:             ExitConfig,
}

// usageError marks invalid command-line input.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCodeFor maps err to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	if kind, ok := builderr.KindOf(err); ok {
		if code, ok := kindExitCodes[kind]; ok {
			return code
		}
	}
	return ExitGeneral
}

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}

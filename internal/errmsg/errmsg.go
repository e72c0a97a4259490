// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/fatih/color"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/config"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	Target string // The target triple being built (for suggestions)
}

// section is a titled list of advice lines.
type section struct {
	title string
	lines []string
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}
	errMsg := err.Error()

	if kind, ok := builderr.KindOf(err); ok {
		return render(errMsg, kindSections(kind, err, ctx))
	}

	// Check for rate limit errors (string matching for unstructured errors)
	if isRateLimitError(errMsg) {
		return render(errMsg, rateLimitSections())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return render(errMsg, networkSections(netErr.Timeout()))
	}
	if isNetworkError(errMsg) {
		return render(errMsg, networkSections(false))
	}

	if isPermissionError(errMsg) {
		return render(errMsg, []section{
			{"Possible causes", []string{
				"OUT_DIR is not writable by the current user",
				"File or directory owned by different user",
			}},
			{"Suggestions", []string{"Check permissions on OUT_DIR and the vendored source tree"}},
		})
	}

	// Return original error for unrecognized types
	return errMsg
}

// Fprint writes Format's output to w, highlighting the first line and the
// section titles. Colors follow color.NoColor.
func Fprint(w io.Writer, err error, ctx *ErrorContext) {
	msg := Format(err, ctx)
	if msg == "" {
		return
	}
	head, rest, _ := strings.Cut(msg, "\n")
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	fmt.Fprintln(w, head)
	rest = strings.TrimRight(rest, "\n")
	if rest == "" {
		return
	}
	title := color.New(color.FgYellow)
	for _, line := range strings.Split(rest, "\n") {
		if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " ") {
			title.Fprintln(w, line)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func kindSections(kind builderr.Kind, err error, ctx *ErrorContext) []section {
	var causes, suggestions []string
	switch kind {
	case builderr.KindMissingEnv:
		causes = []string{
			"sasl2-build was run outside a build driver that sets HOST, TARGET and OUT_DIR",
		}
		suggestions = []string{"Pass --host, --target and --out-dir explicitly"}

	case builderr.KindTool:
		causes = []string{
			"A required build tool (C compiler, make, perl) is missing",
			"The vendored sources are incomplete or were generated for another platform",
		}
		if ctx != nil && ctx.Target != "" {
			causes = append(causes, fmt.Sprintf("The C compiler cannot build for %s", ctx.Target))
		}
		suggestions = []string{
			"Re-run with --debug to see the full command line and output",
			fmt.Sprintf("Set CC or CC_<target> to a working compiler, or %s to a clean source tree", config.EnvSourceDir),
		}

	case builderr.KindDiscoveryExhausted:
		causes = []string{
			"libsasl2 and its headers are not installed",
			"The installation lives outside the default prefixes",
		}
		suggestions = []string{
			fmt.Sprintf("Set %s and %s, or %s, to point at the installation", config.EnvLibDir, config.EnvIncludeDir, config.EnvInstallDir),
		}

	case builderr.KindVersionMismatch:
		causes = []string{"The headers found belong to an unsupported libsasl2 release"}

	case builderr.KindMalformedProbe:
		causes = []string{
			"sasl/sasl.h does not define SASL_VERSION_MAJOR, SASL_VERSION_MINOR and SASL_VERSION_STEP",
			"The preprocessor printed unexpected trailing output",
		}
		suggestions = []string{"Re-run with --debug to see the preprocessor output"}

	case builderr.KindUnsupported:
		causes = []string{"The requested features cannot be built on this host"}
		suggestions = []string{"Disable the vendored build and install libsasl2 on the build machine instead"}

	case builderr.KindConfig:
		causes = []string{"The feature file or a feature list has an unknown key or value"}
		suggestions = []string{"Run 'sasl2-build features list' to see the valid keys"}
	}

	// Hints attached where the error was raised are the most specific
	// advice available and come first.
	suggestions = append(builderr.Hints(err), suggestions...)

	var out []section
	if len(causes) > 0 {
		out = append(out, section{"Possible causes", causes})
	}
	if len(suggestions) > 0 {
		out = append(out, section{"Suggestions", suggestions})
	}
	return out
}

func rateLimitSections() []section {
	return []section{
		{"Possible causes", []string{
			"Too many requests to the API",
			"Unauthenticated requests have lower limits",
		}},
		{"Suggestions", []string{
			fmt.Sprintf("Set %s environment variable to increase rate limit", config.EnvGitHubToken),
			"Wait a few minutes before retrying",
		}},
	}
}

func networkSections(timeout bool) []section {
	causes := []string{"Network connectivity issue", "DNS resolution failure"}
	if timeout {
		causes = []string{"Request timed out", "Slow or unstable network connection"}
	}
	causes = append(causes, "Firewall or proxy blocking the connection")

	suggestions := []string{"Check your internet connection", "Try again in a few minutes"}
	if timeout {
		suggestions = append(suggestions, "Check if you're behind a slow proxy")
	}
	return []section{{"Possible causes", causes}, {"Suggestions", suggestions}}
}

func render(msg string, sections []section) string {
	if len(sections) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString("\n")
	for _, s := range sections {
		sb.WriteString("\n")
		sb.WriteString(s.title)
		sb.WriteString(":\n")
		for _, line := range s.lines {
			sb.WriteString("  - ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "i/o timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}

// Package probe validates that a set of include directories describes a
// supported libsasl2 release.
//
// The embedded csrc/version.c unit is run through the C preprocessor with
// the candidate include directories. Its last three output lines are the
// header's SASL_VERSION_MAJOR, SASL_VERSION_MINOR, and SASL_VERSION_STEP.
package probe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/tsukumogami/sasl2/internal/builderr"
)

// SupportedRange is the inclusive version range the bindings are built
// against, as shown to users.
const SupportedRange = "v2.1.26-v2.1.28"

// supportedConstraint mirrors SupportedRange for semver matching.
var supportedConstraint = mustConstraint(">= 2.1.26, <= 2.1.28")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Version is a header version triple. Each component fits in a byte.
type Version struct {
	Major uint8
	Minor uint8
	Step  uint8
}

// String returns the dotted form, e.g. "2.1.27".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Step)
}

// Full returns the packed SASL_VERSION_FULL value.
func (v Version) Full() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8 | uint32(v.Step)
}

// ParseOutput extracts the version triple from preprocessor output.
// Trailing blank lines are ignored; the step, minor, and major are taken
// from the last three remaining lines, in that order.
func ParseOutput(out string) (Version, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	var parts [3]uint8
	names := [3]string{"step", "minor", "major"}
	for i, name := range names {
		if len(lines) == 0 {
			return Version{}, builderr.MalformedProbe("version probe output ended before the %s line", name)
		}
		raw := strings.TrimSpace(lines[len(lines)-1])
		lines = lines[:len(lines)-1]

		n, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return Version{}, builderr.MalformedProbe("version probe %s line %q is not an integer in 0-255", name, raw)
		}
		parts[i] = uint8(n)
	}

	return Version{Major: parts[2], Minor: parts[1], Step: parts[0]}, nil
}

// Check rejects versions outside SupportedRange.
func Check(v Version) error {
	if v.Major != 2 || v.Minor != 1 {
		return builderr.VersionMismatch(v.String(), SupportedRange)
	}
	sv, err := semver.NewVersion(v.String())
	if err != nil {
		return builderr.MalformedProbe("version %s: %v", v, err)
	}
	if !supportedConstraint.Check(sv) {
		return builderr.VersionMismatch(v.String(), SupportedRange)
	}
	return nil
}

// Supported reports whether a dotted version string falls in
// SupportedRange. Unparsable versions are not supported.
func Supported(version string) bool {
	sv, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return false
	}
	return sv.Major() == 2 && sv.Minor() == 1 && supportedConstraint.Check(sv)
}

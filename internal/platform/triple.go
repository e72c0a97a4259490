// Package platform models the build host and target.
//
// Platform-specific acquisition behavior is expressed as a closed set of
// Family values selected once from the target triple. Callers switch on
// the Family's facts (library name, make tool, libresolv availability)
// instead of testing triple substrings throughout the code.
package platform

import (
	"fmt"
	"strings"
)

// Triple is a parsed target triple such as "x86_64-unknown-linux-gnu".
type Triple struct {
	Raw    string
	Arch   string
	Vendor string
	OS     string
	Env    string // gnu, musl, msvc, ...; empty when the triple has none
}

// ParseTriple splits a target triple into its components.
// Three-part triples ("aarch64-apple-darwin", "x86_64-unknown-freebsd")
// leave Env empty. Two-part triples ("x86_64-linux") have no vendor.
func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(s, "-")
	t := Triple{Raw: s}
	switch len(parts) {
	case 2:
		t.Arch, t.OS = parts[0], parts[1]
	case 3:
		t.Arch, t.Vendor, t.OS = parts[0], parts[1], parts[2]
		// "x86_64-linux-gnu" style has no vendor
		if t.Vendor == "linux" {
			t.Vendor, t.OS, t.Env = "", parts[1], parts[2]
		}
	case 4:
		t.Arch, t.Vendor, t.OS, t.Env = parts[0], parts[1], parts[2], parts[3]
	default:
		return Triple{}, fmt.Errorf("invalid target triple %q", s)
	}
	for _, p := range parts {
		if p == "" {
			return Triple{}, fmt.Errorf("invalid target triple %q", s)
		}
	}
	return t, nil
}

// String returns the original triple.
func (t Triple) String() string {
	return t.Raw
}

// Family is the platform variant an acquisition runs under.
type Family int

const (
	// Other covers triples with no special handling
	Other Family = iota
	// Linux covers glibc and musl Linux targets
	Linux
	// Darwin covers macOS targets
	Darwin
	// BSD covers DragonFly, FreeBSD, NetBSD and OpenBSD
	BSD
	// Windows covers MSVC and GNU Windows targets
	Windows
)

var bsdSystems = []string{"dragonfly", "freebsd", "netbsd", "openbsd"}

// FamilyOf selects the Family for a triple string. Unparsable triples map
// to Other so substring rules still apply to odd vendor spellings.
func FamilyOf(triple string) Family {
	switch {
	case strings.Contains(triple, "darwin"):
		return Darwin
	case strings.Contains(triple, "windows"):
		return Windows
	case strings.Contains(triple, "linux"):
		return Linux
	}
	for _, bsd := range bsdSystems {
		if strings.Contains(triple, bsd) {
			return BSD
		}
	}
	return Other
}

func (f Family) String() string {
	switch f {
	case Linux:
		return "linux"
	case Darwin:
		return "darwin"
	case BSD:
		return "bsd"
	case Windows:
		return "windows"
	default:
		return "other"
	}
}

// LibraryName is the link name of libsasl2 on this family.
func (f Family) LibraryName() string {
	if f == Windows {
		return "libsasl"
	}
	return "sasl2"
}

// MakeTool is the make flavor that understands the upstream Makefiles.
// BSD make cannot parse them, so GNU make is used there. Windows builds use
// nmake with NTMakefile.
func (f Family) MakeTool() string {
	switch f {
	case BSD:
		return "gmake"
	case Windows:
		return "nmake"
	default:
		return "make"
	}
}

// HasLibresolv reports whether a separate libresolv exists. On BSD the
// resolver functions live in libc.
func (f Family) HasLibresolv() bool {
	return f != BSD && f != Windows
}

// SupportsJobserver reports whether make on this family can join an outer
// jobserver. mingw32-make and nmake cannot.
func (f Family) SupportsJobserver() bool {
	return f != Windows
}

// DebianTriple rewrites a Rust-style GNU/Linux triple into the multiarch
// directory name Debian packaging uses ("x86_64-unknown-linux-gnu" becomes
// "x86_64-linux-gnu").
func DebianTriple(target string) string {
	return strings.Replace(target, "unknown-linux-gnu", "linux-gnu", 1)
}

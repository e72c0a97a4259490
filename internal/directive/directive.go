// Package directive defines the lines sasl2-build prints for its caller
// and the link-kind policy applied before they are printed.
//
// Every directive renders as "sasl2:<key>=<value>", one per line.
package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/probe"
)

// Prefix starts every rendered directive.
const Prefix = "sasl2:"

// Directive keys.
const (
	KeyLinkSearch = "link-search"
	KeyLinkLib    = "link-lib"
	KeyRoot       = "root"
	KeyInclude    = "include"
	KeyEnv        = "env"
)

// Published version variable names.
const (
	EnvVersionMajor = "SASL_VERSION_MAJOR"
	EnvVersionMinor = "SASL_VERSION_MINOR"
	EnvVersionStep  = "SASL_VERSION_STEP"
)

// Directive is one output line.
type Directive struct {
	Key   string
	Value string
}

func (d Directive) String() string {
	return Prefix + d.Key + "=" + d.Value
}

// Parse reads a rendered directive line.
func Parse(line string) (Directive, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), Prefix)
	if !ok {
		return Directive{}, fmt.Errorf("not a directive: %q", line)
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return Directive{}, fmt.Errorf("malformed directive: %q", line)
	}
	return Directive{Key: key, Value: value}, nil
}

// LinkKind is how the final binary references a library.
type LinkKind int

const (
	// Static embeds the archive's code
	Static LinkKind = iota
	// Dynamic references a shared object resolved at run time
	Dynamic
)

func (k LinkKind) String() string {
	if k == Dynamic {
		return "dylib"
	}
	return "static"
}

// SelectLinkKind applies the link-kind policy. An explicit preference is
// honored; otherwise a shared library at the resolved path wins.
func SelectLinkKind(pref buildmeta.LinkPreference, sharedPresent bool) LinkKind {
	switch pref {
	case buildmeta.PreferStatic:
		return Static
	case buildmeta.PreferDynamic:
		return Dynamic
	}
	if sharedPresent {
		return Dynamic
	}
	return Static
}

// LinkSearch returns a native library search path directive.
func LinkSearch(dir string) Directive {
	return Directive{Key: KeyLinkSearch, Value: "native=" + dir}
}

// LinkLib returns a link directive for name with the given kind.
func LinkLib(kind LinkKind, name string) Directive {
	return Directive{Key: KeyLinkLib, Value: kind.String() + "=" + name}
}

// Root returns the installation-root marker.
func Root(dir string) Directive {
	return Directive{Key: KeyRoot, Value: dir}
}

// Include returns a header search path directive.
func Include(dir string) Directive {
	return Directive{Key: KeyInclude, Value: dir}
}

// Env returns a published environment value.
func Env(name, value string) Directive {
	return Directive{Key: KeyEnv, Value: name + "=" + value}
}

// Version returns the three published version directives.
func Version(v probe.Version) []Directive {
	return []Directive{
		Env(EnvVersionMajor, strconv.Itoa(int(v.Major))),
		Env(EnvVersionMinor, strconv.Itoa(int(v.Minor))),
		Env(EnvVersionStep, strconv.Itoa(int(v.Step))),
	}
}

// SplitLinkLib decodes a link-lib value into its kind and name. A value
// without a kind is dynamic.
func SplitLinkLib(value string) (LinkKind, string) {
	kind, name, ok := strings.Cut(value, "=")
	if !ok {
		return Dynamic, value
	}
	if kind == Static.String() {
		return Static, name
	}
	return Dynamic, name
}

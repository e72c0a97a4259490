// Package buildmeta holds the per-invocation build metadata: host and
// target triples, the static/dynamic preference, and the private output
// directory. A Metadata value is constructed once and never mutated.
package buildmeta

import (
	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/platform"
)

// LinkPreference is the tri-state static-linking preference.
type LinkPreference int

const (
	// PreferUnset lets the resolved library files decide the link kind
	PreferUnset LinkPreference = iota
	// PreferStatic forces a static link
	PreferStatic
	// PreferDynamic forces a dynamic link
	PreferDynamic
)

func (p LinkPreference) String() string {
	switch p {
	case PreferStatic:
		return "static"
	case PreferDynamic:
		return "dynamic"
	default:
		return "unset"
	}
}

// ParseLinkPreference interprets a SASL2_STATIC value. set is false when
// the variable is absent. "0" means dynamic; any other value, including
// the empty string, means static.
func ParseLinkPreference(value string, set bool) LinkPreference {
	if !set {
		return PreferUnset
	}
	if value == "0" {
		return PreferDynamic
	}
	return PreferStatic
}

// Metadata describes one build invocation.
type Metadata struct {
	Host       string
	Target     string
	WantStatic LinkPreference
	OutDir     string
}

// Overrides carries command-line values that take precedence over the
// environment. Empty fields fall through to the environment.
type Overrides struct {
	Host   string
	Target string
	OutDir string
}

// FromEnv builds Metadata from the environment and any overrides.
// HOST, TARGET and OUT_DIR are required. A missing one is reported as a
// missing-environment error naming the variable.
func FromEnv(env *config.Env, o Overrides) (Metadata, error) {
	pick := func(override, key string) (string, error) {
		if override != "" {
			return override, nil
		}
		if v := env.Get(key); v != "" {
			return v, nil
		}
		return "", builderr.MissingEnv(key)
	}

	host, err := pick(o.Host, config.EnvHost)
	if err != nil {
		return Metadata{}, err
	}
	target, err := pick(o.Target, config.EnvTarget)
	if err != nil {
		return Metadata{}, err
	}
	outDir, err := pick(o.OutDir, config.EnvOutDir)
	if err != nil {
		return Metadata{}, err
	}

	static, set := env.Lookup(config.EnvStatic)
	return Metadata{
		Host:       host,
		Target:     target,
		WantStatic: ParseLinkPreference(static, set),
		OutDir:     outDir,
	}, nil
}

// SameHostTarget reports whether the build runs on the machine it targets.
func (m Metadata) SameHostTarget() bool {
	return m.Host == m.Target
}

// CrossCompiling reports whether host and target differ.
func (m Metadata) CrossCompiling() bool {
	return !m.SameHostTarget()
}

// HostFamily returns the platform variant of the build host.
func (m Metadata) HostFamily() platform.Family {
	return platform.FamilyOf(m.Host)
}

// TargetFamily returns the platform variant of the target.
func (m Metadata) TargetFamily() platform.Family {
	return platform.FamilyOf(m.Target)
}

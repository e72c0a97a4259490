package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsukumogami/sasl2/internal/log"
)

const (
	// EnvHost is the triple of the machine running the build
	EnvHost = "HOST"

	// EnvTarget is the triple the bindings are being built for
	EnvTarget = "TARGET"

	// EnvOutDir is the private working directory owned by this build invocation
	EnvOutDir = "OUT_DIR"

	// EnvNumJobs is the parallelism hint passed to make as -jN
	EnvNumJobs = "NUM_JOBS"

	// EnvMakeFlags carries jobserver coordination flags from an outer make.
	// When set on a non-Windows host it replaces the explicit -jN.
	EnvMakeFlags = "SASL2_MAKEFLAGS"

	// EnvLibDir names the exact directory holding libsasl2
	EnvLibDir = "SASL2_LIB_DIR"

	// EnvIncludeDir names the exact directory holding sasl/sasl.h
	EnvIncludeDir = "SASL2_INCLUDE_DIR"

	// EnvInstallDir names an installation root with lib/ and include/ beneath it
	EnvInstallDir = "SASL2_DIR"

	// EnvStatic selects the link kind: unset lets discovery decide, "0" forces
	// dynamic, anything else forces static
	EnvStatic = "SASL2_STATIC"

	// EnvFeatures is a comma-separated feature list, e.g. "vendored,plain,-scram"
	EnvFeatures = "SASL2_FEATURES"

	// EnvConfigFile overrides the path of the TOML feature file
	EnvConfigFile = "SASL2_CONFIG"

	// EnvSourceDir overrides the vendored source tree or archive location
	EnvSourceDir = "SASL2_SOURCE_DIR"

	// EnvOpenSSLDir is the root of a vendored OpenSSL whose headers libsasl2 should use
	EnvOpenSSLDir = "SASL2_OPENSSL_DIR"

	// EnvKrb5Dir is the root of a vendored MIT Kerberos source build (gssapi-vendored)
	EnvKrb5Dir = "SASL2_KRB5_DIR"

	// EnvPkgConfig overrides the pkg-config binary
	EnvPkgConfig = "PKG_CONFIG"

	// EnvPkgConfigAllowCross permits pkg-config answers when host and target
	// differ. "0" keeps them refused.
	EnvPkgConfigAllowCross = "PKG_CONFIG_ALLOW_CROSS"

	// EnvPkgConfigSysroot points pkg-config at a target sysroot
	EnvPkgConfigSysroot = "PKG_CONFIG_SYSROOT_DIR"

	// EnvGitHubToken authenticates release lookups for the fetch command
	EnvGitHubToken = "GITHUB_TOKEN"

	// DefaultConfigFile is the feature file looked up in the working directory
	DefaultConfigFile = "sasl2.toml"

	// DefaultSourceDir is the vendored source tree relative to the working directory
	DefaultSourceDir = "sasl2"

	// DefaultPkgConfig is the pkg-config binary used when PKG_CONFIG is unset
	DefaultPkgConfig = "pkg-config"

	// MaxNumJobs caps NUM_JOBS so a typo cannot fork-bomb the host
	MaxNumJobs = 512
)

// Env is a read-only view of the process environment. Tests construct one
// from a map so no global state is touched.
type Env struct {
	lookup func(string) (string, bool)
	logger log.Logger
}

// OSEnv returns an Env backed by os.LookupEnv.
func OSEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// MapEnv returns an Env backed by a fixed map.
func MapEnv(m map[string]string) *Env {
	return &Env{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// WithLogger returns a copy of e that reports ignored values to l.
func (e *Env) WithLogger(l log.Logger) *Env {
	return &Env{lookup: e.lookup, logger: l}
}

func (e *Env) log() log.Logger {
	return log.OrDefault(e.logger)
}

// Lookup returns the value of key and whether it is set.
func (e *Env) Lookup(key string) (string, bool) {
	return e.lookup(key)
}

// Get returns the value of key, or "" when unset.
func (e *Env) Get(key string) string {
	v, _ := e.lookup(key)
	return v
}

// GetOr returns the value of key, or def when unset or empty.
func (e *Env) GetOr(key, def string) string {
	if v := e.Get(key); v != "" {
		return v
	}
	return def
}

// GetNumJobs returns the NUM_JOBS hint.
// Returns false when unset. Invalid or out-of-range values are reported
// and clamped rather than rejected.
func (e *Env) GetNumJobs() (int, bool) {
	raw, ok := e.lookup(EnvNumJobs)
	if !ok || raw == "" {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e.log().Warn("ignoring invalid parallelism hint", "var", EnvNumJobs, "value", raw)
		return 0, false
	}
	if n < 1 {
		e.log().Warn("parallelism hint too low, using 1", "var", EnvNumJobs, "value", n)
		return 1, true
	}
	if n > MaxNumJobs {
		e.log().Warn("parallelism hint too high, clamping", "var", EnvNumJobs, "value", n, "max", MaxNumJobs)
		return MaxNumJobs, true
	}
	return n, true
}

// CompilerFor returns the C compiler for target: CC_<target> with dashes
// replaced by underscores, then CC, then "cl" for MSVC targets and "cc"
// for everything else.
func (e *Env) CompilerFor(target string) string {
	if cc := e.targetVar("CC", target); cc != "" {
		return cc
	}
	def := "cc"
	if strings.HasSuffix(target, "-msvc") {
		def = "cl"
	}
	return e.GetOr("CC", def)
}

// PkgConfig returns the pkg-config binary to invoke.
func (e *Env) PkgConfig() string {
	return e.GetOr(EnvPkgConfig, DefaultPkgConfig)
}

// PkgConfigFor returns the pkg-config binary for target: PKG_CONFIG_<target>
// with dashes replaced by underscores, then PkgConfig.
func (e *Env) PkgConfigFor(target string) string {
	if bin := e.targetVar(EnvPkgConfig, target); bin != "" {
		return bin
	}
	return e.PkgConfig()
}

// PkgConfigCrossAllowed reports whether pkg-config may answer for a target
// other than the host. A sysroot or a target-specific PKG_CONFIG implies
// consent. PKG_CONFIG_ALLOW_CROSS=0 refuses even then.
func (e *Env) PkgConfigCrossAllowed(target string) bool {
	if v, ok := e.lookup(EnvPkgConfigAllowCross); ok && v != "" {
		return v != "0"
	}
	return e.Get(EnvPkgConfigSysroot) != "" || e.targetVar(EnvPkgConfig, target) != ""
}

func (e *Env) targetVar(prefix, target string) string {
	if target == "" {
		return ""
	}
	return e.Get(prefix + "_" + strings.ReplaceAll(target, "-", "_"))
}

// ConfigFile returns the feature file path: SASL2_CONFIG, or sasl2.toml
// in workDir.
func (e *Env) ConfigFile(workDir string) string {
	if p := e.Get(EnvConfigFile); p != "" {
		return p
	}
	return filepath.Join(workDir, DefaultConfigFile)
}

// SourceDir returns the vendored source location: SASL2_SOURCE_DIR, or
// ./sasl2 in workDir.
func (e *Env) SourceDir(workDir string) string {
	if p := e.Get(EnvSourceDir); p != "" {
		return p
	}
	return filepath.Join(workDir, DefaultSourceDir)
}

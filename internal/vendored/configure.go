package vendored

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/platform"
)

// Inputs are the values the source build reads from the environment.
type Inputs struct {
	CPPFlags string
	CFlags   string
	Compiler string

	// OpenSSLDir is the root of a vendored OpenSSL, used when the openssl
	// feature is on.
	OpenSSLDir string

	// Krb5Dir is the root of a vendored MIT Kerberos build, required by
	// the gssapi-vendored feature.
	Krb5Dir string

	// NumJobs is the parallelism hint; zero means unset.
	NumJobs int

	// MakeFlags carries an outer jobserver's flags.
	MakeFlags    string
	HasMakeFlags bool
}

// InputsFromEnv collects Inputs for meta's target.
func InputsFromEnv(env *config.Env, meta buildmeta.Metadata) Inputs {
	in := Inputs{
		CPPFlags:   env.Get("CPPFLAGS"),
		CFlags:     env.Get("CFLAGS"),
		Compiler:   env.CompilerFor(meta.Target),
		OpenSSLDir: env.Get(config.EnvOpenSSLDir),
		Krb5Dir:    env.Get(config.EnvKrb5Dir),
	}
	if n, ok := env.GetNumJobs(); ok {
		in.NumJobs = n
	}
	in.MakeFlags, in.HasMakeFlags = env.Lookup(config.EnvMakeFlags)
	return in
}

// InstallDir is where the source build installs, beneath OUT_DIR.
func InstallDir(meta buildmeta.Metadata) string {
	return filepath.Join(meta.OutDir, "install")
}

// SourceDir is the staged source tree beneath OUT_DIR. Windows builds
// use a separate tree name.
func SourceDir(meta buildmeta.Metadata) string {
	if meta.HostFamily() == platform.Windows {
		return filepath.Join(meta.OutDir, "build")
	}
	return filepath.Join(meta.OutDir, "sasl2")
}

// ConfigureArgs returns the arguments passed to ./configure. Only the
// PLAIN, SCRAM and optionally GSSAPI mechanisms are built, statically,
// with position-independent code.
func ConfigureArgs(meta buildmeta.Metadata, t features.Toggles, in Inputs) []string {
	cppflags := in.CPPFlags
	if t.OpenSSL && in.OpenSSLDir != "" {
		cppflags += " -I" + filepath.Join(in.OpenSSLDir, "include")
	}

	// Plugins are merged into the static archive outside libtool, so
	// --with-pic does not reach them.
	cflags := in.CFlags + " -fPIC"

	args := []string{
		"--prefix=" + InstallDir(meta),
		"--enable-static",
		"--disable-shared",
		"--disable-sample",
		"--disable-checkapop",
		"--disable-cram",
		"--disable-digest",
		"--disable-otp",
		"--disable-anon",
		"--with-dblib=none",
		"--with-pic",
	}

	if t.GSSAPIVendored {
		args = append(args, "--enable-gssapi="+in.Krb5Dir)
	} else {
		args = append(args, "--disable-gssapi")
	}
	args = append(args, enableFlag("plain", t.Plain), enableFlag("scram", t.SCRAM))

	args = append(args,
		"CPPFLAGS="+strings.TrimSpace(cppflags),
		"CFLAGS="+strings.TrimSpace(cflags),
		"CC="+in.Compiler,
	)

	if meta.TargetFamily() == platform.Darwin {
		args = append(args, "--disable-macos-framework")
	}
	if meta.CrossCompiling() {
		args = append(args, "--build="+meta.Host, "--host="+meta.Target)
	}
	return args
}

// ConfigureEnv returns the environment overlay for ./configure.
func ConfigureEnv(meta buildmeta.Metadata) map[string]string {
	if !meta.CrossCompiling() {
		return nil
	}
	// The SPNEGO check runs a target binary.
	return map[string]string{"ac_cv_gssapi_supports_spnego": "yes"}
}

// MakeInvocation returns the extra make arguments and environment for the
// parallelism settings in in. A jobserver handed down through MakeFlags
// takes precedence over -jN on hosts that support it.
func MakeInvocation(host platform.Family, in Inputs) (args []string, env map[string]string) {
	env = map[string]string{"MAKEFLAGS": ""}
	if in.NumJobs == 0 {
		return nil, env
	}
	if in.HasMakeFlags && host.SupportsJobserver() {
		env["MAKEFLAGS"] = in.MakeFlags
		return nil, env
	}
	return []string{"-j" + strconv.Itoa(in.NumJobs)}, env
}

func enableFlag(name string, on bool) string {
	if on {
		return "--enable-" + name
	}
	return "--disable-" + name
}

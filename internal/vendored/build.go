// Package vendored builds libsasl2 from bundled sources into the private
// output directory and describes how to link the result.
package vendored

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/directive"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/platform"
	"github.com/tsukumogami/sasl2/internal/runner"
)

// krb5Libs are the vendored Kerberos archives GSSAPI needs, in link order.
var krb5Libs = []string{"gssapi_krb5", "krb5", "k5crypto", "com_err", "krb5support"}

// makeDirs are built in order; lib's Makefile depends on targets in the
// other two without declaring it.
var makeDirs = []string{"include", "common", "lib"}

// Result describes a completed source build.
type Result struct {
	InstallDir string
	LibDir     string
	IncludeDir string

	libName string
	krb5Dir string
	resolv  bool
	gssapi  bool
}

// Builder runs the source build.
type Builder struct {
	Fs     afero.Fs
	Runner runner.Runner
	Logger log.Logger
}

// Build stages src and compiles it for meta. Every failing step is fatal
// and nothing is retried.
func (b *Builder) Build(ctx context.Context, meta buildmeta.Metadata, cfg *features.Config, in Inputs) (*Result, error) {
	host := meta.HostFamily()

	if host == platform.Windows {
		if meta.CrossCompiling() {
			return nil, builderr.Unsupported("cross-compilation on a Windows host is not supported")
		}
		if cfg.Features.GSSAPIVendored {
			return nil, builderr.Unsupported("the %q feature is not supported on Windows", features.GSSAPIVendored)
		}
	}
	if cfg.Features.GSSAPIVendored && in.Krb5Dir == "" {
		return nil, builderr.MissingEnv(config.EnvKrb5Dir)
	}

	srcDir := SourceDir(meta)
	stager := &Stager{Fs: b.Fs, Logger: b.Logger}
	if _, err := stager.Stage(cfg.Source, srcDir); err != nil {
		return nil, err
	}

	var err error
	if host == platform.Windows {
		err = b.nmake(ctx, meta, cfg.Features, in, srcDir)
	} else {
		err = b.autotools(ctx, meta, cfg.Features, in, srcDir)
	}
	if err != nil {
		return nil, err
	}

	install := InstallDir(meta)
	res := &Result{
		InstallDir: install,
		LibDir:     filepath.Join(install, "lib"),
		IncludeDir: filepath.Join(install, "include"),
		libName:    meta.TargetFamily().LibraryName(),
	}
	if cfg.Features.GSSAPIVendored {
		res.gssapi = true
		res.krb5Dir = in.Krb5Dir
		res.resolv = host.HasLibresolv() && meta.SameHostTarget()
	}
	return res, nil
}

func (b *Builder) autotools(ctx context.Context, meta buildmeta.Metadata, t features.Toggles, in Inputs, srcDir string) error {
	_, err := b.Runner.Run(ctx, runner.Command{
		Step: "configure",
		Name: filepath.Join(srcDir, "configure"),
		Args: ConfigureArgs(meta, t, in),
		Dir:  srcDir,
		Env:  ConfigureEnv(meta),
	})
	if err != nil {
		return err
	}

	makeTool := meta.HostFamily().MakeTool()
	jobArgs, jobEnv := MakeInvocation(meta.HostFamily(), in)
	for _, sub := range makeDirs {
		args := append(append([]string{}, jobArgs...), "install")
		_, err := b.Runner.Run(ctx, runner.Command{
			Step: "make " + sub,
			Name: makeTool,
			Args: args,
			Dir:  filepath.Join(srcDir, sub),
			Env:  jobEnv,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NMakeArgs returns the NTMakefile arguments shared by the build and
// install invocations.
func NMakeArgs(meta buildmeta.Metadata, t features.Toggles, in Inputs) []string {
	args := []string{"/f", "NTMakefile", "prefix=" + InstallDir(meta)}
	if t.Plain {
		args = append(args, "STATIC_PLAIN=1")
	}
	if t.SCRAM {
		args = append(args, "STATIC_SCRAM=1")
	}
	if t.OpenSSL && in.OpenSSLDir != "" {
		args = append(args,
			"OPENSSL_INCLUDE="+filepath.Join(in.OpenSSLDir, "include"),
			"OPENSSL_LIBPATH="+filepath.Join(in.OpenSSLDir, "lib"),
		)
	}
	return args
}

func (b *Builder) nmake(ctx context.Context, meta buildmeta.Metadata, t features.Toggles, in Inputs, srcDir string) error {
	base := NMakeArgs(meta, t, in)
	steps := []struct {
		step  string
		extra []string
	}{
		{"nmake build", nil},
		{"nmake install", []string{"install"}},
	}
	for _, s := range steps {
		_, err := b.Runner.Run(ctx, runner.Command{
			Step: s.step,
			Name: "nmake",
			Args: append(append([]string{}, base...), s.extra...),
			Dir:  srcDir,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Directives returns the link directives for the built library. The
// main library is always static; root marks the installation.
func (r *Result) Directives() []directive.Directive {
	ds := []directive.Directive{
		directive.LinkSearch(r.LibDir),
		directive.LinkLib(directive.Static, r.libName),
		directive.Root(r.InstallDir),
	}
	if !r.gssapi {
		return ds
	}
	ds = append(ds, directive.LinkSearch(filepath.Join(r.krb5Dir, "lib")))
	for _, lib := range krb5Libs {
		ds = append(ds, directive.LinkLib(directive.Static, lib))
	}
	if r.resolv {
		ds = append(ds, directive.LinkLib(directive.Dynamic, "resolv"))
	}
	return ds
}

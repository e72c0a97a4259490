// Package resolve decides how libsasl2 is acquired for a build and emits
// the directives that link it.
//
// Exactly one strategy runs per invocation. The vendored feature selects
// a source build; otherwise an existing installation is discovered. In
// both cases the headers are version-checked before any link directive
// is written.
package resolve

import (
	"context"
	"errors"

	"github.com/spf13/afero"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/directive"
	"github.com/tsukumogami/sasl2/internal/discover"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/probe"
	"github.com/tsukumogami/sasl2/internal/runner"
	"github.com/tsukumogami/sasl2/internal/vendored"
)

// Outcome is the result of one resolution. Exactly one of Source and
// Discovered is set.
type Outcome struct {
	Source     *vendored.Result
	Discovered *discover.Result
	Version    probe.Version

	// Directives holds everything emitted, link directives first.
	Directives []directive.Directive
}

// Strategy names the acquisition path taken.
func (o *Outcome) Strategy() string {
	if o.Source != nil {
		return "vendored"
	}
	return "system:" + string(o.Discovered.Source)
}

// Resolver wires the build strategies together. Meta and Config are
// required; everything else has a working default.
type Resolver struct {
	Meta   buildmeta.Metadata
	Config *features.Config
	Env    *config.Env

	// WorkDir locates the default vendored source tree.
	WorkDir string

	Fs      afero.Fs
	Runner  runner.Runner
	Emitter *directive.Emitter
	Logger  log.Logger

	// Discoverer, Builder and Validator override the defaults built from
	// the fields above.
	Discoverer *discover.Discoverer
	Builder    *vendored.Builder
	Validator  *probe.Validator
}

// Resolve acquires libsasl2, validates its headers and emits the link
// directives followed by the published version.
func (r *Resolver) Resolve(ctx context.Context) (*Outcome, error) {
	if r.Config == nil {
		return nil, errors.New("resolve: no feature configuration")
	}
	logger := log.OrDefault(r.Logger)
	logger.Debug("resolving libsasl2",
		"host", r.Meta.Host,
		"target", r.Meta.Target,
		"static", r.Meta.WantStatic.String(),
		"features", r.Config.Enabled())

	var (
		out     = &Outcome{}
		links   []directive.Directive
		headers []string
	)
	if r.Config.Features.Vendored {
		res, err := r.builder().Build(ctx, r.Meta, r.sourceConfig(), vendored.InputsFromEnv(r.env(), r.Meta))
		if err != nil {
			return nil, err
		}
		out.Source = res
		links = res.Directives()
		headers = []string{res.IncludeDir}
	} else {
		res, err := r.discoverer().Discover(ctx, r.Meta, r.Config.Features)
		if err != nil {
			return nil, err
		}
		out.Discovered = res
		links = res.Directives(r.Meta.WantStatic, r.Meta.TargetFamily().LibraryName())
		headers = res.HeaderDirs()
	}

	ver, err := r.validator().Validate(ctx, headers)
	if err != nil {
		return nil, err
	}
	out.Version = ver

	out.Directives = append(links, directive.Version(ver)...)
	if r.Emitter != nil {
		if err := r.Emitter.Emit(out.Directives...); err != nil {
			return nil, err
		}
	}
	logger.Info("resolved libsasl2", "strategy", out.Strategy(), "version", ver.String())
	return out, nil
}

// sourceConfig returns the configuration with a default source location
// filled in. r.Config itself is left untouched.
func (r *Resolver) sourceConfig() *features.Config {
	cfg := *r.Config
	if cfg.Source.Dir != "" || cfg.Source.Archive != "" {
		return &cfg
	}
	p := r.env().SourceDir(r.WorkDir)
	if vendored.DetectFormat(p) != "unknown" {
		cfg.Source.Archive = p
	} else {
		cfg.Source.Dir = p
	}
	return &cfg
}

func (r *Resolver) env() *config.Env {
	if r.Env == nil {
		return config.OSEnv()
	}
	return r.Env
}

func (r *Resolver) fs() afero.Fs {
	if r.Fs == nil {
		return afero.NewOsFs()
	}
	return r.Fs
}

func (r *Resolver) runner() runner.Runner {
	if r.Runner == nil {
		return runner.New(r.Logger)
	}
	return r.Runner
}

func (r *Resolver) discoverer() *discover.Discoverer {
	if r.Discoverer != nil {
		return r.Discoverer
	}
	return &discover.Discoverer{Fs: r.fs(), Env: r.env(), Runner: r.runner(), Logger: r.Logger}
}

func (r *Resolver) builder() *vendored.Builder {
	if r.Builder != nil {
		return r.Builder
	}
	return &vendored.Builder{Fs: r.fs(), Runner: r.runner(), Logger: r.Logger}
}

func (r *Resolver) validator() *probe.Validator {
	if r.Validator != nil {
		return r.Validator
	}
	return &probe.Validator{
		Runner:   r.runner(),
		Compiler: r.env().CompilerFor(r.Meta.Target),
		WorkDir:  r.Meta.OutDir,
		Logger:   r.Logger,
	}
}

// Package discover locates a pre-installed libsasl2.
//
// Strategies are tried in a fixed priority order and the first match wins:
// explicit directories, an installation root, pkg-config, the macOS system
// library, and finally a probe of conventional prefixes.
package discover

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

// Source names the strategy that produced a Result.
type Source string

const (
	SourceExactDirs   Source = "exact-dirs"
	SourceInstallRoot Source = "install-root"
	SourcePkgConfig   Source = "pkg-config"
	SourceDarwin      Source = "darwin-system"
	SourceProbe       Source = "probe"
)

// Darwin system locations. Since Big Sur the dylib is only in the shared
// cache, so nothing here is checked on disk.
const (
	DarwinLibDir     = "/usr/lib"
	DarwinIncludeDir = "/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk/usr/include"
)

// DefaultPrefixes are probed when no other strategy matches.
var DefaultPrefixes = []string{"/usr", "/usr/local"}

// DefaultOSRelease is read to tailor the install hint.
const DefaultOSRelease = "/etc/os-release"

// Result is a discovered installation. Paths belong to the system and are
// never modified.
type Result struct {
	LibDir     string
	IncludeDir string
	Source     Source

	// IncludeDirs holds every header directory pkg-config reported.
	IncludeDirs []string

	// SharedPresent is true when a shared libsasl2 sits in LibDir.
	SharedPresent bool

	// ForceDynamic overrides the link preference.
	ForceDynamic bool

	// Links are pkg-config's own link directives.
	Links []directive.Directive
}

// HeaderDirs returns the directories the version probe should search.
func (r *Result) HeaderDirs() []string {
	if r.Source == SourcePkgConfig {
		return r.IncludeDirs
	}
	return []string{r.IncludeDir}
}

// Directives returns the link directives for r under pref.
func (r *Result) Directives(pref buildmeta.LinkPreference, libName string) []directive.Directive {
	if r.Source == SourcePkgConfig {
		return r.Links
	}
	if r.ForceDynamic {
		pref = buildmeta.PreferDynamic
	}
	kind := directive.SelectLinkKind(pref, r.SharedPresent)
	return []directive.Directive{
		directive.LinkSearch(r.LibDir),
		directive.LinkLib(kind, libName),
		directive.Include(r.IncludeDir),
	}
}

// Discoverer runs the discovery strategies.
type Discoverer struct {
	Fs     afero.Fs
	Env    *config.Env
	Runner runner.Runner
	Logger log.Logger

	// Prefixes overrides DefaultPrefixes.
	Prefixes []string

	// OSReleasePath overrides DefaultOSRelease.
	OSReleasePath string
}

// stage is one discovery strategy. A stage returns (nil, nil) for a soft
// miss. A non-nil error is logged and the next stage runs, unless the
// context is done.
type stage struct {
	source Source
	find   func(ctx context.Context, meta buildmeta.Metadata, t features.Toggles) (*Result, error)
}

func (d *Discoverer) stages() []stage {
	return []stage{
		{SourceExactDirs, d.exactDirs},
		{SourceInstallRoot, d.installRoot},
		{SourcePkgConfig, d.pkgConfig},
		{SourceDarwin, d.darwin},
		{SourceProbe, d.probe},
	}
}

// Discover tries each strategy in order and returns the first match.
func (d *Discoverer) Discover(ctx context.Context, meta buildmeta.Metadata, t features.Toggles) (*Result, error) {
	logger := log.OrDefault(d.Logger)

	for _, s := range d.stages() {
		res, err := s.find(ctx, meta, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("discovery strategy failed", "strategy", s.source, "error", err)
			continue
		}
		if res != nil {
			logger.Info("found libsasl2", "strategy", res.Source, "lib", res.LibDir, "include", res.IncludeDir)
			return res, nil
		}
	}
	return nil, d.exhausted(meta)
}

func (d *Discoverer) exactDirs(_ context.Context, _ buildmeta.Metadata, _ features.Toggles) (*Result, error) {
	lib, inc := d.env().Get(config.EnvLibDir), d.env().Get(config.EnvIncludeDir)
	if lib == "" || inc == "" {
		return nil, nil
	}
	return d.found(SourceExactDirs, lib, inc), nil
}

func (d *Discoverer) installRoot(_ context.Context, _ buildmeta.Metadata, _ features.Toggles) (*Result, error) {
	root := d.env().Get(config.EnvInstallDir)
	if root == "" {
		return nil, nil
	}
	return d.found(SourceInstallRoot, filepath.Join(root, "lib"), filepath.Join(root, "include")), nil
}

// darwin trusts the system library without looking at the filesystem.
func (d *Discoverer) darwin(_ context.Context, meta buildmeta.Metadata, _ features.Toggles) (*Result, error) {
	if !meta.SameHostTarget() || meta.TargetFamily() != platform.Darwin || meta.WantStatic == buildmeta.PreferStatic {
		return nil, nil
	}
	return &Result{
		LibDir:       DarwinLibDir,
		IncludeDir:   DarwinIncludeDir,
		Source:       SourceDarwin,
		ForceDynamic: true,
	}, nil
}

func (d *Discoverer) env() *config.Env {
	if d.Env == nil {
		return config.OSEnv()
	}
	return d.Env
}

func (d *Discoverer) found(src Source, lib, inc string) *Result {
	return &Result{
		LibDir:        lib,
		IncludeDir:    inc,
		Source:        src,
		SharedPresent: d.sharedPresent(lib),
	}
}

func (d *Discoverer) exhausted(meta buildmeta.Metadata) error {
	path := d.OSReleasePath
	if path == "" {
		path = DefaultOSRelease
	}
	distro, err := platform.DetectDistroFamily(path)
	if err != nil {
		log.OrDefault(d.Logger).Debug("could not detect distro family", "error", err)
	}

	return builderr.Exhausted("unable to find libsasl2 on your system",
		platform.DevPackageHint(meta.HostFamily(), distro),
		"Have you incorrectly set the SASL2_STATIC environment variable when your system only supports dynamic linking?",
		"Are you willing to enable the `vendored` feature to instead build and link against a bundled copy of libsasl2?",
	)
}

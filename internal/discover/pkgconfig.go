package discover

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/directive"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/runner"
)

// PkgConfigPackage is the pkg-config module queried for libsasl2.
const PkgConfigPackage = "libsasl2"

func (d *Discoverer) pkgConfig(ctx context.Context, meta buildmeta.Metadata, t features.Toggles) (*Result, error) {
	if !t.PkgConfig {
		return nil, nil
	}
	if d.Runner == nil {
		return nil, fmt.Errorf("pkg-config: no command runner configured")
	}
	env := d.env()
	// Without a sysroot the host's .pc files describe host libraries.
	if meta.CrossCompiling() && !env.PkgConfigCrossAllowed(meta.Target) {
		return nil, fmt.Errorf("pkg-config: refusing to cross compile from %s to %s; set %s=1 or %s to allow it",
			meta.Host, meta.Target, config.EnvPkgConfigAllowCross, config.EnvPkgConfigSysroot)
	}
	bin := env.PkgConfigFor(meta.Target)

	cflags, err := d.Runner.Output(ctx, runner.Command{
		Step: "pkg-config",
		Name: bin,
		Args: []string{"--cflags-only-I", PkgConfigPackage},
	})
	if err != nil {
		return nil, err
	}

	libArgs := []string{"--libs"}
	if meta.WantStatic == buildmeta.PreferStatic {
		libArgs = append(libArgs, "--static")
	}
	libs, err := d.Runner.Output(ctx, runner.Command{
		Step: "pkg-config",
		Name: bin,
		Args: append(libArgs, PkgConfigPackage),
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Source: SourcePkgConfig}
	for _, tok := range strings.Fields(string(cflags)) {
		if dir, ok := strings.CutPrefix(tok, "-I"); ok && dir != "" {
			res.IncludeDirs = append(res.IncludeDirs, dir)
		}
	}

	var searchDirs, names []string
	for _, tok := range strings.Fields(string(libs)) {
		switch {
		case strings.HasPrefix(tok, "-L") && len(tok) > 2:
			searchDirs = append(searchDirs, tok[2:])
		case strings.HasPrefix(tok, "-l") && len(tok) > 2:
			names = append(names, tok[2:])
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("pkg-config reported no libraries for %s", PkgConfigPackage)
	}

	for _, dir := range searchDirs {
		res.Links = append(res.Links, directive.LinkSearch(dir))
	}
	for _, name := range names {
		kind := directive.Dynamic
		if meta.WantStatic == buildmeta.PreferStatic && d.hasStatic(searchDirs, name) {
			kind = directive.Static
		}
		res.Links = append(res.Links, directive.LinkLib(kind, name))
	}
	for _, dir := range res.IncludeDirs {
		res.Links = append(res.Links, directive.Include(dir))
	}

	if len(searchDirs) > 0 {
		res.LibDir = searchDirs[0]
		res.SharedPresent = d.sharedPresent(res.LibDir)
	}
	if len(res.IncludeDirs) > 0 {
		res.IncludeDir = res.IncludeDirs[0]
	}
	return res, nil
}

// hasStatic reports whether lib<name>.a sits in one of dirs. Libraries
// pkg-config finds only in the compiler's default path link dynamically.
func (d *Discoverer) hasStatic(dirs []string, name string) bool {
	for _, dir := range dirs {
		if d.exists(filepath.Join(dir, "lib"+name+".a")) {
			return true
		}
	}
	return false
}

package discover

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/platform"
)

// Library files accepted by the probe.
var (
	staticLibs = []string{"libsasl2.a"}
	sharedLibs = []string{"libsasl2.so", "libsasl2.dylib"}
)

func (d *Discoverer) prefixes() []string {
	if len(d.Prefixes) > 0 {
		return d.Prefixes
	}
	return DefaultPrefixes
}

// probeDirs returns the candidate library directories under prefix, in
// search order.
func probeDirs(prefix, target string) []string {
	return []string{
		filepath.Join(prefix, "lib"),
		filepath.Join(prefix, "lib64"),
		filepath.Join(prefix, "lib", target),
		filepath.Join(prefix, "lib", platform.DebianTriple(target)),
	}
}

// probe looks for a library directory holding libsasl2 next to an include
// directory holding sasl/sasl.h.
func (d *Discoverer) probe(_ context.Context, meta buildmeta.Metadata, _ features.Toggles) (*Result, error) {
	logger := log.OrDefault(d.Logger)
	for _, prefix := range d.prefixes() {
		inc := filepath.Join(prefix, "include")
		header := filepath.Join(inc, "sasl", "sasl.h")
		if !d.exists(header) {
			logger.Debug("no sasl.h under prefix", "prefix", prefix)
			continue
		}
		if !d.readable(header) {
			logger.Warn("sasl.h is not readable, skipping prefix", "path", header)
			continue
		}
		for _, lib := range probeDirs(prefix, meta.Target) {
			if d.anyExists(lib, staticLibs) || d.anyExists(lib, sharedLibs) {
				logger.Debug("found libsasl2", "lib", lib, "include", inc)
				return d.found(SourceProbe, lib, inc), nil
			}
		}
	}
	return nil, nil
}

func (d *Discoverer) sharedPresent(dir string) bool {
	return d.anyExists(dir, sharedLibs)
}

func (d *Discoverer) anyExists(dir string, names []string) bool {
	for _, n := range names {
		if d.exists(filepath.Join(dir, n)) {
			return true
		}
	}
	return false
}

func (d *Discoverer) exists(path string) bool {
	ok, err := afero.Exists(d.fs(), path)
	return err == nil && ok
}

func (d *Discoverer) fs() afero.Fs {
	if d.Fs == nil {
		return afero.NewOsFs()
	}
	return d.Fs
}

// readable checks access permission on the real filesystem. Other
// filesystems are assumed readable.
func (d *Discoverer) readable(path string) bool {
	if _, ok := d.fs().(*afero.OsFs); !ok {
		return true
	}
	return canRead(path)
}

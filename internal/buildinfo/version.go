// Package buildinfo reports the sasl2-build version from Go build metadata.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// release is stamped by release builds:
//
//	go build -ldflags "-X github.com/tsukumogami/sasl2/internal/buildinfo.release=v0.1.0"
var release string

// Version returns the version string for the current build: the stamped
// release, the module version when installed from a tag, or a
// "dev-<hash>[-dirty]" pseudo-version.
func Version() string {
	if release != "" {
		return release
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return fromBuildInfo(info)
}

// Full returns Version with the toolchain and platform, as printed by
// --version.
func Full() string {
	return fmt.Sprintf("%s (%s %s/%s)", Version(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func fromBuildInfo(info *debug.BuildInfo) string {
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "dev"
	}

	// Standard short hash length
	if len(revision) > 12 {
		revision = revision[:12]
	}
	version := "dev-" + revision
	if modified {
		version += "-dirty"
	}
	return version
}

package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	rev := func(settings ...string) *debug.BuildInfo {
		info := &debug.BuildInfo{}
		for i := 0; i+1 < len(settings); i += 2 {
			info.Settings = append(info.Settings, debug.BuildSetting{Key: settings[i], Value: settings[i+1]})
		}
		return info
	}

	tests := []struct {
		name string
		info *debug.BuildInfo
		want string
	}{
		{"no vcs info", &debug.BuildInfo{}, "dev"},
		{"tagged module", &debug.BuildInfo{Main: debug.Module{Version: "v0.2.0"}}, "v0.2.0"},
		{"devel module uses vcs", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: rev("vcs.revision", "abc123").Settings}, "dev-abc123"},
		{"long revision truncated", rev("vcs.revision", "abc123def456789"), "dev-abc123def456"},
		{"dirty", rev("vcs.revision", "abc123def456789", "vcs.modified", "true"), "dev-abc123def456-dirty"},
		{"clean", rev("vcs.revision", "abc123def456789", "vcs.modified", "false"), "dev-abc123def456"},
		{"empty revision", rev("vcs.revision", ""), "dev"},
		{"other settings ignored", rev("vcs", "git", "vcs.time", "2025-01-15T12:00:00Z", "vcs.revision", "abc123def456"), "dev-abc123def456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromBuildInfo(tt.info); got != tt.want {
				t.Errorf("fromBuildInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersion_Release(t *testing.T) {
	orig := release
	defer func() { release = orig }()

	release = "v1.2.3"
	if got := Version(); got != "v1.2.3" {
		t.Errorf("Version() = %q, want stamped release", got)
	}
	if got := Full(); !strings.HasPrefix(got, "v1.2.3 ("+runtime.Version()) {
		t.Errorf("Full() = %q", got)
	}
}

func TestVersion_Unstamped(t *testing.T) {
	v := Version()
	valid := false
	for _, prefix := range []string{"v", "dev", "unknown"} {
		if strings.HasPrefix(v, prefix) {
			valid = true
			break
		}
	}
	if !valid {
		t.Errorf("Version() = %q, expected a tag, dev version or unknown", v)
	}
}

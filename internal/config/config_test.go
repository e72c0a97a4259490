package config

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsukumogami/sasl2/internal/log"
)

func TestGetNumJobs(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		want   int
		wantOK bool
		warns  bool
	}{
		{"unset", map[string]string{}, 0, false, false},
		{"empty", map[string]string{EnvNumJobs: ""}, 0, false, false},
		{"valid", map[string]string{EnvNumJobs: "8"}, 8, true, false},
		{"whitespace", map[string]string{EnvNumJobs: " 4 "}, 4, true, false},
		{"garbage", map[string]string{EnvNumJobs: "lots"}, 0, false, true},
		{"zero", map[string]string{EnvNumJobs: "0"}, 1, true, true},
		{"huge", map[string]string{EnvNumJobs: "100000"}, MaxNumJobs, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			env := MapEnv(tt.env).WithLogger(log.NewText(&buf, slog.LevelDebug))

			got, ok := env.GetNumJobs()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetNumJobs() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
			if warned := strings.Contains(buf.String(), "WARN"); warned != tt.warns {
				t.Errorf("warned = %v, want %v (log: %s)", warned, tt.warns, buf.String())
			}
		})
	}
}

func TestCompilerFor(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		target string
		want   string
	}{
		{"default", map[string]string{}, "x86_64-unknown-linux-gnu", "cc"},
		{"CC", map[string]string{"CC": "clang"}, "x86_64-unknown-linux-gnu", "clang"},
		{
			"target specific wins",
			map[string]string{"CC": "clang", "CC_aarch64_unknown_linux_gnu": "aarch64-linux-gnu-gcc"},
			"aarch64-unknown-linux-gnu",
			"aarch64-linux-gnu-gcc",
		},
		{"empty target", map[string]string{"CC": "gcc"}, "", "gcc"},
		{"msvc default", map[string]string{}, "x86_64-pc-windows-msvc", "cl"},
		{"msvc honors CC", map[string]string{"CC": "clang-cl"}, "x86_64-pc-windows-msvc", "clang-cl"},
		{"windows gnu default", map[string]string{}, "x86_64-pc-windows-gnu", "cc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapEnv(tt.env).CompilerFor(tt.target); got != tt.want {
				t.Errorf("CompilerFor(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestPathDefaults(t *testing.T) {
	work := t.TempDir()
	env := MapEnv(map[string]string{})

	if got := env.ConfigFile(work); got != filepath.Join(work, DefaultConfigFile) {
		t.Errorf("ConfigFile() = %q", got)
	}
	if got := env.SourceDir(work); got != filepath.Join(work, DefaultSourceDir) {
		t.Errorf("SourceDir() = %q", got)
	}
	if got := env.PkgConfig(); got != DefaultPkgConfig {
		t.Errorf("PkgConfig() = %q", got)
	}

	env = MapEnv(map[string]string{
		EnvConfigFile: "/etc/sasl2.toml",
		EnvSourceDir:  "/src/cyrus-sasl-2.1.28.tar.gz",
		EnvPkgConfig:  "x86_64-linux-gnu-pkg-config",
	})
	if got := env.ConfigFile(work); got != "/etc/sasl2.toml" {
		t.Errorf("ConfigFile() = %q", got)
	}
	if got := env.SourceDir(work); got != "/src/cyrus-sasl-2.1.28.tar.gz" {
		t.Errorf("SourceDir() = %q", got)
	}
	if got := env.PkgConfig(); got != "x86_64-linux-gnu-pkg-config" {
		t.Errorf("PkgConfig() = %q", got)
	}
}

func TestLookup(t *testing.T) {
	env := MapEnv(map[string]string{EnvStatic: ""})

	if v, ok := env.Lookup(EnvStatic); !ok || v != "" {
		t.Errorf("Lookup(set-but-empty) = (%q, %v)", v, ok)
	}
	if _, ok := env.Lookup(EnvLibDir); ok {
		t.Error("Lookup(unset) reported set")
	}
	if got := env.GetOr(EnvStatic, "fallback"); got != "fallback" {
		t.Errorf("GetOr(empty) = %q, want fallback", got)
	}
}

func TestPkgConfigFor(t *testing.T) {
	env := MapEnv(map[string]string{
		EnvPkgConfig:                           "pkg-config",
		"PKG_CONFIG_aarch64_unknown_linux_gnu": "aarch64-linux-gnu-pkg-config",
	})
	if got := env.PkgConfigFor("aarch64-unknown-linux-gnu"); got != "aarch64-linux-gnu-pkg-config" {
		t.Errorf("PkgConfigFor(aarch64) = %q", got)
	}
	if got := env.PkgConfigFor("x86_64-unknown-linux-gnu"); got != "pkg-config" {
		t.Errorf("PkgConfigFor(x86_64) = %q", got)
	}
}

func TestPkgConfigCrossAllowed(t *testing.T) {
	const target = "aarch64-unknown-linux-gnu"
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"nothing set", map[string]string{}, false},
		{"allow cross", map[string]string{EnvPkgConfigAllowCross: "1"}, true},
		{"allow cross zero", map[string]string{EnvPkgConfigAllowCross: "0"}, false},
		{"zero beats sysroot", map[string]string{EnvPkgConfigAllowCross: "0", EnvPkgConfigSysroot: "/sysroot"}, false},
		{"sysroot", map[string]string{EnvPkgConfigSysroot: "/sysroot"}, true},
		{"target binary", map[string]string{"PKG_CONFIG_aarch64_unknown_linux_gnu": "aarch64-linux-gnu-pkg-config"}, true},
		{"plain PKG_CONFIG is not consent", map[string]string{EnvPkgConfig: "pkg-config"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapEnv(tt.env).PkgConfigCrossAllowed(target); got != tt.want {
				t.Errorf("PkgConfigCrossAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Package testutil holds helpers for tests that run fake toolchains as
// real processes.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// SkipWithoutShell skips tests that execute /bin/sh scripts.
func SkipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WriteScript writes an executable shell script with body and returns
// its path.
func WriteScript(t *testing.T, path, body string) string {
	t.Helper()
	WriteFile(t, path, "#!/bin/sh\n"+body, 0755)
	return path
}

// FakeCompiler writes dir/cc, a compiler whose preprocessor output ends
// with the given version lines the way sasl/sasl.h would expand them.
func FakeCompiler(t *testing.T, dir string, major, minor, step int) string {
	t.Helper()
	return WriteScript(t, filepath.Join(dir, "cc"),
		fmt.Sprintf("printf '# 1 \"version.c\"\\n%d\\n%d\\n%d\\n'\n", major, minor, step))
}

// PrependPath puts dir first on PATH for the rest of the test.
func PrependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

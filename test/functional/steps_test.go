package functional

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// aCleanBuildEnvironment is a no-op because the Before hook already sets up
// the scratch directory. This step exists so feature files read naturally.
func aCleanBuildEnvironment(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

// noSystemLibsasl2 skips the scenario when the probe would find a real
// installation on this machine.
func noSystemLibsasl2(ctx context.Context) (context.Context, error) {
	for _, prefix := range []string{"/usr", "/usr/local"} {
		if _, err := os.Stat(filepath.Join(prefix, "include", "sasl", "sasl.h")); err == nil {
			return ctx, godog.ErrSkip
		}
	}
	return ctx, nil
}

func libsasl2InstalledUnder(ctx context.Context, kind, dir string) (context.Context, error) {
	state := getState(ctx)
	prefix := filepath.Join(state.root, dir)

	var libs []string
	switch kind {
	case "static":
		libs = []string{"libsasl2.a"}
	case "shared":
		libs = []string{"libsasl2.so"}
	default:
		libs = []string{"libsasl2.a", "libsasl2.so"}
	}
	for _, lib := range libs {
		if err := writeFile(filepath.Join(prefix, "lib", lib), "", 0o644); err != nil {
			return ctx, err
		}
	}
	return ctx, writeFile(filepath.Join(prefix, "include", "sasl", "sasl.h"), "", 0o644)
}

// theHeadersReportVersion installs a fake C compiler whose preprocessor
// output ends with the given version lines.
func theHeadersReportVersion(ctx context.Context, major, minor, step string) (context.Context, error) {
	state := getState(ctx)
	script := fmt.Sprintf("#!/bin/sh\nprintf '# 1 \"version.c\"\\n%s\\n%s\\n%s\\n'\n", major, minor, step)
	return ctx, writeFile(filepath.Join(state.root, "bin", "cc"), script, 0o755)
}

func envIsSetTo(ctx context.Context, key, value string) (context.Context, error) {
	state := getState(ctx)
	state.env[key] = state.expand(value)
	return ctx, nil
}

// aVendoredSourceTree lays out $ROOT/sasl2 with a configure script that
// records its arguments, next to a make that does nothing.
func aVendoredSourceTree(ctx context.Context) (context.Context, error) {
	state := getState(ctx)
	if err := writeConfigure(state, "v1"); err != nil {
		return ctx, err
	}
	for _, sub := range []string{"include", "common", "lib"} {
		if err := os.MkdirAll(filepath.Join(state.root, "sasl2", sub), 0o755); err != nil {
			return ctx, err
		}
	}
	return ctx, writeFile(filepath.Join(state.root, "bin", "make"), "#!/bin/sh\nexit 0\n", 0o755)
}

// theVendoredSourceTreeIsReplaced rewrites the checkout's configure so a
// run that stages again would log v2.
func theVendoredSourceTreeIsReplaced(ctx context.Context) (context.Context, error) {
	return ctx, writeConfigure(getState(ctx), "v2")
}

func writeConfigure(state *testState, tag string) error {
	script := fmt.Sprintf("#!/bin/sh\necho %s >> %s\nprintf '%%s\\n' \"$@\" > %s\n",
		tag, filepath.Join(state.root, "configure.log"), filepath.Join(state.root, "configure.args"))
	return writeFile(filepath.Join(state.root, "sasl2", "configure"), script, 0o755)
}

func writeFile(path, content string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), mode)
}

// iRun executes a command string, replacing "sasl2-build" with the test
// binary path and $ROOT with the scratch directory.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(state.expand(command))
	if len(args) > 0 && args[0] == "sasl2-build" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.root
	cmd.Env = commandEnv(state)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}

	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	text = state.expand(text)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	text = state.expand(text)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputIsEmpty(ctx context.Context) error {
	state := getState(ctx)
	if state.stdout != "" {
		return fmt.Errorf("expected no stdout, got:\n%s", state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	text = state.expand(text)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func readScenarioFile(state *testState, path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(state.root, path))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func theFileContains(ctx context.Context, path, text string) error {
	state := getState(ctx)
	content, err := readScenarioFile(state, path)
	if err != nil {
		return err
	}
	text = state.expand(text)
	if !strings.Contains(content, text) {
		return fmt.Errorf("expected %s to contain %q, got:\n%s", path, text, content)
	}
	return nil
}

func theFileDoesNotContain(ctx context.Context, path, text string) error {
	state := getState(ctx)
	content, err := readScenarioFile(state, path)
	if err != nil {
		return err
	}
	text = state.expand(text)
	if strings.Contains(content, text) {
		return fmt.Errorf("expected %s not to contain %q, got:\n%s", path, text, content)
	}
	return nil
}

func theFileHasLines(ctx context.Context, path string, n int) error {
	content, err := readScenarioFile(getState(ctx), path)
	if err != nil {
		return err
	}
	got := len(strings.Split(strings.TrimSpace(content), "\n"))
	if strings.TrimSpace(content) == "" {
		got = 0
	}
	if got != n {
		return fmt.Errorf("expected %s to have %d lines, got %d:\n%s", path, n, got, content)
	}
	return nil
}

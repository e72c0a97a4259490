package functional

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

type stateKeyType struct{}

var stateKey = stateKeyType{}

type testState struct {
	root     string // scratch directory; $ROOT in steps
	binPath  string
	env      map[string]string
	stdout   string
	stderr   string
	exitCode int
}

func getState(ctx context.Context) *testState {
	if s, ok := ctx.Value(stateKey).(*testState); ok {
		return s
	}
	return nil
}

func setState(ctx context.Context, s *testState) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// expand replaces $ROOT with the scenario's scratch directory.
func (s *testState) expand(text string) string {
	return strings.ReplaceAll(text, "$ROOT", s.root)
}

func TestFeatures(t *testing.T) {
	binPath := os.Getenv("SASL2_TEST_BINARY")
	if binPath == "" {
		t.Skip("SASL2_TEST_BINARY not set; build cmd/sasl2-build and point it at the binary")
	}

	// Resolve to absolute path since go test changes the working directory
	absBin, err := filepath.Abs(binPath)
	if err != nil {
		t.Fatalf("resolving binary path: %v", err)
	}
	binPath = absBin

	opts := &godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		TestingT: t,
	}
	if tags := os.Getenv("SASL2_TEST_TAGS"); tags != "" {
		opts.Tags = tags
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			initializeScenario(ctx, binPath)
		},
		Options: opts,
	}
	if suite.Run() != 0 {
		t.Fatal("functional tests failed")
	}
}

func initializeScenario(ctx *godog.ScenarioContext, binPath string) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		root, err := os.MkdirTemp("", "sasl2-functional-")
		if err != nil {
			return ctx, err
		}
		if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
			return ctx, err
		}
		state := &testState{
			root:    root,
			binPath: binPath,
			env:     map[string]string{},
		}
		return setState(ctx, state), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if state := getState(ctx); state != nil {
			os.RemoveAll(state.root)
		}
		return ctx, nil
	})

	// Environment steps
	ctx.Step(`^a clean build environment$`, aCleanBuildEnvironment)
	ctx.Step(`^no libsasl2 is installed on the system$`, noSystemLibsasl2)
	ctx.Step(`^an? (static|shared|static and shared) libsasl2 installed under "([^"]*)"$`, libsasl2InstalledUnder)
	ctx.Step(`^the headers report version "(\d+)\.(\d+)\.(\d+)"$`, theHeadersReportVersion)
	ctx.Step(`^"([A-Z0-9_]+)" is set to "([^"]*)"$`, envIsSetTo)
	ctx.Step(`^a vendored source tree$`, aVendoredSourceTree)
	ctx.Step(`^the vendored source tree is replaced$`, theVendoredSourceTreeIsReplaced)

	// Command steps
	ctx.Step(`^I run "([^"]*)"$`, iRun)

	// Assertion steps
	ctx.Step(`^the exit code is (\d+)$`, theExitCodeIs)
	ctx.Step(`^the exit code is not (\d+)$`, theExitCodeIsNot)
	ctx.Step(`^the output contains "([^"]*)"$`, theOutputContains)
	ctx.Step(`^the output does not contain "([^"]*)"$`, theOutputDoesNotContain)
	ctx.Step(`^the output is empty$`, theOutputIsEmpty)
	ctx.Step(`^the error output contains "([^"]*)"$`, theErrorOutputContains)
	ctx.Step(`^the file "([^"]*)" contains "([^"]*)"$`, theFileContains)
	ctx.Step(`^the file "([^"]*)" does not contain "([^"]*)"$`, theFileDoesNotContain)
	ctx.Step(`^the file "([^"]*)" has (\d+) lines?$`, theFileHasLines)
}

// commandEnv returns the environment for the binary under test. Variables
// the resolver reads are dropped from the inherited environment so only the
// scenario's settings apply.
func commandEnv(state *testState) []string {
	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "SASL2_") || strings.HasPrefix(key, "CC") || key == "PATH" ||
			key == "HOST" || key == "TARGET" || key == "OUT_DIR" || key == "NUM_JOBS" || strings.HasPrefix(key, "PKG_CONFIG") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		"PATH="+filepath.Join(state.root, "bin")+string(os.PathListSeparator)+os.Getenv("PATH"),
		"CC="+filepath.Join(state.root, "bin", "cc"),
	)
	for k, v := range state.env {
		env = append(env, k+"="+v)
	}
	return env
}

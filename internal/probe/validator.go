package probe

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/runner"
)

//go:embed csrc/version.c
var versionSource []byte

// probeFile is the name the probe unit is written under in WorkDir.
const probeFile = "version.c"

// Validator preprocesses the probe unit against candidate headers.
type Validator struct {
	Runner runner.Runner

	// Compiler is the C compiler command, possibly with leading arguments
	// (e.g., "ccache cc").
	Compiler string

	// WorkDir receives the probe unit. It is normally OUT_DIR.
	WorkDir string

	Logger log.Logger
}

// Preprocess writes the probe unit and returns the preprocessor's stdout.
func (v *Validator) Preprocess(ctx context.Context, includeDirs []string) (string, error) {
	if err := os.MkdirAll(v.WorkDir, 0755); err != nil {
		return "", builderr.Tool("version probe", fmt.Errorf("create work dir: %w", err), "")
	}
	src := filepath.Join(v.WorkDir, probeFile)
	if err := os.WriteFile(src, versionSource, 0644); err != nil {
		return "", builderr.Tool("version probe", fmt.Errorf("write %s: %w", probeFile, err), "")
	}

	fields := strings.Fields(v.Compiler)
	if len(fields) == 0 {
		fields = []string{"cc"}
	}
	args := append([]string{}, fields[1:]...)
	args = append(args, "-E")
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, src)

	out, err := v.Runner.Output(ctx, runner.Command{
		Step: "version probe",
		Name: fields[0],
		Args: args,
		Dir:  v.WorkDir,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Validate probes includeDirs and checks the reported version.
func (v *Validator) Validate(ctx context.Context, includeDirs []string) (Version, error) {
	out, err := v.Preprocess(ctx, includeDirs)
	if err != nil {
		return Version{}, err
	}
	ver, err := ParseOutput(out)
	if err != nil {
		return Version{}, err
	}
	if err := Check(ver); err != nil {
		return ver, err
	}
	log.OrDefault(v.Logger).Info("validated libsasl2 headers", "version", ver.String(), "include", strings.Join(includeDirs, ","))
	return ver, nil
}

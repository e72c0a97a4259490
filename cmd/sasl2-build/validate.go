package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/directive"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/probe"
	"github.com/tsukumogami/sasl2/internal/runner"
)

var includeFlags []string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the version of libsasl2 headers",
	Long: fmt.Sprintf(`Preprocess a probe against sasl/sasl.h and check that the headers
report a supported version (%s). On success the version is
printed as env directives.

The headers are searched in each --include directory, then
SASL2_INCLUDE_DIR, then the compiler's default path.

Examples:
  sasl2-build validate --include /usr/include
  CC=clang sasl2-build validate`, probe.SupportedRange),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newEnv()
		dirs := includeFlags
		if len(dirs) == 0 {
			if inc := env.Get(config.EnvIncludeDir); inc != "" {
				dirs = []string{inc}
			}
		}

		target := targetFlag
		if target == "" {
			target = env.Get(config.EnvTarget)
		}
		work := outDirFlag
		if work == "" {
			work = env.Get(config.EnvOutDir)
		}
		if work == "" {
			tmp, err := os.MkdirTemp("", "sasl2-validate-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)
			work = tmp
		}

		v := &probe.Validator{
			Runner:   runner.New(log.Default()),
			Compiler: env.CompilerFor(target),
			WorkDir:  work,
			Logger:   log.Default(),
		}
		ver, err := v.Validate(cmd.Context(), dirs)
		if err != nil {
			return err
		}
		return directive.NewEmitter(cmd.OutOrStdout()).Emit(directive.Version(ver)...)
	},
}

func init() {
	validateCmd.Flags().StringArrayVarP(&includeFlags, "include", "I", nil, "Header search directory (repeatable)")
	validateCmd.Flags().StringVar(&targetFlag, "target", "", "Triple whose C compiler runs the probe (default $TARGET)")
	validateCmd.Flags().StringVar(&outDirFlag, "out-dir", "", "Directory for the probe source (default $OUT_DIR or a temporary directory)")
}

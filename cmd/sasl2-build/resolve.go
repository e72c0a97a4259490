package main

import (
	"github.com/spf13/cobra"

	"github.com/tsukumogami/sasl2/internal/directive"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/platform"
	"github.com/tsukumogami/sasl2/internal/resolve"
	"github.com/tsukumogami/sasl2/internal/runner"
)

var (
	cgoFileFlag    string
	cgoPackageFlag string
	cgoTagFlag     string
	envFileFlag    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Acquire libsasl2 and print link directives",
	Long: `Acquire libsasl2 for the target and print its link directives.

With the vendored feature the bundled sources are built into OUT_DIR.
Otherwise an installed libsasl2 is located, trying in order:
SASL2_LIB_DIR with SASL2_INCLUDE_DIR, SASL2_DIR, pkg-config (with the
pkg-config feature), the macOS system library, and /usr, /usr/local.

Examples:
  sasl2-build resolve
  sasl2-build resolve --features vendored,scram --cgo-file zz_sasl2_cgo.go --cgo-package sasl2
  SASL2_STATIC=1 sasl2-build resolve --env-file sasl2.env`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newEnv()
		meta, err := loadMeta(env)
		if err != nil {
			return err
		}
		dir, err := workDir()
		if err != nil {
			return err
		}
		cfg, err := loadFeatures(env, dir)
		if err != nil {
			return err
		}

		emitter := directive.NewEmitter(cmd.OutOrStdout())
		r := &resolve.Resolver{
			Meta:    meta,
			Config:  cfg,
			Env:     env,
			WorkDir: dir,
			Runner:  runner.New(log.Default()),
			Emitter: emitter,
			Logger:  log.Default(),
		}
		if _, err := r.Resolve(cmd.Context()); err != nil {
			return err
		}
		return writeOutputs(meta.TargetFamily(), emitter.Directives())
	},
}

func init() {
	addBuildFlags(resolveCmd)
	addOutputFlags(resolveCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cgoFileFlag, "cgo-file", "", "Write #cgo flags and version constants to this Go file")
	f.StringVar(&cgoPackageFlag, "cgo-package", "sasl2", "Package clause of the generated Go file")
	f.StringVar(&cgoTagFlag, "cgo-tag", "", "Build constraint guarding the generated Go file")
	f.StringVar(&envFileFlag, "env-file", "", "Write the published version as KEY=VALUE lines to this file")
}

func writeOutputs(target platform.Family, ds []directive.Directive) error {
	if cgoFileFlag != "" {
		f := directive.CgoFile{Package: cgoPackageFlag, BuildTag: cgoTagFlag, Target: target}
		if err := f.Write(cgoFileFlag, ds); err != nil {
			return err
		}
		log.Default().Info("wrote cgo flags file", "path", cgoFileFlag)
	}
	if envFileFlag != "" {
		if err := directive.WriteEnvFile(envFileFlag, ds); err != nil {
			return err
		}
	}
	return nil
}

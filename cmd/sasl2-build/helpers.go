package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/sasl2/internal/buildmeta"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/log"
)

// Build metadata flags shared by resolve and validate.
var (
	hostFlag     string
	targetFlag   string
	outDirFlag   string
	featuresFlag string
	workDirFlag  string
)

func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&hostFlag, "host", "", "Triple of the build machine (default $HOST)")
	f.StringVar(&targetFlag, "target", "", "Triple being built for (default $TARGET)")
	f.StringVar(&outDirFlag, "out-dir", "", "Private working directory (default $OUT_DIR)")
	f.StringVar(&featuresFlag, "features", "", "Comma-separated features applied after the feature file and $SASL2_FEATURES")
	f.StringVar(&workDirFlag, "work-dir", "", "Directory holding sasl2.toml and the vendored sources (default current directory)")
}

func newEnv() *config.Env {
	return config.OSEnv().WithLogger(log.Default())
}

func workDir() (string, error) {
	if workDirFlag != "" {
		return workDirFlag, nil
	}
	return os.Getwd()
}

func loadMeta(env *config.Env) (buildmeta.Metadata, error) {
	return buildmeta.FromEnv(env, buildmeta.Overrides{
		Host:   hostFlag,
		Target: targetFlag,
		OutDir: outDirFlag,
	})
}

func loadFeatures(env *config.Env, dir string) (*features.Config, error) {
	return features.Load(env.ConfigFile(dir), env.Get(config.EnvFeatures), featuresFlag)
}

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/sasl2/internal/features"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Manage the feature file",
	Long: `Manage the build features stored in sasl2.toml (or $SASL2_CONFIG).

SASL2_FEATURES and --features are applied on top of the file at
resolve time; these commands only read and write the file.

Examples:
  sasl2-build features list
  sasl2-build features get vendored
  sasl2-build features set scram true`,
}

var featuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every feature and its effective value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newEnv()
		dir, err := workDir()
		if err != nil {
			return err
		}
		cfg, err := loadFeatures(env, dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range sortedKeys() {
			v, _ := cfg.Get(k)
			fmt.Fprintf(out, "%-16s %-5s  %s\n", k, v, features.AvailableKeys()[k])
		}
		return nil
	},
}

var featuresGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a feature value from the feature file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := featureFile()
		if err != nil {
			return err
		}
		cfg, err := features.LoadFile(path)
		if err != nil {
			return err
		}
		value, ok := cfg.Get(args[0])
		if !ok {
			printAvailableKeys(cmd.ErrOrStderr())
			return usageError{fmt.Errorf("unknown feature: %s", args[0])}
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var featuresSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a feature value in the feature file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := featureFile()
		if err != nil {
			return err
		}
		cfg, err := features.LoadFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			printAvailableKeys(cmd.ErrOrStderr())
			return usageError{err}
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
		return nil
	},
}

func featureFile() (string, error) {
	dir, err := workDir()
	if err != nil {
		return "", err
	}
	return newEnv().ConfigFile(dir), nil
}

func sortedKeys() []string {
	var keys []string
	for k := range features.AvailableKeys() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printAvailableKeys(w io.Writer) {
	fmt.Fprintf(w, "Available keys:\n")
	keys := features.AvailableKeys()
	for _, k := range sortedKeys() {
		fmt.Fprintf(w, "  %s - %s\n", k, keys[k])
	}
}

func init() {
	featuresCmd.PersistentFlags().StringVar(&workDirFlag, "work-dir", "", "Directory holding sasl2.toml (default current directory)")
	featuresListCmd.Flags().StringVar(&featuresFlag, "features", "", "Comma-separated features applied on top")
	featuresCmd.AddCommand(featuresListCmd)
	featuresCmd.AddCommand(featuresGetCmd)
	featuresCmd.AddCommand(featuresSetCmd)
}

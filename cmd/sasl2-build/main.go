package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tsukumogami/sasl2/internal/buildinfo"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/errmsg"
	"github.com/tsukumogami/sasl2/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "sasl2-build",
	Short: "Acquire and link libsasl2 for cgo builds",
	Long: `sasl2-build decides how libsasl2 is provided to a cgo package: built
from vendored sources into OUT_DIR or found on the system. It checks the
header version and prints sasl2:key=value link directives on stdout.

Build metadata comes from HOST, TARGET and OUT_DIR, or the matching flags.
Diagnostics go to stderr.

Environment:
  SASL2_STATIC         Link statically ("0" forces dynamic)
  SASL2_FEATURES       Comma-separated features, e.g. "vendored,-scram"
  SASL2_LIB_DIR        Exact directory holding libsasl2
  SASL2_INCLUDE_DIR    Exact directory holding sasl/sasl.h
  SASL2_DIR            Installation root with lib/ and include/
  SASL2_SOURCE_DIR     Vendored source tree or release archive
  SASL2_CONFIG         Feature file (default ./sasl2.toml)`,
	Version:       buildinfo.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetDefault(log.NewText(os.Stderr, determineLogLevel()))
		color.NoColor = noColorFlag || !term.IsTerminal(int(os.Stderr.Fd()))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "Log which strategy ran and what it found")
	pf.BoolVar(&debugFlag, "debug", false, "Log every probed path and command line")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable colored error output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(featuresCmd)
}

// isTruthy reports whether an environment value switches a setting on.
func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// determineLogLevel combines the verbosity flags with SASL2_QUIET,
// SASL2_VERBOSE and SASL2_DEBUG. Any flag takes precedence over the
// environment.
func determineLogLevel() slog.Level {
	if quietFlag || verboseFlag || debugFlag {
		return log.LevelFromFlags(quietFlag, verboseFlag, debugFlag)
	}
	return log.LevelFromFlags(
		isTruthy(os.Getenv("SASL2_QUIET")),
		isTruthy(os.Getenv("SASL2_VERBOSE")),
		isTruthy(os.Getenv("SASL2_DEBUG")),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(err)
		exitWithCode(exitCodeFor(err))
	}
}

// printError prints an error to stderr with suggestions if available.
func printError(err error) {
	if _, ok := err.(usageError); ok {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'sasl2-build --help' for usage.\n", err)
		return
	}
	target := targetFlag
	if target == "" {
		target = os.Getenv(config.EnvTarget)
	}
	errmsg.Fprint(os.Stderr, err, &errmsg.ErrorContext{Target: target})
}

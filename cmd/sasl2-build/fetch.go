package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/sasl2/internal/fetch"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/probe"
	"github.com/tsukumogami/sasl2/internal/secrets"
)

var (
	fetchVersionFlag    string
	fetchDestFlag       string
	fetchArchiveDirFlag string
	fetchPublicKeyFlag  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a libsasl2 release as vendored sources",
	Long: fmt.Sprintf(`Download a cyrus-sasl release from GitHub and extract it as the
vendored source tree. Only versions in %s can be fetched.

Set GITHUB_TOKEN to authenticate and raise the API rate limit.

Examples:
  sasl2-build fetch
  sasl2-build fetch --version 2.1.27 --dest third_party/sasl2
  sasl2-build fetch --public-key keys/cyrus-sasl.asc --archive-dir downloads`, probe.SupportedRange),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newEnv()
		dest := fetchDestFlag
		if dest == "" {
			dir, err := workDir()
			if err != nil {
				return err
			}
			dest = env.SourceDir(dir)
		}

		token, err := secrets.Optional(env, secrets.GitHubToken)
		if err != nil {
			return err
		}
		f := fetch.New(token, log.Default())
		if !quietFlag {
			f.Progress = cmd.ErrOrStderr()
		}
		res, err := f.Fetch(cmd.Context(), fetch.Request{
			Version:    fetchVersionFlag,
			Dest:       dest,
			ArchiveDir: fetchArchiveDirFlag,
			PublicKey:  fetchPublicKeyFlag,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Staged {
			fmt.Fprintf(out, "%s already present, left unchanged\n", dest)
			return nil
		}
		verified := ""
		if res.Verified {
			verified = ", signature verified"
		}
		fmt.Fprintf(out, "Fetched %s (%s%s) into %s\n", res.Tag, humanize.Bytes(uint64(res.Size)), verified, dest)
		return nil
	},
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchVersionFlag, "version", "2.1.28", "Release version to fetch")
	f.StringVar(&fetchDestFlag, "dest", "", "Directory to extract into (default $SASL2_SOURCE_DIR or ./sasl2)")
	f.StringVar(&fetchArchiveDirFlag, "archive-dir", "", "Keep the downloaded archive and signature here")
	f.StringVar(&fetchPublicKeyFlag, "public-key", "", "Armored PGP key the release signature must verify against")
	f.StringVar(&workDirFlag, "work-dir", "", "Directory the default destination is relative to")
}

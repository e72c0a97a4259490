// Package fetch downloads a libsasl2 release from GitHub and stages it
// as a vendored source tree.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/go-github/v57/github"
	"github.com/spf13/afero"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/httputil"
	"github.com/tsukumogami/sasl2/internal/log"
	"github.com/tsukumogami/sasl2/internal/probe"
	"github.com/tsukumogami/sasl2/internal/progress"
	"github.com/tsukumogami/sasl2/internal/vendored"
)

const (
	// Owner and Repo name the upstream release repository.
	Owner = "cyrusimap"
	Repo  = "cyrus-sasl"

	// MaxArchiveSize bounds a downloaded release tarball.
	MaxArchiveSize = 64 << 20

	// APITimeout bounds the release lookup.
	APITimeout = 30 * time.Second
)

// Tag returns the upstream tag for version, e.g. "cyrus-sasl-2.1.28".
func Tag(version string) string {
	return "cyrus-sasl-" + strings.TrimPrefix(version, "v")
}

// Fetcher resolves releases and downloads their assets.
type Fetcher struct {
	GitHub *github.Client
	HTTP   *http.Client
	Fs     afero.Fs
	Logger log.Logger

	// Authenticated records whether GitHub requests carry a token; it
	// only affects error messages.
	Authenticated bool

	// Progress receives the lookup spinner and download progress. Nil
	// disables both.
	Progress io.Writer
}

// New returns a Fetcher for the public GitHub API. A non-empty token
// authenticates both the API and the asset downloads.
func New(token string, logger log.Logger) *Fetcher {
	client := httputil.New(httputil.Options{Token: token})
	return &Fetcher{
		GitHub:        github.NewClient(client),
		HTTP:          client,
		Fs:            afero.NewOsFs(),
		Logger:        logger,
		Authenticated: token != "",
	}
}

// Request describes one fetch.
type Request struct {
	Version string

	// Dest receives the extracted source tree. Fetching into an existing
	// Dest is a no-op.
	Dest string

	// ArchiveDir keeps the downloaded archive and signature. When empty
	// they go to a temporary directory removed afterwards.
	ArchiveDir string

	// PublicKey, when set, is an armored key the release signature must
	// verify against.
	PublicKey string
}

// Result describes a completed fetch.
type Result struct {
	Tag       string
	Archive   string
	Signature string
	Size      int64
	Verified  bool
	Staged    bool
}

// Fetch downloads req.Version and extracts it into req.Dest.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	logger := log.OrDefault(f.Logger)

	if !probe.Supported(req.Version) {
		return nil, builderr.Unsupported("libsasl2 version %q is outside the supported range %s", req.Version, probe.SupportedRange)
	}
	if req.Dest == "" {
		return nil, errors.New("fetch: no destination directory")
	}

	tag := Tag(req.Version)
	var spinner *progress.Spinner
	if f.Progress != nil {
		spinner = progress.NewSpinner(f.Progress)
		spinner.Start(fmt.Sprintf("Looking up %s/%s %s", Owner, Repo, tag))
	}
	archiveAsset, sigAsset, err := f.assets(ctx, tag)
	if spinner != nil {
		spinner.Stop("")
	}
	if err != nil {
		return nil, err
	}
	if req.PublicKey != "" && sigAsset == nil {
		return nil, fmt.Errorf("release %s has no signature for %s", tag, archiveAsset.GetName())
	}

	dir := req.ArchiveDir
	if dir == "" {
		dir, err = afero.TempDir(f.Fs, "", "sasl2-fetch-")
		if err != nil {
			return nil, err
		}
		defer f.Fs.RemoveAll(dir)
	} else if err := f.Fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	res := &Result{Tag: tag, Archive: filepath.Join(dir, archiveAsset.GetName())}
	res.Size, err = f.download(ctx, archiveAsset, res.Archive, MaxArchiveSize)
	if err != nil {
		return nil, err
	}
	logger.Info("downloaded release archive", "tag", tag, "size", humanize.Bytes(uint64(res.Size)))

	src := features.Source{Archive: res.Archive}
	if sigAsset != nil {
		res.Signature = filepath.Join(dir, sigAsset.GetName())
		if _, err := f.download(ctx, sigAsset, res.Signature, vendored.MaxSignatureSize); err != nil {
			return nil, err
		}
	}
	if req.PublicKey != "" {
		src.Signature = res.Signature
		src.PublicKey = req.PublicKey
		res.Verified = true
	}

	stager := &vendored.Stager{Fs: f.Fs, Logger: f.Logger}
	res.Staged, err = stager.Stage(src, req.Dest)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// assets looks up tag and returns its source tarball and, if published,
// the matching detached signature.
func (f *Fetcher) assets(ctx context.Context, tag string) (archive, sig *github.ReleaseAsset, err error) {
	lookupCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	release, resp, err := f.GitHub.Repositories.GetReleaseByTag(lookupCtx, Owner, Repo, tag)
	if err != nil {
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			msg := fmt.Sprintf("GitHub API rate limit exceeded (resets %s)", humanize.Time(rateErr.Rate.Reset.Time))
			if !f.Authenticated {
				msg += ". Set GITHUB_TOKEN environment variable to increase limits"
			}
			return nil, nil, errors.New(msg)
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil, fmt.Errorf("release %s not found in %s/%s", tag, Owner, Repo)
		}
		return nil, nil, fmt.Errorf("failed to fetch release %s: %w", tag, err)
	}

	byName := make(map[string]*github.ReleaseAsset, len(release.Assets))
	for _, a := range release.Assets {
		byName[a.GetName()] = a
	}
	for _, a := range release.Assets {
		name := a.GetName()
		if vendored.DetectFormat(name) == "unknown" {
			continue
		}
		return a, byName[name+".sig"], nil
	}
	return nil, nil, fmt.Errorf("release %s has no source archive", tag)
}

func (f *Fetcher) download(ctx context.Context, asset *github.ReleaseAsset, path string, limit int64) (int64, error) {
	file, err := f.Fs.Create(path)
	if err != nil {
		return 0, err
	}
	w := io.Writer(file)
	var pw *progress.Writer
	if f.Progress != nil {
		pw = progress.NewWriter(file, int64(asset.GetSize()), f.Progress, asset.GetName())
		w = pw
	}
	n, err := httputil.Download(ctx, f.HTTP, asset.GetBrowserDownloadURL(), w, limit)
	if pw != nil && err == nil {
		pw.Finish()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = f.Fs.Remove(path)
		return 0, err
	}
	return n, nil
}

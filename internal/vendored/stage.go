package vendored

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/features"
	"github.com/tsukumogami/sasl2/internal/log"
)

// Stager copies the vendored sources into the private build tree. The
// build system does not support out-of-tree builds and the checkout may
// be shared, so the build never runs in the original location.
type Stager struct {
	Fs     afero.Fs
	Logger log.Logger
}

// Stage populates dst from src. It is a no-op when dst already exists.
// A failed stage removes dst so the next run starts over.
func (s *Stager) Stage(src features.Source, dst string) (staged bool, err error) {
	logger := log.OrDefault(s.Logger)

	if _, err := s.Fs.Stat(dst); err == nil {
		logger.Debug("source tree already staged", "dir", dst)
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, builderr.Tool("stage", err, "")
	}

	switch {
	case src.Dir != "":
		var size int64
		size, err = copyTree(s.Fs, src.Dir, dst)
		if err == nil {
			logger.Info("copied source tree", "from", src.Dir, "to", dst, "size", humanize.Bytes(uint64(size)))
		}
	case src.Archive != "":
		err = s.unpack(src, dst)
		if err == nil {
			logger.Info("extracted source archive", "archive", src.Archive, "to", dst)
		}
	default:
		err = fmt.Errorf("no source directory or archive configured")
	}
	if err != nil {
		_ = s.Fs.RemoveAll(dst)
		return false, builderr.Tool("stage", err, "")
	}
	return true, nil
}

func (s *Stager) unpack(src features.Source, dst string) error {
	if src.Signature != "" {
		if src.PublicKey == "" {
			return fmt.Errorf("signature %s given without a public key", src.Signature)
		}
		if err := VerifyFiles(s.Fs, src.Archive, src.Signature, src.PublicKey); err != nil {
			return err
		}
		log.OrDefault(s.Logger).Info("verified source signature", "archive", src.Archive)
	}
	if err := s.Fs.MkdirAll(dst, 0755); err != nil {
		return err
	}
	// Release tarballs wrap everything in cyrus-sasl-<version>/.
	return Extract(s.Fs, src.Archive, dst, 1)
}

// copyTree copies the directory tree at src to dst, preserving file
// modes. It returns the number of bytes copied.
func copyTree(fs afero.Fs, src, dst string) (int64, error) {
	info, err := fs.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source %s is not a directory", src)
	}

	var total int64
	err = afero.Walk(fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case fi.IsDir():
			return fs.MkdirAll(target, fi.Mode().Perm()|0700)
		case fi.Mode()&os.ModeSymlink != 0:
			return copySymlink(fs, path, target)
		case fi.Mode().IsRegular():
			n, err := copyFile(fs, path, target, fi.Mode().Perm())
			total += n
			return err
		default:
			return nil
		}
	})
	return total, err
}

func copyFile(fs afero.Fs, src, dst string, mode os.FileMode) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, ok := fs.(afero.LinkReader)
	linker, ok2 := fs.(afero.Linker)
	if !ok || !ok2 {
		return nil
	}
	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return err
	}
	return linker.SymlinkIfPossible(target, dst)
}

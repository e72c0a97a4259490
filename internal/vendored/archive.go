package vendored

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

// DetectFormat returns the archive format implied by filename, or
// "unknown".
func DetectFormat(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "tar.xz"
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return "tar.zst"
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return "tar.lz"
	case strings.HasSuffix(lower, ".tar"):
		return "tar"
	default:
		return "unknown"
	}
}

// Extract unpacks a source archive into dest, dropping the first
// stripDirs path components of every entry.
func Extract(fs afero.Fs, archivePath, dest string, stripDirs int) error {
	f, err := fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch format := DetectFormat(archivePath); format {
	case "tar.gz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case "tar.xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xzr
	case "tar.zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case "tar.lz":
		lr, err := lzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create lzip reader: %w", err)
		}
		r = lr
	case "tar":
		r = f
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	return extractTar(fs, tar.NewReader(r), dest, stripDirs)
}

func extractTar(fs afero.Fs, tr *tar.Reader, dest string, stripDirs int) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		parts := strings.Split(strings.TrimPrefix(header.Name, "./"), "/")
		if len(parts) <= stripDirs {
			continue
		}
		rel := filepath.Join(parts[stripDirs:]...)
		if rel == "" || rel == "." {
			continue
		}
		target := filepath.Join(dest, rel)

		if !isPathWithinDirectory(target, dest) {
			return fmt.Errorf("archive entry escapes destination directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			out, err := fs.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}

		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, dest); err != nil {
				return err
			}
			linker, ok := fs.(afero.Linker)
			if !ok {
				return fmt.Errorf("cannot create symlink %s: filesystem does not support links", header.Name)
			}
			if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := linker.SymlinkIfPossible(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}
		}
	}
}

// isPathWithinDirectory reports whether targetPath is basePath or lies
// beneath it.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects links that are absolute or resolve
// outside destPath.
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolved)
	}
	return nil
}

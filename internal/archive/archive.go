// Package archive unpacks source tarballs into a build directory.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Format is a supported archive encoding
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatTarGz
	FormatTarXz
)

// DetectFormat picks the format from the archive file name
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extract unpacks the archive at src into dest
func Extract(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch DetectFormat(src) {
	case FormatTarGz:
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read gzip stream: %w", err)
		}
		defer gz.Close()

		r = gz
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read xz stream: %w", err)
		}

		r = xzr
	case FormatTar:
		r = f
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(src))
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	return untar(tar.NewReader(r), dest)
}

// untar writes every entry through an os.Root on dest, so no entry can reach
// outside it, including through symlinks created by earlier entries
func untar(tr *tar.Reader, dest string) error {
	root, err := os.OpenRoot(dest)
	if err != nil {
		return fmt.Errorf("failed to open build directory: %w", err)
	}
	defer root.Close()

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		name, err := entryName(hdr.Name)
		if err != nil {
			return err
		}

		mode := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if name == "." {
				continue
			}

			if err := root.MkdirAll(name, 0o755); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}

		case tar.TypeReg:
			if err := writeFile(root, name, tr, mode); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || escapes(filepath.Join(filepath.Dir(name), filepath.FromSlash(hdr.Linkname))) {
				return fmt.Errorf("symlink %s points outside the archive", hdr.Name)
			}

			if err := mkdirParent(root, name); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}

			if err := root.Symlink(hdr.Linkname, name); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}

		case tar.TypeXGlobalHeader:
			// pax comment GitHub adds to archives

		default:
			// device nodes, fifos and hard links are not needed to build
		}
	}
}

func writeFile(root *os.Root, name string, r io.Reader, mode os.FileMode) error {
	if err := mkdirParent(root, name); err != nil {
		return err
	}

	if mode == 0 {
		mode = 0o644
	}

	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func mkdirParent(root *os.Root, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}

	return root.MkdirAll(dir, 0o755)
}

// entryName cleans an archive entry name into a path relative to the
// build directory and rejects names that climb out of it
func entryName(name string) (string, error) {
	p := filepath.Clean(filepath.FromSlash(strings.TrimLeft(name, "/")))
	if escapes(p) {
		return "", fmt.Errorf("archive entry %q escapes the build directory", name)
	}

	return p, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SourceRoot returns the single top-level directory of an extracted archive,
// as found in GitHub release tarballs, or dir itself otherwise
func SourceRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}

	return dir, nil
}

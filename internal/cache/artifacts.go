package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyArtifact copies src to dst, creating parent directories and preserving
// the file mode. The content is written to a temporary file next to dst and
// renamed into place, so dst is either the old or the new file, never a mix.
func CopyArtifact(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	if srcInfo.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, srcFile); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}

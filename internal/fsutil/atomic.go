// Package fsutil provides file system helpers shared by cazan's writers.
package fsutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path so that readers only ever observe the
// old content or the complete new content. Parent directories are created as
// needed. The temp file lives next to path so the final rename never crosses
// a file system boundary.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpName, err := StageFile(path, data, perm)
	if err != nil {
		return err
	}
	return Commit(tmpName, path)
}

// StageFile writes data to a synced temp file beside path and returns its
// name. The caller must Commit or Discard it.
func StageFile(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	staged := false
	defer func() {
		_ = tmp.Close()
		if !staged {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return "", err
	}
	if err := tmp.Chmod(perm); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	staged = true
	return tmpName, nil
}

// Commit renames a staged file into place and syncs the directory.
func Commit(tmpName, path string) error {
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return fsyncDir(filepath.Dir(path))
}

// Discard removes a staged file that will not be committed.
func Discard(tmpName string) {
	if tmpName != "" {
		_ = os.Remove(tmpName)
	}
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

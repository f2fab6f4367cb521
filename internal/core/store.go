package core

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFileAtomic replaces path with data without ever exposing a partial
// file: data goes to a temporary file in the same directory, which is
// synced and renamed over path. On failure the temporary file is removed
// and path is left untouched.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp.*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temporary file")
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "chmod temporary file")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temporary file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename into place")
	}
	committed = true
	return nil
}

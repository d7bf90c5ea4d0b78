// Package fs provides filesystem helpers shared across the daemon.
package fs

import (
	"errors"
	"os"
	"path"
)

// WriteFileAtomic writes data through a temp file and rename so readers never
// observe a partial file. Atomicity only holds when the temp file lands on
// the same filesystem as the target, which placing it in the target's
// directory guarantees.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) (err error) {
	dir := path.Dir(filePath)
	tmp, err := os.CreateTemp(dir, ".bootkit-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Chmod(perm))
	err = errors.Join(err, tmp.Sync())
	err = errors.Join(err, tmp.Close())
	if err != nil {
		return err
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		return err
	}

	// fsync the directory so the rename survives power loss
	dfd, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer dfd.Close()
	return dfd.Sync()
}

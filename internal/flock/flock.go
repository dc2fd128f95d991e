package flock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/taskflow/internal/errors"
)

// Acquire creates lockPath if needed and takes an exclusive, non-blocking
// lock on it. The returned function releases the lock and closes the file.
// A lock held elsewhere yields errors.ErrLockHeld.
func Acquire(lockPath string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create lock directory")
	}

	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // lock file next to config
	if err != nil {
		return nil, errors.Wrap(err, "failed to open lock file")
	}

	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", errors.ErrLockHeld, lockPath)
	}

	return func() error {
		unlockErr := Unlock(f.Fd())
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}

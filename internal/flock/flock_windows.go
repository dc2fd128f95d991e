//go:build windows

package flock

import "golang.org/x/sys/windows"

// wholeFile is the byte range passed to LockFileEx. Locking the first byte
// is enough since every taskflow process locks the same range.
const wholeFile = 1

// Exclusive takes a non-blocking exclusive LockFileEx on the handle fd.
func Exclusive(fd uintptr) error {
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	return windows.LockFileEx(windows.Handle(fd), flags, 0, wholeFile, 0, new(windows.Overlapped))
}

// Unlock releases the range taken by Exclusive.
func Unlock(fd uintptr) error {
	return windows.UnlockFileEx(windows.Handle(fd), 0, wholeFile, 0, new(windows.Overlapped))
}

//go:build unix

package flock

import "golang.org/x/sys/unix"

// Exclusive takes a non-blocking exclusive flock(2) on fd.
func Exclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

// Unlock drops the flock(2) held on fd.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}

// Package flock provides cross-platform advisory file locks.
//
// taskflow takes these locks around writes to its configuration files so
// two concurrent `taskflow init` runs cannot interleave.
//
// Usage:
//
//	release, err := flock.Acquire(path + ".lock")
//	if err != nil {
//	    // another process holds the lock
//	}
//	defer release()
package flock

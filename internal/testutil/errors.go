// Package testutil provides testing utilities for taskflow.
//
// This package contains mock errors and test helpers used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockGateUnavailable simulates an access gate outage.
	ErrMockGateUnavailable = errors.New("access gate unavailable")

	// ErrMockStoreUnavailable simulates a failing backing store.
	ErrMockStoreUnavailable = errors.New("store unavailable")

	// ErrMockCacheUnavailable simulates a failing cache backend.
	ErrMockCacheUnavailable = errors.New("cache unavailable")
)

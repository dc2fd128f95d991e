// Package constants provides centralized constant values used throughout taskflow.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by taskflow for organizing local data.
const (
	// FlowHome is the hidden directory name where taskflow stores its data.
	// This directory is created in the user's home directory.
	FlowHome = ".taskflow"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// DatabaseFileName is the default sqlite database file inside FlowHome.
	DatabaseFileName = "taskflow.db"
)

// WIP ceiling bounds.
const (
	// MinWIPLimit is the smallest ceiling that may be configured for a status.
	MinWIPLimit = 1

	// MaxWIPLimit is the largest ceiling that may be configured for a status.
	MaxWIPLimit = 200
)

// Dependency graph bounds.
const (
	// DefaultCycleSearchLimit caps the number of node expansions performed by
	// the cycle check before the edge is rejected.
	DefaultCycleSearchLimit = 1000
)

// Database defaults.
const (
	// DriverSQLite selects the embedded sqlite dialect.
	DriverSQLite = "sqlite"

	// DriverPostgres selects the postgres dialect (pgx stdlib driver).
	DriverPostgres = "postgres"

	// DefaultBusyTimeout is how long sqlite waits on a locked database.
	DefaultBusyTimeout = 5 * time.Second

	// DefaultMaxOpenConns bounds the database/sql connection pool.
	DefaultMaxOpenConns = 8
)

// Cache defaults.
const (
	// DefaultCacheTTL is how long a cached workflow configuration stays valid.
	DefaultCacheTTL = 5 * time.Minute

	// CacheKeyPrefix namespaces every redis key written by taskflow.
	CacheKeyPrefix = "taskflow"
)

// Board ordering.
const (
	// RankStep is the gap left between consecutive ranks of a column so a
	// task can be slotted between two neighbors without renumbering.
	RankStep = 1024.0
)

// Listing defaults.
const (
	// DefaultListLimit is the page size used when a caller passes no limit.
	DefaultListLimit = 100

	// MaxListLimit is the largest page size a caller may request.
	MaxListLimit = 1000
)

// Log rotation defaults.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28
	LogCompress   = true
)

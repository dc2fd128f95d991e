// Package config provides configuration management for taskflow with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (TASKFLOW_* prefix)
//  3. Project config (.taskflow/config.yaml)
//  4. Global config ($TASKFLOW_HOME/config.yaml, default ~/.taskflow/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for taskflow.
// It contains all configuration sections for the application.
type Config struct {
	// Database selects and tunes the relational store.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Cache configures the optional redis read cache for workflow configuration.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Workflow holds engine-wide bounds.
	Workflow WorkflowConfig `yaml:"workflow" mapstructure:"workflow"`

	// Identity is who the CLI acts as.
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Access lists workspace memberships. An empty list admits every actor.
	Access AccessConfig `yaml:"access" mapstructure:"access"`

	// Log configures the rotating log file.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Notifications contains settings for user notifications.
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}

// DatabaseConfig contains settings for the task store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	// Default: "sqlite"
	Driver string `yaml:"driver" mapstructure:"driver"`

	// DSN is the data source name. For sqlite an empty DSN means
	// $TASKFLOW_HOME/taskflow.db; postgres requires one.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// MaxOpenConns bounds the connection pool.
	// Default: 8
	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns"`

	// BusyTimeout is how long sqlite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// CacheConfig contains settings for the workflow configuration cache.
type CacheConfig struct {
	// Enabled turns the redis cache on.
	// Default: false
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// RedisAddr is host:port of the redis server.
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`

	// RedisDB selects the redis logical database.
	RedisDB int `yaml:"redis_db" mapstructure:"redis_db"`

	// RedisPassword authenticates against redis. Prefer TASKFLOW_CACHE_REDIS_PASSWORD.
	RedisPassword string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`

	// TTL is how long a cached configuration stays valid.
	// Default: 5m
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// WorkflowConfig contains engine-wide bounds.
type WorkflowConfig struct {
	// MaxWIPLimit is the largest ceiling a project may configure.
	// Default: 200, Valid range: 1-200
	MaxWIPLimit int `yaml:"max_wip_limit" mapstructure:"max_wip_limit"`

	// CycleSearchLimit caps the node expansions of one cycle check.
	// Default: 1000
	CycleSearchLimit int `yaml:"cycle_search_limit" mapstructure:"cycle_search_limit"`
}

// IdentityConfig is the tenant and actor the CLI runs as.
type IdentityConfig struct {
	// Organization is the tenant every operation is scoped to.
	Organization string `yaml:"organization" mapstructure:"organization"`

	// Workspace is the default workspace.
	Workspace string `yaml:"workspace" mapstructure:"workspace"`

	// Actor is the user id recorded on activity.
	Actor string `yaml:"actor" mapstructure:"actor"`

	// Role is one of owner, admin, member, viewer.
	// Default: "member"
	Role string `yaml:"role" mapstructure:"role"`
}

// AccessConfig lists workspace memberships.
type AccessConfig struct {
	Memberships []MembershipConfig `yaml:"memberships" mapstructure:"memberships"`
}

// MembershipConfig grants one actor access to one workspace.
type MembershipConfig struct {
	Organization string `yaml:"organization" mapstructure:"organization"`
	Workspace    string `yaml:"workspace" mapstructure:"workspace"`
	Actor        string `yaml:"actor" mapstructure:"actor"`
}

// LogConfig contains settings for the rotating log file.
type LogConfig struct {
	// File overrides the log file path. Empty means $TASKFLOW_HOME/logs/taskflow.log.
	File string `yaml:"file" mapstructure:"file"`

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// NotificationsConfig contains settings for user notifications.
// Notifications alert users when a task enters a status worth a look.
type NotificationsConfig struct {
	// Bell enables the terminal bell.
	// Default: true
	Bell bool `yaml:"bell" mapstructure:"bell"`

	// Events is the list of events that ring the bell.
	// Supported: "blocked", "review_requested", "completed"
	// Default: ["blocked"]
	Events []string `yaml:"events" mapstructure:"events"`
}

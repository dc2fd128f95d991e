package config

import (
	"github.com/mrz1836/taskflow/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			// Driver: the embedded store needs no server.
			Driver: constants.DriverSQLite,

			// DSN: empty resolves to the database file under the taskflow home.
			DSN: "",

			MaxOpenConns: constants.DefaultMaxOpenConns,
			BusyTimeout:  constants.DefaultBusyTimeout,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       constants.DefaultCacheTTL,
		},
		Workflow: WorkflowConfig{
			MaxWIPLimit:      constants.MaxWIPLimit,
			CycleSearchLimit: constants.DefaultCycleSearchLimit,
		},
		Identity: IdentityConfig{
			Organization: "local",
			Workspace:    "default",
			Actor:        "",
			Role:         "member",
		},
		Log: LogConfig{
			MaxSizeMB:  constants.LogMaxSizeMB,
			MaxBackups: constants.LogMaxBackups,
			MaxAgeDays: constants.LogMaxAgeDays,
		},
		Notifications: NotificationsConfig{
			Bell:   true,
			Events: []string{"blocked"},
		},
	}
}

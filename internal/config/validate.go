package config

import (
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - database.driver must be sqlite or postgres; postgres needs a DSN
//   - database.max_open_conns must be positive, busy_timeout not negative
//   - an enabled cache needs a redis address and a positive TTL
//   - workflow.max_wip_limit must be within 1 and 200
//   - workflow.cycle_search_limit must be positive
//   - identity.role must be a known role
//   - every access membership needs organization, workspace and actor
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateDatabaseConfig(&cfg.Database); err != nil {
		return err
	}

	if err := validateCacheConfig(&cfg.Cache); err != nil {
		return err
	}

	if err := validateWorkflowConfig(&cfg.Workflow); err != nil {
		return err
	}

	if err := validateIdentityConfig(&cfg.Identity); err != nil {
		return err
	}

	return validateAccessConfig(&cfg.Access)
}

// validateDatabaseConfig checks store configuration values.
func validateDatabaseConfig(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case constants.DriverSQLite:
	case constants.DriverPostgres:
		if cfg.DSN == "" {
			return errors.Wrap(errors.ErrConfigInvalidDatabase,
				"database.dsn is required for postgres")
		}
	default:
		return errors.Wrapf(errors.ErrConfigInvalidDatabase,
			"database.driver must be %q or %q, got %q", constants.DriverSQLite, constants.DriverPostgres, cfg.Driver)
	}

	if cfg.MaxOpenConns < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidDatabase,
			"database.max_open_conns must be positive, got %d", cfg.MaxOpenConns)
	}

	if cfg.BusyTimeout < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidDatabase,
			"database.busy_timeout cannot be negative, got %s", cfg.BusyTimeout)
	}

	return nil
}

// validateCacheConfig checks cache configuration values.
func validateCacheConfig(cfg *CacheConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RedisAddr == "" {
		return errors.Wrap(errors.ErrConfigInvalidCache,
			"cache.redis_addr must not be empty when the cache is enabled")
	}

	if cfg.TTL <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidCache,
			"cache.ttl must be positive, got %s", cfg.TTL)
	}

	if cfg.RedisDB < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidCache,
			"cache.redis_db cannot be negative, got %d", cfg.RedisDB)
	}

	return nil
}

// validateWorkflowConfig checks engine bounds.
func validateWorkflowConfig(cfg *WorkflowConfig) error {
	if cfg.MaxWIPLimit < constants.MinWIPLimit || cfg.MaxWIPLimit > constants.MaxWIPLimit {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.max_wip_limit must be between %d and %d, got %d",
			constants.MinWIPLimit, constants.MaxWIPLimit, cfg.MaxWIPLimit)
	}

	if cfg.CycleSearchLimit < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.cycle_search_limit must be positive, got %d", cfg.CycleSearchLimit)
	}

	return nil
}

// validateIdentityConfig checks the CLI identity.
func validateIdentityConfig(cfg *IdentityConfig) error {
	if !constants.Role(cfg.Role).IsValid() {
		return errors.Wrapf(errors.ErrConfigInvalidAccess,
			"identity.role must be one of owner, admin, member, viewer, got %q", cfg.Role)
	}
	return nil
}

// validateAccessConfig checks membership entries.
func validateAccessConfig(cfg *AccessConfig) error {
	for i, m := range cfg.Memberships {
		if m.Organization == "" || m.Workspace == "" || m.Actor == "" {
			return errors.Wrapf(errors.ErrConfigInvalidAccess,
				"access.memberships[%d] needs organization, workspace and actor", i)
		}
	}
	return nil
}

package config

import (
	"context"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

// newViperInstance creates a new Viper instance with standard taskflow configuration.
// This includes environment variable prefix (TASKFLOW_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// layer is one configuration file, merged over everything read before it.
type layer struct {
	name string
	path string
}

// readLayers merges each existing file into v in order. Missing files are skipped.
func readLayers(v *viper.Viper, layers ...layer) error {
	for _, l := range layers {
		if l.path == "" {
			continue
		}
		if _, err := os.Stat(l.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "failed to stat %s config: %s", l.name, l.path)
		}
		v.SetConfigFile(l.path)
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read %s config: %s", l.name, l.path)
		}
	}
	return nil
}

// decode unmarshals v and validates the result.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration with the following precedence (highest first):
//  1. Environment variables (TASKFLOW_* prefix)
//  2. Project config (.taskflow/config.yaml)
//  3. Global config ($TASKFLOW_HOME/config.yaml)
//  4. Built-in defaults
//
// Missing files are not an error. CLI flags go through LoadWithOverrides.
func Load(ctx context.Context) (*Config, error) {
	// An undeterminable home directory just means there is no global layer.
	globalPath, _ := GlobalConfigPath()

	v := newViperInstance()
	if err := readLayers(v, layer{"global", globalPath}, layer{"project", ProjectConfigPath()}); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("database.driver", cfg.Database.Driver).
		Bool("cache.enabled", cfg.Cache.Enabled).
		Str("identity.workspace", cfg.Identity.Workspace).
		Msg("configuration loaded")
	return cfg, nil
}

// LoadWithOverrides loads configuration and applies flag values on top.
// Zero values in overrides are ignored so callers can override a subset.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		return cfg, nil
	}

	applyOverrides(cfg, overrides)
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from explicit files. Either path may be
// empty or missing.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()
	if err := readLayers(v, layer{"global", globalConfigPath}, layer{"project", projectConfigPath}); err != nil {
		return nil, err
	}
	return decode(v)
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.busy_timeout", d.Database.BusyTimeout.String())

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.ttl", d.Cache.TTL.String())

	v.SetDefault("workflow.max_wip_limit", d.Workflow.MaxWIPLimit)
	v.SetDefault("workflow.cycle_search_limit", d.Workflow.CycleSearchLimit)

	v.SetDefault("identity.organization", d.Identity.Organization)
	v.SetDefault("identity.workspace", d.Identity.Workspace)
	v.SetDefault("identity.actor", d.Identity.Actor)
	v.SetDefault("identity.role", d.Identity.Role)

	v.SetDefault("access.memberships", []map[string]string{})

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("notifications.bell", d.Notifications.Bell)
	v.SetDefault("notifications.events", d.Notifications.Events)
}

// applyOverrides copies the non-zero fields of overrides into cfg. Booleans
// can only be switched on this way.
func applyOverrides(cfg, overrides *Config) {
	setString(&cfg.Database.Driver, overrides.Database.Driver)
	setString(&cfg.Database.DSN, overrides.Database.DSN)
	if overrides.Database.MaxOpenConns > 0 {
		cfg.Database.MaxOpenConns = overrides.Database.MaxOpenConns
	}
	if overrides.Database.BusyTimeout > 0 {
		cfg.Database.BusyTimeout = overrides.Database.BusyTimeout
	}

	cfg.Cache.Enabled = cfg.Cache.Enabled || overrides.Cache.Enabled
	setString(&cfg.Cache.RedisAddr, overrides.Cache.RedisAddr)

	setString(&cfg.Identity.Organization, overrides.Identity.Organization)
	setString(&cfg.Identity.Workspace, overrides.Identity.Workspace)
	setString(&cfg.Identity.Actor, overrides.Identity.Actor)
	setString(&cfg.Identity.Role, overrides.Identity.Role)

	if len(overrides.Notifications.Events) > 0 {
		cfg.Notifications.Events = overrides.Notifications.Events
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings
// and comma-separated lists from environment variables.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

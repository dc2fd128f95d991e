package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

// GlobalConfigDir returns the path to the global taskflow directory.
// TASKFLOW_HOME wins when set; otherwise this is ~/.taskflow.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	if dir := os.Getenv(constants.HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.FlowHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration directory.
// This is always .taskflow relative to the working directory.
func ProjectConfigDir() string {
	return constants.FlowHome
}

// GlobalConfigPath returns the full path to the global configuration file.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
// This is always .taskflow/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.GlobalConfigName)
}

// DatabaseDSN returns the configured DSN, or the default sqlite database
// file under the global directory when none is set.
func DatabaseDSN(cfg *DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver != constants.DriverSQLite {
		return "", errors.Wrapf(errors.ErrConfigInvalidDatabase, "database.dsn is required for driver %q", cfg.Driver)
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.DatabaseFileName), nil
}

// LogFilePath returns the configured log file or the default under the global directory.
func LogFilePath(cfg *LogConfig) (string, error) {
	if cfg.File != "" {
		return cfg.File, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LogsDir, constants.CLILogFileName), nil
}

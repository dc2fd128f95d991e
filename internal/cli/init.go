package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/flock"
	"github.com/mrz1836/taskflow/internal/tui"
)

// InitFlags holds flags specific to the init command.
type InitFlags struct {
	// Global writes $TASKFLOW_HOME/config.yaml instead of .taskflow/config.yaml.
	Global bool
	// Force overwrites an existing configuration file.
	Force bool
}

// initResult is what init reports in JSON mode.
type initResult struct {
	ConfigPath    string `json:"config_path"`
	BackupPath    string `json:"backup_path,omitempty"`
	Driver        string `json:"driver"`
	SchemaVersion int    `json:"schema_version"`
}

func newInitCmd(flags *InitFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file and prepare the database",
		Long: `Write the effective configuration to .taskflow/config.yaml (or the global
config with --global) and apply database migrations.

An existing configuration file is only replaced with --force; the previous
file is kept next to it as config.yaml.backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				return runInit(ctx, ec, e, out, flags)
			})
		},
	}

	cmd.Flags().BoolVar(&flags.Global, "global", false, "write the global configuration file")
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "overwrite an existing configuration file")

	return cmd
}

// AddInitCommand adds the init command to the root command.
func AddInitCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newInitCmd(&InitFlags{}))
}

func runInit(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output, flags *InitFlags) error {
	path, err := initConfigPath(flags.Global)
	if err != nil {
		return err
	}

	backup, err := saveConfig(ec, path, flags.Force)
	if err != nil {
		return err
	}

	version, err := e.Store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if ec.Output == OutputJSON {
		return out.JSON(initResult{
			ConfigPath:    path,
			BackupPath:    backup,
			Driver:        ec.Config.Database.Driver,
			SchemaVersion: version,
		})
	}

	out.Success(fmt.Sprintf("Configuration written to %s", path))
	if backup != "" {
		out.Info(fmt.Sprintf("Previous configuration saved as %s", backup))
	}
	out.Info(fmt.Sprintf("Database schema at version %d (%s)", version, ec.Config.Database.Driver))
	return nil
}

func initConfigPath(global bool) (string, error) {
	if global {
		return config.GlobalConfigPath()
	}
	return config.ProjectConfigPath(), nil
}

// saveConfig writes the effective configuration to path and returns the
// backup location when an existing file was replaced.
func saveConfig(ec *ExecutionContext, path string, force bool) (string, error) {
	release, err := flock.Acquire(path + ".lock")
	if err != nil {
		return "", err
	}
	defer func() { _ = release() }()

	var backup string
	if _, statErr := os.Stat(path); statErr == nil {
		if !force {
			return "", fmt.Errorf("%w: %s", errors.ErrConfigExists, path)
		}
		backup = path + ".backup"
		if err := copyFile(path, backup); err != nil {
			// Backup is best effort.
			ec.Logger.Warn().Err(err).Str("backup_path", backup).Msg("failed to create config backup")
			backup = ""
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(ec.Config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	header := fmt.Sprintf("# taskflow configuration\n# Generated by taskflow init on %s\n\n",
		time.Now().UTC().Format(time.RFC3339))

	if err := os.WriteFile(path, []byte(header+string(data)), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	ec.Logger.Debug().Str("path", path).Msg("configuration saved")
	return backup, nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // Source is config file
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

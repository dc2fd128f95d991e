// Package cli provides the command-line interface for taskflow.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/tui"
)

// BuildInfo carries the ldflags values from main.
type BuildInfo struct {
	Version, Commit, Date string
}

// newRootCmd builds a fresh command tree. Each call gets its own flags and
// viper instance, so tests can run commands side by side.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "taskflow",
		Short: "Kanban task workflow engine with WIP limits",
		Long: `taskflow tracks tasks across kanban boards scoped to organizations and workspaces.

Features:
  • Status changes guarded by per-project WIP limits
  • Task dependencies with cycle detection
  • Comments and a full activity audit trail
  • SQLite or PostgreSQL storage with an optional Redis cache`,
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return prepare(cmd, v, flags)
		},
	}

	AddGlobalFlags(cmd, flags)

	AddInitCommand(cmd)
	AddTaskCommand(cmd)
	AddDependencyCommand(cmd)
	AddWorkflowCommand(cmd)
	AddCommentCommand(cmd)
	AddActivityCommand(cmd)
	AddBoardCommand(cmd)
	AddConfigCommand(cmd)

	return cmd
}

// prepare resolves flags, env and config files into an ExecutionContext and
// attaches it, with its tenant scope, to the command context.
func prepare(cmd *cobra.Command, v *viper.Viper, flags *GlobalFlags) error {
	if err := BindGlobalFlags(v, cmd); err != nil {
		return errors.Wrap(err, "failed to bind flags")
	}
	applyBoundFlags(v, cmd, flags)

	if !IsValidOutputFormat(flags.Output) {
		return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
	}
	tui.CheckNoColor()

	ctx := cmd.Context()
	ec, err := ResolveExecutionContext(ctx, flags)
	if err != nil {
		return err
	}
	ec.Logger = InitLogger(flags.Verbose, flags.Quiet, &ec.Config.Log)
	cmd.SetContext(WithExecutionContext(ec.Context(ctx), ec))
	return nil
}

func formatVersion(info BuildInfo) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		valueOr(info.Version, "dev"), valueOr(info.Commit, "none"), valueOr(info.Date, "unknown"))
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Execute runs the root command with the provided context and build info.
// A failing command is reported on stderr in the selected output format.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info) //nolint:contextcheck // cobra passes ctx through ExecuteContext
	defer CloseLogFile()

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		tui.NewOutput(os.Stderr, flags.Output).Error(err)
	}
	return err
}

// engineFunc is the body of a command that talks to the engine.
type engineFunc func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error

// runWithEngine opens the engine for the duration of fn.
func runWithEngine(cmd *cobra.Command, fn engineFunc) (err error) {
	ctx := cmd.Context()
	ec := GetExecutionContext(ctx)
	if ec == nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), errors.ErrConfigNil)
	}

	e, err := OpenEngine(ctx, ec)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, ec, e, tui.NewOutput(cmd.OutOrStdout(), ec.Output))
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/tui"
	"github.com/mrz1836/taskflow/internal/workflow"
)

// AddWorkflowCommand adds the workflow command group to the root command.
func AddWorkflowCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wip"},
		Short:   "Show and change a project's WIP limits",
	}

	cmd.AddCommand(newWorkflowGetCmd(), newWorkflowSetCmd(), newWorkflowResetCmd())
	rootCmd.AddCommand(cmd)
}

func newWorkflowGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <project-id>",
		Short: "Show the configured and effective WIP limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				view, err := e.Workflow.Get(ctx, ec.Actor, ec.WorkspaceID, args[0])
				if err != nil {
					return err
				}
				return renderWorkflow(out, ec.Output, view)
			})
		},
	}
}

func newWorkflowSetCmd() *cobra.Command {
	var (
		defaultLimit int
		limits       []string
		file         string
	)

	cmd := &cobra.Command{
		Use:   "set <project-id>",
		Short: "Replace a project's WIP limits",
		Long: `Replace the whole WIP configuration of a project. Statuses not named keep
no per-status ceiling and fall back to the default.

Limits come from flags or from a YAML file:

  default_wip_limit: 5
  status_wip_limits:
    in_progress: 3
    in_review: 2`,
		Example: `  taskflow workflow set web --default 5 --limit in_progress=3 --limit in_review=2
  taskflow workflow set web --file limits.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := buildWorkflowUpdate(cmd, defaultLimit, limits, file)
			if err != nil {
				return err
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				view, err := e.Workflow.Update(ctx, ec.Actor, ec.WorkspaceID, args[0], update)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(view)
				}
				out.Success(fmt.Sprintf("Updated WIP limits for %s", view.ProjectID))
				return renderWorkflow(out, ec.Output, view)
			})
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&defaultLimit, "default", 0, "ceiling for every limitable status without its own")
	fs.StringArrayVarP(&limits, "limit", "l", nil, "per-status ceiling as status=N (repeatable)")
	fs.StringVarP(&file, "file", "f", "", "read limits from a YAML file")
	cmd.MarkFlagsMutuallyExclusive("file", "default")
	cmd.MarkFlagsMutuallyExclusive("file", "limit")
	return cmd
}

// buildWorkflowUpdate collects limits from flags or a YAML file.
func buildWorkflowUpdate(cmd *cobra.Command, defaultLimit int, limits []string, file string) (workflow.Update, error) {
	var update workflow.Update

	if file != "" {
		data, err := os.ReadFile(file) //nolint:gosec // user-supplied limits file
		if err != nil {
			return update, fmt.Errorf("failed to read limits file: %w", err)
		}
		if err := yaml.Unmarshal(data, &update); err != nil {
			return update, errors.NewExitCode2Error(fmt.Errorf("%w: %s: %w", errors.ErrInvalidWorkflowConfig, file, err))
		}
		return update, nil
	}

	if cmd.Flags().Changed("default") {
		update.DefaultLimit = &defaultLimit
	}
	if len(limits) > 0 {
		update.StatusLimits = make(map[string]*int, len(limits))
		for _, raw := range limits {
			status, n, err := parseLimitPair(raw)
			if err != nil {
				return update, err
			}
			update.StatusLimits[status] = n
		}
	}
	return update, nil
}

func newWorkflowResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <project-id>",
		Short: "Remove every WIP limit from a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				if err := e.Workflow.Reset(ctx, ec.Actor, ec.WorkspaceID, args[0]); err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(map[string]any{"project_id": args[0], "reset": true})
				}
				out.Success(fmt.Sprintf("Removed WIP limits from %s", args[0]))
				return nil
			})
		},
	}
}

func renderWorkflow(out tui.Output, format string, view *workflow.View) error {
	if format == OutputJSON {
		return out.JSON(view)
	}

	rows := make([][]string, 0, len(constants.LimitableStatuses()))
	for _, status := range constants.LimitableStatuses() {
		configured := "-"
		if n, ok := view.StatusLimits[status]; ok {
			configured = strconv.Itoa(n)
		}
		rows = append(rows, []string{tui.StatusLabel(status), configured, limitText(view.Effective[status])})
	}
	out.Table([]string{"STATUS", "CONFIGURED", "EFFECTIVE"}, rows)

	def := limitText(view.DefaultLimit)
	if !view.Configured {
		out.Info(fmt.Sprintf("Project %s has no WIP configuration", view.ProjectID))
		return nil
	}
	out.Info(fmt.Sprintf("Default limit: %s, last changed by %s at %s", def, view.UpdatedBy, tui.Timestamp(view.UpdatedAt)))
	return nil
}

func limitText(n *int) string {
	if n == nil {
		return "unlimited"
	}
	return strconv.Itoa(*n)
}

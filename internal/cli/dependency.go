package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/tui"
)

// AddDependencyCommand adds the dep command group to the root command.
func AddDependencyCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "dep",
		Aliases: []string{"deps", "dependency"},
		Short:   "Link tasks that must happen in order",
	}

	cmd.AddCommand(newDepAddCmd(), newDepRemoveCmd(), newDepListCmd())
	rootCmd.AddCommand(cmd)
}

func newDepAddCmd() *cobra.Command {
	var depType string

	cmd := &cobra.Command{
		Use:   "add <predecessor-id> <successor-id>",
		Short: "Make one task depend on another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				dep, err := e.Graph.Add(ctx, ec.Actor, ec.WorkspaceID, args[0], args[1], parseDependencyType(depType))
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(dep)
				}
				out.Success(fmt.Sprintf("%s now depends on %s (%s)", dep.SuccessorID, dep.PredecessorID, dep.Type))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&depType, "type", string(constants.DependencyFinishToStart),
		"dependency type (finish_to_start|start_to_start|finish_to_finish|start_to_finish)")
	return cmd
}

func newDepRemoveCmd() *cobra.Command {
	var depType string

	cmd := &cobra.Command{
		Use:     "remove <predecessor-id> <successor-id>",
		Aliases: []string{"rm"},
		Short:   "Remove the dependency between two tasks",
		Long:    "Remove the link between two tasks. Without --type every link between them is removed.",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var typ *constants.DependencyType
			if cmd.Flags().Changed("type") {
				t := parseDependencyType(depType)
				typ = &t
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				removed, err := e.Graph.Remove(ctx, ec.Actor, ec.WorkspaceID, args[0], args[1], typ)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(removed)
				}
				out.Success(fmt.Sprintf("Removed %d dependency link(s)", len(removed)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&depType, "type", "", "only remove links of this type")
	return cmd
}

func newDepListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <task-id>",
		Aliases: []string{"ls"},
		Short:   "Show what a task waits on and what waits on it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				list, err := e.Graph.List(ctx, ec.Actor, ec.WorkspaceID, args[0])
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(list)
				}
				if len(list.Predecessors) == 0 && len(list.Successors) == 0 {
					out.Info(fmt.Sprintf("Task %s has no dependencies", list.TaskID))
					return nil
				}
				out.Table([]string{"DIRECTION", "TASK", "TYPE", "CREATED BY"}, dependencyRows(list))
				return nil
			})
		},
	}
}

func dependencyRows(list *domain.DependencyList) [][]string {
	rows := make([][]string, 0, len(list.Predecessors)+len(list.Successors))
	for _, d := range list.Predecessors {
		rows = append(rows, []string{"waits on", d.PredecessorID, string(d.Type), d.CreatedBy})
	}
	for _, d := range list.Successors {
		rows = append(rows, []string{"blocks", d.SuccessorID, string(d.Type), d.CreatedBy})
	}
	return rows
}

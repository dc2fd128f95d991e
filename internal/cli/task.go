package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/task"
	"github.com/mrz1836/taskflow/internal/tui"
)

// taskFieldFlags holds the editable task fields shared by create and update.
type taskFieldFlags struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Type        string
	Assignee    string
	Reporter    string
	Start       string
	Due         string
	Tags        []string
	Rank        float64
	Override    bool
	Reason      string
}

func (f *taskFieldFlags) register(cmd *cobra.Command, withTitle bool) {
	fs := cmd.Flags()
	if withTitle {
		fs.StringVar(&f.Title, "title", "", "task title")
	}
	fs.StringVarP(&f.Description, "description", "d", "", "task description")
	fs.StringVarP(&f.Status, "status", "s", "", "board column ("+statusNames()+")")
	fs.StringVar(&f.Priority, "priority", "", "priority (low|medium|high|urgent)")
	fs.StringVar(&f.Type, "type", "", "task type (task|bug|feature|story|epic)")
	fs.StringVarP(&f.Assignee, "assignee", "a", "", "assignee actor id")
	fs.StringVar(&f.Reporter, "reporter", "", "reporter actor id")
	fs.StringVar(&f.Start, "start", "", "start date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&f.Due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	fs.StringSliceVarP(&f.Tags, "tag", "t", nil, "tag (repeatable)")
	fs.Float64Var(&f.Rank, "rank", 0, "position within the column; lower sorts first")
	addOverrideFlags(cmd, &f.Override, &f.Reason)
}

func addOverrideFlags(cmd *cobra.Command, override *bool, reason *string) {
	cmd.Flags().BoolVar(override, "override", false, "bypass a reached WIP limit (admins only)")
	cmd.Flags().StringVar(reason, "reason", "", "reason recorded with a WIP override")
}

// AddTaskCommand adds the task command group to the root command.
func AddTaskCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Create, move and delete tasks",
	}

	cmd.AddCommand(
		newTaskCreateCmd(),
		newTaskGetCmd(),
		newTaskListCmd(),
		newTaskUpdateCmd(),
		newTaskMoveCmd(),
		newTaskBulkMoveCmd(),
		newTaskDeleteCmd(),
		newTaskDestroyCmd(),
	)
	rootCmd.AddCommand(cmd)
}

func newTaskCreateCmd() *cobra.Command {
	var (
		project string
		fields  taskFieldFlags
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Example: `  taskflow task create --project web "Fix login redirect"
  taskflow task create -p web -s todo --priority high --due 2026-11-01 "Ship release notes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := fields.createRequest(cmd, project, args[0])
			if err != nil {
				return err
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				t, err := e.Tasks.Create(ctx, ec.Actor, ec.WorkspaceID, req)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(t)
				}
				out.Success(fmt.Sprintf("Created task %s in %s (%s)", t.ID, t.ProjectID, t.Status))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project the task belongs to")
	_ = cmd.MarkFlagRequired("project")
	fields.register(cmd, false)
	return cmd
}

func (f *taskFieldFlags) createRequest(cmd *cobra.Command, project, title string) (task.CreateRequest, error) {
	req := task.CreateRequest{
		ProjectID: project,
		Title:     title,
		Priority:  constants.Priority(strings.ToLower(f.Priority)),
		Type:      constants.TaskType(strings.ToLower(f.Type)),
		Tags:      f.Tags,
		Override:  f.Override,
		Reason:    f.Reason,
	}

	changed := cmd.Flags().Changed
	if changed("description") {
		req.Description = &f.Description
	}
	if changed("assignee") {
		req.AssigneeID = &f.Assignee
	}
	if changed("reporter") {
		req.ReporterID = &f.Reporter
	}
	if changed("rank") {
		req.Rank = &f.Rank
	}
	if f.Status != "" {
		status, err := parseStatus(f.Status)
		if err != nil {
			return req, err
		}
		req.Status = status
	}

	var err error
	if req.StartDate, err = parseOptionalDate(f.Start); err != nil {
		return req, err
	}
	if req.DueDate, err = parseOptionalDate(f.Due); err != nil {
		return req, err
	}
	return req, nil
}

func newTaskGetCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				t, err := e.Tasks.Get(ctx, ec.Actor, ec.WorkspaceID, args[0], includeDeleted)
				if err != nil {
					return err
				}
				return renderTask(out, ec.Output, t)
			})
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "deleted", false, "also find soft-deleted tasks")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		filter domain.TaskFilter
		status string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in the workspace",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				s, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				tasks, err := e.Tasks.List(ctx, ec.Actor, ec.WorkspaceID, filter)
				if err != nil {
					return err
				}
				return renderTasks(out, ec.Output, tasks)
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&filter.ProjectID, "project", "p", "", "only tasks in this project")
	fs.StringVarP(&status, "status", "s", "", "only tasks in this column")
	fs.StringVarP(&filter.AssigneeID, "assignee", "a", "", "only tasks assigned to this actor")
	fs.BoolVar(&filter.IncludeDeleted, "deleted", false, "include soft-deleted tasks")
	fs.IntVar(&filter.Limit, "limit", 0, "maximum number of tasks")
	fs.IntVar(&filter.Offset, "offset", 0, "number of tasks to skip")
	return cmd
}

func newTaskUpdateCmd() *cobra.Command {
	var fields taskFieldFlags

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields",
		Long: `Change the fields given as flags; everything else is left alone.
An empty value clears an optional field, e.g. --assignee "" or --due "".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := fields.updateRequest(cmd)
			if err != nil {
				return err
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				t, err := e.Tasks.Update(ctx, ec.Actor, ec.WorkspaceID, args[0], req)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(t)
				}
				out.Success(fmt.Sprintf("Updated task %s", t.ID))
				return nil
			})
		},
	}

	fields.register(cmd, true)
	return cmd
}

func (f *taskFieldFlags) updateRequest(cmd *cobra.Command) (task.UpdateRequest, error) {
	req := task.UpdateRequest{Override: f.Override, Reason: f.Reason}
	changed := cmd.Flags().Changed

	if changed("title") {
		req.Title = &f.Title
	}
	if changed("description") {
		req.Description = &f.Description
	}
	if changed("assignee") {
		req.AssigneeID = &f.Assignee
	}
	if changed("reporter") {
		req.ReporterID = &f.Reporter
	}
	if changed("priority") {
		p := constants.Priority(strings.ToLower(f.Priority))
		req.Priority = &p
	}
	if changed("type") {
		tt := constants.TaskType(strings.ToLower(f.Type))
		req.Type = &tt
	}
	if changed("tag") {
		tags := f.Tags
		req.Tags = &tags
	}
	if changed("rank") {
		req.Rank = &f.Rank
	}
	if changed("status") {
		status, err := parseStatus(f.Status)
		if err != nil {
			return req, err
		}
		req.Status = &status
	}
	if changed("start") {
		start, err := parseDate(f.Start)
		if err != nil {
			return req, err
		}
		req.StartDate = &start
	}
	if changed("due") {
		due, err := parseDate(f.Due)
		if err != nil {
			return req, err
		}
		req.DueDate = &due
	}
	return req, nil
}

func newTaskMoveCmd() *cobra.Command {
	var (
		rank     float64
		override bool
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another column",
		Example: `  taskflow task move <task-id> in_progress
  taskflow task move <task-id> in_review --override --reason "release blocker"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			req := task.MoveRequest{Status: status, Override: override, Reason: reason}
			if cmd.Flags().Changed("rank") {
				req.Rank = &rank
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				t, err := e.Tasks.Move(ctx, ec.Actor, ec.WorkspaceID, args[0], req)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(t)
				}
				out.Success(fmt.Sprintf("Moved task %s to %s", t.ID, tui.StatusLabel(t.Status)))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&rank, "rank", 0, "position within the target column")
	addOverrideFlags(cmd, &override, &reason)
	return cmd
}

func newTaskBulkMoveCmd() *cobra.Command {
	var req task.BulkStatusRequest

	cmd := &cobra.Command{
		Use:   "bulk-move <status> <task-id>...",
		Short: "Move several tasks to one column",
		Long: `Move every listed task to the same column. The batch is admitted as a whole:
if any project would go over its WIP limit, nothing moves.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[0])
			if err != nil {
				return err
			}
			req.Status = status
			req.TaskIDs = args[1:]
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				tasks, err := e.Tasks.BulkUpdateStatus(ctx, ec.Actor, ec.WorkspaceID, req)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return renderTasks(out, ec.Output, tasks)
				}
				out.Success(fmt.Sprintf("Moved %d task(s) to %s", len(tasks), tui.StatusLabel(status)))
				return nil
			})
		},
	}

	addOverrideFlags(cmd, &req.Override, &req.Reason)
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Soft-delete a task",
		Long:    "Hide a task from the board. Comments and history are kept.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				if err := e.Tasks.Delete(ctx, ec.Actor, ec.WorkspaceID, args[0]); err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(map[string]any{"task_id": args[0], "deleted": true})
				}
				out.Success(fmt.Sprintf("Deleted task %s", args[0]))
				return nil
			})
		},
	}
}

func newTaskDestroyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "destroy <task-id>",
		Short: "Permanently remove a task and everything attached to it",
		Long: `Remove a task together with its dependencies, comments and activity.
This cannot be undone. Asks for confirmation unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirmDestroy(args[0], force); err != nil {
				return err
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				result, err := e.Tasks.Destroy(ctx, ec.Actor, ec.WorkspaceID, args[0])
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(result)
				}
				out.Success(fmt.Sprintf("Destroyed task %s (%d dependencies, %d comments, %d activity records)",
					result.TaskID, result.Dependencies, result.Comments, result.Activities))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

// confirmDestroy asks before a hard delete. Without a terminal --force is required.
func confirmDestroy(taskID string, force bool) error {
	if force {
		return nil
	}
	if !tui.IsInteractive() {
		return errors.ErrNonInteractiveMode
	}
	ok, err := tui.Confirm(fmt.Sprintf("Permanently destroy task %s?", taskID), false)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrOperationCanceled
	}
	return nil
}

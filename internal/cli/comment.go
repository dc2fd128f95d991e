package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/tui"
)

// AddCommentCommand adds the comment command group to the root command.
func AddCommentCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "comment",
		Aliases: []string{"comments"},
		Short:   "Discuss a task",
	}

	cmd.AddCommand(newCommentAddCmd(), newCommentListCmd())
	rootCmd.AddCommand(cmd)
}

func newCommentAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <task-id> <text>...",
		Short: "Add a comment to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args[1:], " ")
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				c, err := e.Tasks.AddComment(ctx, ec.Actor, ec.WorkspaceID, args[0], body)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(c)
				}
				out.Success(fmt.Sprintf("Comment %s added to task %s", c.ID, c.TaskID))
				return nil
			})
		},
	}
}

func newCommentListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:     "list <task-id>",
		Aliases: []string{"ls"},
		Short:   "List the comments on a task, oldest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				comments, err := e.Tasks.ListComments(ctx, ec.Actor, ec.WorkspaceID, args[0], limit, offset)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					if comments == nil {
						comments = []domain.Comment{}
					}
					return out.JSON(comments)
				}
				if len(comments) == 0 {
					out.Info("No comments")
					return nil
				}
				now := clock.RealClock{}
				rows := make([][]string, 0, len(comments))
				for _, c := range comments {
					rows = append(rows, []string{tui.Ago(c.CreatedAt, now), c.AuthorID, c.Body})
				}
				out.Table([]string{"WHEN", "AUTHOR", "COMMENT"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of comments")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of comments to skip")
	return cmd
}

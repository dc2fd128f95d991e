package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/tui"
)

// defaultBoardWidth is used when stdout is not a terminal.
const defaultBoardWidth = 120

// boardJSON is the JSON form of a board.
type boardJSON struct {
	ProjectID string            `json:"project_id"`
	Columns   []boardColumnJSON `json:"columns"`
}

type boardColumnJSON struct {
	Status string         `json:"status"`
	Limit  *int           `json:"wip_limit"`
	Count  int            `json:"count"`
	Tasks  []*domain.Task `json:"tasks"`
}

// AddBoardCommand adds the board command to the root command.
func AddBoardCommand(rootCmd *cobra.Command) {
	var width int

	cmd := &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show a project's board with WIP usage per column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				board, err := loadBoard(ctx, ec, e, args[0])
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					return out.JSON(boardToJSON(board))
				}
				if width <= 0 {
					width = terminalWidth()
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), board.Render(width))
				return err
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "render width (defaults to the terminal width)")
	rootCmd.AddCommand(cmd)
}

// loadBoard reads ceilings, column counts and cards in one snapshot.
func loadBoard(ctx context.Context, ec *ExecutionContext, e *Engine, projectID string) (*tui.Board, error) {
	snap, err := e.Tasks.Board(ctx, ec.Actor, ec.WorkspaceID, projectID)
	if err != nil {
		return nil, err
	}
	return tui.NewBoard(projectID, snap.Tasks, snap.Limits, snap.Counts), nil
}

func boardToJSON(b *tui.Board) boardJSON {
	out := boardJSON{ProjectID: b.ProjectID, Columns: make([]boardColumnJSON, 0, len(b.Columns))}
	for _, c := range b.Columns {
		tasks := c.Tasks
		if tasks == nil {
			tasks = []*domain.Task{}
		}
		out.Columns = append(out.Columns, boardColumnJSON{
			Status: string(c.Status),
			Limit:  c.Limit,
			Count:  c.Count(),
			Tasks:  tasks,
		})
	}
	return out
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultBoardWidth
}

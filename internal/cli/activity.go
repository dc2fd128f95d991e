package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/tui"
)

// AddActivityCommand adds the activity command group to the root command.
func AddActivityCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"log", "history"},
		Short:   "Read the audit trail",
	}

	cmd.AddCommand(newActivityListCmd())
	rootCmd.AddCommand(cmd)
}

func newActivityListCmd() *cobra.Command {
	var (
		filter  domain.ActivityFilter
		actType string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List activity, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if actType != "" {
				filter.Type = constants.ActivityType(strings.ToLower(actType))
				if !filter.Type.IsValid() {
					return errors.NewExitCode2Error(fmt.Errorf("%w: activity type %q", errors.ErrInvalidArgument, actType))
				}
			}
			return runWithEngine(cmd, func(ctx context.Context, ec *ExecutionContext, e *Engine, out tui.Output) error {
				entries, err := e.Activity.List(ctx, ec.Actor, ec.WorkspaceID, filter)
				if err != nil {
					return err
				}
				if ec.Output == OutputJSON {
					if entries == nil {
						entries = []domain.Activity{}
					}
					return out.JSON(entries)
				}
				if len(entries) == 0 {
					out.Info("No activity")
					return nil
				}
				out.Table([]string{"WHEN", "ACTOR", "TYPE", "TASK", "DETAILS"}, activityRows(entries, clock.RealClock{}))
				return nil
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&filter.TaskID, "task", "", "only activity of this task")
	fs.StringVarP(&filter.ProjectID, "project", "p", "", "only activity in this project")
	fs.StringVar(&actType, "type", "", "only activity of this type (e.g. status_changed)")
	fs.IntVar(&filter.Limit, "limit", 50, "maximum number of entries")
	fs.IntVar(&filter.Offset, "offset", 0, "number of entries to skip")
	return cmd
}

func activityRows(entries []domain.Activity, c clock.Clock) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, a := range entries {
		rows = append(rows, []string{
			tui.Ago(a.CreatedAt, c),
			a.ActorID,
			string(a.Type),
			deref(a.TaskID),
			payloadSummary(a.Payload),
		})
	}
	return rows
}

// payloadSummary renders a payload as sorted key=value pairs.
func payloadSummary(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

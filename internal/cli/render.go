package cli

import (
	"strconv"
	"strings"

	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/tui"
)

// taskHeaders are the columns of a task listing.
func taskHeaders() []string {
	return []string{"ID", "PROJECT", "STATUS", "PRIORITY", "TITLE", "ASSIGNEE"}
}

func taskRow(t *domain.Task) []string {
	return []string{
		t.ID,
		t.ProjectID,
		string(t.Status),
		string(t.Priority),
		t.Title,
		deref(t.AssigneeID),
	}
}

func taskRows(tasks []*domain.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, taskRow(t))
	}
	return rows
}

// renderTask prints one task as a field/value table, or as JSON.
func renderTask(out tui.Output, format string, t *domain.Task) error {
	if format == OutputJSON {
		return out.JSON(t)
	}

	rows := [][]string{
		{"ID", t.ID},
		{"Project", t.ProjectID},
		{"Title", t.Title},
		{"Status", tui.StatusLabel(t.Status)},
		{"Priority", string(t.Priority)},
		{"Type", string(t.Type)},
		{"Assignee", deref(t.AssigneeID)},
		{"Reporter", deref(t.ReporterID)},
		{"Start", tui.Timestamp(t.StartDate)},
		{"Due", tui.Timestamp(t.DueDate)},
		{"Completed", tui.Timestamp(t.CompletedAt)},
		{"Tags", strings.Join(t.Tags, ", ")},
		{"Rank", strconv.FormatFloat(t.Rank, 'f', -1, 64)},
		{"Created", tui.Timestamp(&t.CreatedAt)},
		{"Updated", tui.Timestamp(&t.UpdatedAt)},
	}
	if t.Description != nil {
		rows = append(rows, []string{"Description", *t.Description})
	}
	if t.IsDeleted() {
		rows = append(rows, []string{"Deleted", tui.Timestamp(t.DeletedAt)})
	}
	out.Table([]string{"FIELD", "VALUE"}, rows)
	return nil
}

// renderTasks prints a task listing.
func renderTasks(out tui.Output, format string, tasks []*domain.Task) error {
	if format == OutputJSON {
		if tasks == nil {
			tasks = []*domain.Task{}
		}
		return out.JSON(tasks)
	}
	if len(tasks) == 0 {
		out.Info("No tasks found")
		return nil
	}
	out.Table(taskHeaders(), taskRows(tasks))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

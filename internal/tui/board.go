package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
)

// Board layout constants.
const (
	// MinColumnWidth keeps narrow terminals readable.
	MinColumnWidth = 16

	// MaxColumnWidth stops wide terminals from stretching cards.
	MaxColumnWidth = 32
)

// BoardColumn is one status column with its WIP ceiling. Occupancy is the
// stored count of live tasks in the status and may exceed len(Tasks).
type BoardColumn struct {
	Status    constants.TaskStatus `json:"status"`
	Limit     *int                 `json:"wip_limit"`
	Occupancy int                  `json:"count"`
	Tasks     []*domain.Task       `json:"tasks"`
}

// Count returns the column occupancy.
func (c BoardColumn) Count() int {
	return c.Occupancy
}

// AtLimit reports whether the column has no free slot.
func (c BoardColumn) AtLimit() bool {
	return c.Limit != nil && c.Occupancy >= *c.Limit
}

// OverLimit reports whether an override pushed the column past its ceiling.
func (c BoardColumn) OverLimit() bool {
	return c.Limit != nil && c.Occupancy > *c.Limit
}

// Board is a project's tasks grouped by status in board order.
type Board struct {
	ProjectID string        `json:"project_id"`
	Columns   []BoardColumn `json:"columns"`
}

// NewBoard groups tasks into the seven columns, each ordered by rank.
// Tasks of other projects and soft-deleted tasks are skipped. Column
// occupancy comes from counts; a nil counts map falls back to the number
// of cards in each column.
func NewBoard(projectID string, tasks []*domain.Task, limits map[constants.TaskStatus]*int,
	counts map[constants.TaskStatus]int,
) *Board {
	byStatus := make(map[constants.TaskStatus][]*domain.Task)
	for _, t := range tasks {
		if t == nil || t.ProjectID != projectID || t.IsDeleted() {
			continue
		}
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	b := &Board{ProjectID: projectID}
	for _, status := range constants.AllTaskStatuses() {
		col := byStatus[status]
		sort.SliceStable(col, func(i, j int) bool {
			if col[i].Rank != col[j].Rank {
				return col[i].Rank < col[j].Rank
			}
			return col[i].CreatedAt.Before(col[j].CreatedAt)
		})
		occupancy := len(col)
		if counts != nil {
			occupancy = counts[status]
		}
		b.Columns = append(b.Columns, BoardColumn{
			Status:    status,
			Limit:     limits[status],
			Occupancy: occupancy,
			Tasks:     col,
		})
	}
	return b
}

// Column returns the column for status.
func (b *Board) Column(status constants.TaskStatus) (BoardColumn, bool) {
	for _, c := range b.Columns {
		if c.Status == status {
			return c, true
		}
	}
	return BoardColumn{}, false
}

// Render draws the board side by side within width terminal cells.
func (b *Board) Render(width int) string {
	CheckNoColor()

	n := len(b.Columns)
	if n == 0 {
		return ""
	}
	colWidth := (width - (n - 1)) / n
	colWidth = min(max(colWidth, MinColumnWidth), MaxColumnWidth)

	rendered := make([]string, 0, n)
	for _, c := range b.Columns {
		rendered = append(rendered, renderColumn(c, colWidth))
	}

	title := StyleBold.Render("Project " + b.ProjectID)
	return title + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(rendered)...)
}

// Header returns "<label> <count>/<limit>" or "<label> <count>" without a ceiling.
func (c BoardColumn) Header() string {
	label := TaskStatusIcon(c.Status) + " " + StatusLabel(c.Status)
	if c.Limit == nil {
		return fmt.Sprintf("%s %d", label, c.Count())
	}
	return fmt.Sprintf("%s %d/%d", label, c.Count(), *c.Limit)
}

func renderColumn(c BoardColumn, width int) string {
	color := TaskStatusColor(c.Status)
	switch {
	case c.OverLimit():
		color = ColorError
	case c.AtLimit():
		color = ColorWarning
	}

	inner := width - 2
	header := lipgloss.NewStyle().Bold(true).Foreground(color).Render(truncate(c.Header(), inner))

	lines := []string{header}
	if len(c.Tasks) == 0 {
		lines = append(lines, StyleDim.Render("(empty)"))
	}
	for _, t := range c.Tasks {
		lines = append(lines, truncate(cardText(t), inner))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(inner).
		Render(strings.Join(lines, "\n"))
}

func cardText(t *domain.Task) string {
	marker := "·"
	switch t.Priority {
	case constants.PriorityUrgent:
		marker = "!!"
	case constants.PriorityHigh:
		marker = "!"
	case constants.PriorityLow, constants.PriorityMedium:
	}
	return marker + " " + t.Title
}

func joinWithGap(cols []string) []string {
	out := make([]string, 0, len(cols)*2)
	for i, c := range cols {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, c)
	}
	return out
}

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
)

func boardTask(id, project string, status constants.TaskStatus, rank float64) *domain.Task {
	return &domain.Task{
		ID:        id,
		ProjectID: project,
		Title:     "Task " + id,
		Status:    status,
		Priority:  constants.PriorityMedium,
		Rank:      rank,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func intPtr(v int) *int { return &v }

func TestNewBoard(t *testing.T) {
	deleted := boardTask("gone", "platform", constants.TaskStatusTodo, 1)
	now := time.Now()
	deleted.DeletedAt = &now

	tasks := []*domain.Task{
		boardTask("b", "platform", constants.TaskStatusInProgress, 2048),
		boardTask("a", "platform", constants.TaskStatusInProgress, 1024),
		boardTask("c", "platform", constants.TaskStatusDone, 1024),
		boardTask("x", "other", constants.TaskStatusInProgress, 1),
		deleted,
		nil,
	}
	limits := map[constants.TaskStatus]*int{constants.TaskStatusInProgress: intPtr(2)}

	board := NewBoard("platform", tasks, limits, nil)
	require.Len(t, board.Columns, len(constants.AllTaskStatuses()))
	assert.Equal(t, constants.TaskStatusBacklog, board.Columns[0].Status)

	inProgress, ok := board.Column(constants.TaskStatusInProgress)
	require.True(t, ok)
	require.Equal(t, 2, inProgress.Count())
	assert.Equal(t, "a", inProgress.Tasks[0].ID, "lower rank first")
	assert.Equal(t, "b", inProgress.Tasks[1].ID)
	assert.True(t, inProgress.AtLimit())
	assert.False(t, inProgress.OverLimit())
	assert.Equal(t, "● In Progress 2/2", inProgress.Header())

	todo, _ := board.Column(constants.TaskStatusTodo)
	assert.Zero(t, todo.Count(), "soft-deleted tasks are not on the board")
	assert.Nil(t, todo.Limit)
	assert.Equal(t, "○ Todo 0", todo.Header())

	_, ok = board.Column("archived")
	assert.False(t, ok)
}

func TestBoardColumn_OverLimit(t *testing.T) {
	c := BoardColumn{
		Status:    constants.TaskStatusInReview,
		Limit:     intPtr(1),
		Occupancy: 2,
		Tasks:     []*domain.Task{{ID: "1"}, {ID: "2"}},
	}
	assert.True(t, c.AtLimit())
	assert.True(t, c.OverLimit())
}

func TestNewBoard_CountsOverrideCards(t *testing.T) {
	tasks := []*domain.Task{boardTask("a", "platform", constants.TaskStatusInProgress, 1)}
	limits := map[constants.TaskStatus]*int{constants.TaskStatusInProgress: intPtr(3)}
	counts := map[constants.TaskStatus]int{
		constants.TaskStatusBacklog:    150,
		constants.TaskStatusInProgress: 3,
	}

	board := NewBoard("platform", tasks, limits, counts)

	inProgress, _ := board.Column(constants.TaskStatusInProgress)
	assert.Equal(t, 3, inProgress.Count())
	assert.Len(t, inProgress.Tasks, 1)
	assert.True(t, inProgress.AtLimit())
	assert.Equal(t, "● In Progress 3/3", inProgress.Header())

	backlog, _ := board.Column(constants.TaskStatusBacklog)
	assert.Equal(t, 150, backlog.Count())
	assert.Empty(t, backlog.Tasks)

	todo, _ := board.Column(constants.TaskStatusTodo)
	assert.Zero(t, todo.Count(), "statuses missing from counts are empty")
}

func TestBoard_Render(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	urgent := boardTask("u", "platform", constants.TaskStatusTodo, 1)
	urgent.Title = "Rotate certificates"
	urgent.Priority = constants.PriorityUrgent

	board := NewBoard("platform", []*domain.Task{urgent}, nil, nil)
	out := board.Render(200)

	assert.Contains(t, out, "Project platform")
	assert.Contains(t, out, "Todo 1")
	assert.Contains(t, out, "!! Rotate")
	assert.Contains(t, out, "(empty)")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), len(constants.AllTaskStatuses())*(MaxColumnWidth+1))
	}
}

func TestBoard_RenderEmpty(t *testing.T) {
	assert.Empty(t, (&Board{}).Render(80))
}

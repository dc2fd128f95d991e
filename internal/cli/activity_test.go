package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/errors"
)

func TestActivityAndCommentCommands(t *testing.T) {
	env := newCLIEnv(t)
	a := env.createTask("web", "Task", "--as", "ann")
	env.mustRun("--as", "bob", "task", "move", a.ID, "todo")
	env.mustRun("--as", "bob", "comment", "add", a.ID, "picking", "this", "up")

	var comments []domain.Comment
	decodeJSON(t, env.mustRun("-o", "json", "comment", "list", a.ID), &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "picking this up", comments[0].Body)
	assert.Equal(t, "bob", comments[0].AuthorID)

	out := env.mustRun("comment", "list", a.ID)
	assert.Contains(t, out, "picking this up")

	var entries []domain.Activity
	decodeJSON(t, env.mustRun("-o", "json", "activity", "list", "--task", a.ID), &entries)
	types := make([]constants.ActivityType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, constants.ActivityTaskCreated)
	assert.Contains(t, types, constants.ActivityStatusChanged)
	assert.Contains(t, types, constants.ActivityCommentAdded)

	decodeJSON(t, env.mustRun("-o", "json", "activity", "list", "--type", "status_changed"), &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].ActorID)

	out = env.mustRun("activity", "list", "--project", "web")
	assert.Contains(t, out, "task_created")

	_, err := env.run("activity", "list", "--type", "nonsense")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestActivityCommands_EmptyComment(t *testing.T) {
	env := newCLIEnv(t)
	a := env.createTask("web", "Task")

	_, err := env.run("comment", "add", a.ID, "   ")

	require.ErrorIs(t, err, errors.ErrEmptyValue)
}

func TestActivityRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	taskID := "t1"
	entries := []domain.Activity{{
		ActorID:   "ann",
		Type:      constants.ActivityStatusChanged,
		TaskID:    &taskID,
		Payload:   map[string]any{"to": "todo", "from": "backlog"},
		CreatedAt: now.Add(-2 * time.Hour),
	}}

	rows := activityRows(entries, clock.NewStepClock(now, 0))

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"2 hours ago", "ann", "status_changed", "t1", "from=backlog to=todo"}, rows[0])
}

func TestPayloadSummary(t *testing.T) {
	t.Parallel()

	assert.Empty(t, payloadSummary(nil))
	assert.Equal(t, "a=1 b=x", payloadSummary(map[string]any{"b": "x", "a": 1}))
}

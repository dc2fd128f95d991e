package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workflow", "set", "web", "--limit", "in_progress=2")
	a := env.createTask("web", "Login page")
	env.createTask("web", "Signup page", "-s", "todo")
	env.createTask("api", "Elsewhere")
	env.mustRun("task", "move", a.ID, "in_progress")

	out := env.mustRun("board", "web", "--width", "250")

	assert.Contains(t, out, "web")
	assert.Contains(t, out, "In Progress 1/2")
	assert.Contains(t, out, "Login page")
	assert.Contains(t, out, "Signup page")
	assert.NotContains(t, out, "Elsewhere")
}

func TestBoardCommand_JSON(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workflow", "set", "web", "--default", "3")
	env.createTask("web", "One", "-s", "todo")

	var board boardJSON
	decodeJSON(t, env.mustRun("-o", "json", "board", "web"), &board)

	assert.Equal(t, "web", board.ProjectID)
	require.Len(t, board.Columns, 7)
	for _, col := range board.Columns {
		switch col.Status {
		case "todo":
			assert.Equal(t, 1, col.Count)
			require.NotNil(t, col.Limit)
			assert.Equal(t, 3, *col.Limit)
		case "done", "backlog", "canceled":
			assert.Nil(t, col.Limit)
			assert.Empty(t, col.Tasks)
		}
	}
}

func TestBoardCommand_CountsPastFirstPage(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workflow", "set", "web", "--limit", "in_progress=3")
	for i := 0; i < 100; i++ {
		env.createTask("web", fmt.Sprintf("Backlog %d", i))
	}
	for i := 0; i < 3; i++ {
		task := env.createTask("web", fmt.Sprintf("Active %d", i))
		env.mustRun("task", "move", task.ID, "in_progress")
	}

	var board boardJSON
	decodeJSON(t, env.mustRun("-o", "json", "board", "web"), &board)

	seen := map[string]bool{}
	for _, col := range board.Columns {
		seen[col.Status] = true
		switch col.Status {
		case "in_progress":
			assert.Equal(t, 3, col.Count)
			require.NotNil(t, col.Limit)
			assert.Equal(t, 3, *col.Limit)
			assert.Len(t, col.Tasks, 3)
		case "backlog":
			assert.Equal(t, 100, col.Count)
			assert.Len(t, col.Tasks, 100)
		}
	}
	assert.True(t, seen["in_progress"])
	assert.True(t, seen["backlog"])

	extra := env.createTask("web", "One too many")
	_, err := env.run("task", "move", extra.ID, "in_progress")
	require.Error(t, err)
	assert.Equal(t, ExitDenied, ExitCodeForError(err))
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/errors"
)

func TestDependencyCommands(t *testing.T) {
	env := newCLIEnv(t)
	a := env.createTask("web", "Design schema")
	b := env.createTask("web", "Write migration")
	c := env.createTask("web", "Ship")

	out := env.mustRun("dep", "add", a.ID, b.ID)
	assert.Contains(t, out, "finish_to_start")
	env.mustRun("dep", "add", b.ID, c.ID, "--type", "start-to-start")

	var list domain.DependencyList
	decodeJSON(t, env.mustRun("-o", "json", "dep", "list", b.ID), &list)
	require.Len(t, list.Predecessors, 1)
	require.Len(t, list.Successors, 1)
	assert.Equal(t, a.ID, list.Predecessors[0].PredecessorID)
	assert.Equal(t, constants.DependencyStartToStart, list.Successors[0].Type)

	out = env.mustRun("dep", "list", b.ID)
	assert.Contains(t, out, "waits on")
	assert.Contains(t, out, "blocks")

	t.Run("cycle is rejected", func(t *testing.T) {
		_, err := env.run("dep", "add", c.ID, a.ID)
		require.ErrorIs(t, err, errors.ErrDependencyCycle)
	})

	t.Run("self dependency is rejected", func(t *testing.T) {
		_, err := env.run("dep", "add", a.ID, a.ID)
		require.ErrorIs(t, err, errors.ErrSelfDependency)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := env.run("dep", "add", a.ID, c.ID, "--type", "whenever")
		require.ErrorIs(t, err, errors.ErrInvalidDependencyType)
	})

	t.Run("remove", func(t *testing.T) {
		out := env.mustRun("dep", "remove", a.ID, b.ID)
		assert.Contains(t, out, "Removed 1")

		_, err := env.run("dep", "remove", a.ID, b.ID)
		require.ErrorIs(t, err, errors.ErrDependencyNotFound)

		out = env.mustRun("dep", "list", a.ID)
		assert.Contains(t, out, "no dependencies")
	})
}

func TestDependencyRows(t *testing.T) {
	t.Parallel()

	list := &domain.DependencyList{
		TaskID:       "b",
		Predecessors: []domain.Dependency{{PredecessorID: "a", SuccessorID: "b", Type: constants.DependencyFinishToStart, CreatedBy: "ann"}},
		Successors:   []domain.Dependency{{PredecessorID: "b", SuccessorID: "c", Type: constants.DependencyStartToStart, CreatedBy: "bob"}},
	}

	assert.Equal(t, [][]string{
		{"waits on", "a", "finish_to_start", "ann"},
		{"blocks", "c", "start_to_start", "bob"},
	}, dependencyRows(list))
}

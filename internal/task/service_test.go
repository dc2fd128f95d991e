package task

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/graph"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/testutil"
	"github.com/mrz1836/taskflow/internal/wip"
	"github.com/mrz1836/taskflow/internal/workflow"
)

// countingQueries counts occupancy queries issued by admission control.
type countingQueries struct {
	wip.Queries
	counts *atomic.Int32
}

func (c countingQueries) CountInStatus(ctx context.Context, scope domain.Scope, projectID string,
	status constants.TaskStatus, exclude []string,
) (int, error) {
	c.counts.Add(1)
	return c.Queries.CountInStatus(ctx, scope, projectID, status, exclude)
}

// countingAdmitter delegates to the real controller and counts calls.
type countingAdmitter struct {
	inner  *wip.Controller
	calls  atomic.Int32
	counts atomic.Int32
}

func (a *countingAdmitter) Admit(ctx context.Context, q wip.Queries, req wip.Request) (wip.Decision, error) {
	a.calls.Add(1)
	return a.inner.Admit(ctx, countingQueries{Queries: q, counts: &a.counts}, req)
}

func (a *countingAdmitter) AdmitBulk(ctx context.Context, q wip.Queries, req wip.BulkRequest) (wip.Decision, error) {
	a.calls.Add(1)
	return a.inner.AdmitBulk(ctx, countingQueries{Queries: q, counts: &a.counts}, req)
}

type testEnv struct {
	svc      *Service
	store    *store.Store
	graph    *graph.Manager
	resolver *workflow.Resolver
	admitter *countingAdmitter
	metrics  *mockMetrics
	bell     *bytes.Buffer
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()
	s := testutil.NewStore(t)
	gate := access.AllowAll{}
	rec := activity.NewRecorder(s, gate, zerolog.Nop(), activity.WithClock(testutil.NewClock()))
	resolver := workflow.NewResolver(s, gate, rec, workflow.Config{}, zerolog.Nop())
	admitter := &countingAdmitter{inner: wip.NewController(resolver, zerolog.Nop())}
	mgr := graph.NewManager(s, gate, rec, graph.Config{}, zerolog.Nop(), graph.WithClock(testutil.NewClock()))
	metrics := &mockMetrics{}
	bell := &bytes.Buffer{}

	opts = append([]ServiceOption{
		WithClock(testutil.NewClock()),
		WithMetrics(metrics),
		WithNotifier(NewStateChangeNotifierWithWriter(DefaultNotificationConfig(), bell)),
	}, opts...)
	svc := NewService(s, gate, admitter, mgr, rec, zerolog.Nop(), opts...)
	return &testEnv{svc: svc, store: s, graph: mgr, resolver: resolver, admitter: admitter, metrics: metrics, bell: bell}
}

func (e *testEnv) setLimits(t *testing.T, defaultLimit *int, statusLimits map[string]*int) {
	t.Helper()
	_, err := e.resolver.Update(testutil.Context(), testutil.Admin, testutil.TestWorkspace, testutil.TestProject,
		workflow.Update{DefaultLimit: defaultLimit, StatusLimits: statusLimits})
	require.NoError(t, err)
}

func (e *testEnv) create(t *testing.T, title string, status constants.TaskStatus) *domain.Task {
	t.Helper()
	task, err := e.svc.Create(testutil.Context(), testutil.Admin, testutil.TestWorkspace, CreateRequest{
		ProjectID: testutil.TestProject,
		Title:     title,
		Status:    status,
		Override:  true,
		Reason:    "seed",
	})
	require.NoError(t, err)
	return task
}

func (e *testEnv) activities(t *testing.T, filter domain.ActivityFilter) []domain.Activity {
	t.Helper()
	list, err := e.store.ListActivity(context.Background(), testutil.TestScope(), filter)
	require.NoError(t, err)
	return list
}

func intPtr(v int) *int { return &v }

func TestService_Create(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace

	t.Run("defaults", func(t *testing.T) {
		env := newTestEnv(t)
		task, err := env.svc.Create(ctx, testutil.Member, ws, CreateRequest{
			ProjectID: testutil.TestProject,
			Title:     "  Rotate TLS certificates ",
			Tags:      []string{"ops", "ops", " "},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, "Rotate TLS certificates", task.Title)
		assert.Equal(t, constants.TaskStatusBacklog, task.Status)
		assert.Equal(t, constants.PriorityMedium, task.Priority)
		assert.Equal(t, constants.TaskTypeTask, task.Type)
		require.NotNil(t, task.ReporterID)
		assert.Equal(t, testutil.Member.ID, *task.ReporterID)
		assert.Equal(t, []string{"ops"}, task.Tags)
		assert.InDelta(t, constants.RankStep, task.Rank, 0.0001)
		assert.Nil(t, task.CompletedAt)

		got, err := env.svc.Get(ctx, testutil.Member, ws, task.ID, false)
		require.NoError(t, err)
		assert.Equal(t, task.Title, got.Title)

		list := env.activities(t, domain.ActivityFilter{TaskID: task.ID})
		require.Len(t, list, 1)
		assert.Equal(t, constants.ActivityTaskCreated, list[0].Type)
		assert.Equal(t, int32(0), env.admitter.counts.Load(), "backlog is exempt")
	})

	t.Run("new tasks go to the bottom of the column", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.create(t, "first", constants.TaskStatusTodo)
		second := env.create(t, "second", constants.TaskStatusTodo)
		assert.Greater(t, second.Rank, first.Rank)
	})

	t.Run("created done has completed_at", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "already shipped", constants.TaskStatusDone)
		require.NotNil(t, task.CompletedAt)
	})

	t.Run("initial status is admitted", func(t *testing.T) {
		env := newTestEnv(t)
		env.setLimits(t, intPtr(1), nil)
		env.create(t, "one", constants.TaskStatusTodo)

		_, err := env.svc.Create(ctx, testutil.Member, ws, CreateRequest{
			ProjectID: testutil.TestProject,
			Title:     "two",
			Status:    constants.TaskStatusTodo,
		})
		w, ok := flowerrors.AsWIPLimit(err)
		require.True(t, ok)
		assert.Equal(t, 1, w.Limit)
		assert.Equal(t, 1, w.Current)

		tasks, err := env.svc.List(ctx, testutil.Member, ws, domain.TaskFilter{Status: constants.TaskStatusTodo})
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		tests := []struct {
			name string
			req  CreateRequest
			want error
		}{
			{"missing project", CreateRequest{Title: "x"}, flowerrors.ErrEmptyValue},
			{"blank title", CreateRequest{ProjectID: "p", Title: "  "}, flowerrors.ErrEmptyValue},
			{"unknown status", CreateRequest{ProjectID: "p", Title: "x", Status: "qa"}, flowerrors.ErrInvalidStatus},
			{"unknown priority", CreateRequest{ProjectID: "p", Title: "x", Priority: "whenever"}, flowerrors.ErrInvalidArgument},
			{"unknown type", CreateRequest{ProjectID: "p", Title: "x", Type: "chore"}, flowerrors.ErrInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.svc.Create(ctx, testutil.Member, ws, tt.req)
				require.ErrorIs(t, err, tt.want)
				assert.Equal(t, flowerrors.KindValidation, flowerrors.KindOf(err))
			})
		}
	})

	t.Run("tenant and workspace are required", func(t *testing.T) {
		env := newTestEnv(t)
		req := CreateRequest{ProjectID: testutil.TestProject, Title: "x"}

		_, err := env.svc.Create(context.Background(), testutil.Member, ws, req)
		require.ErrorIs(t, err, flowerrors.ErrTenantRequired)

		_, err = env.svc.Create(ctx, testutil.Member, " ", req)
		require.ErrorIs(t, err, flowerrors.ErrWorkspaceRequired)
	})
}

// TestService_WIPOverrideScenario walks a project with default ceiling 2
// and two tasks in progress through a denied move and an admin override.
func TestService_WIPOverrideScenario(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)
	env.setLimits(t, intPtr(2), nil)

	env.create(t, "one", constants.TaskStatusInProgress)
	env.create(t, "two", constants.TaskStatusInProgress)
	third := env.create(t, "three", constants.TaskStatusTodo)
	overridesBefore := len(env.activities(t, domain.ActivityFilter{Type: constants.ActivityWIPOverrideUsed}))

	_, err := env.svc.Move(ctx, testutil.Member, ws, third.ID, MoveRequest{Status: constants.TaskStatusInProgress})
	require.ErrorIs(t, err, flowerrors.ErrWIPLimitExceeded)
	assert.Equal(t, flowerrors.KindWIPLimitExceeded, flowerrors.KindOf(err))
	w, ok := flowerrors.AsWIPLimit(err)
	require.True(t, ok)
	assert.Equal(t, string(constants.TaskStatusInProgress), w.Status)
	assert.Equal(t, 2, w.Limit)
	assert.Equal(t, 2, w.Current)

	_, err = env.svc.Move(ctx, testutil.Member, ws, third.ID, MoveRequest{
		Status: constants.TaskStatusInProgress, Override: true, Reason: "hotfix",
	})
	require.ErrorIs(t, err, flowerrors.ErrWIPOverrideForbidden)
	assert.Equal(t, flowerrors.KindWIPOverrideForbidden, flowerrors.KindOf(err))

	moved, err := env.svc.Move(ctx, testutil.Admin, ws, third.ID, MoveRequest{
		Status: constants.TaskStatusInProgress, Override: true, Reason: "release blocker",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusInProgress, moved.Status)

	overrides := env.activities(t, domain.ActivityFilter{TaskID: third.ID, Type: constants.ActivityWIPOverrideUsed})
	require.Len(t, overrides, 1)
	assert.Equal(t, "release blocker", overrides[0].Payload["reason"])
	assert.InDelta(t, 2, overrides[0].Payload["limit"], 0)
	assert.InDelta(t, 2, overrides[0].Payload["current"], 0)
	assert.Len(t, env.activities(t, domain.ActivityFilter{Type: constants.ActivityWIPOverrideUsed}), overridesBefore+1)

	changes := env.activities(t, domain.ActivityFilter{TaskID: third.ID, Type: constants.ActivityStatusChanged})
	require.Len(t, changes, 1)
	assert.Equal(t, "todo", changes[0].Payload["from"])
	assert.Equal(t, "in_progress", changes[0].Payload["to"])

	require.Len(t, env.metrics.denials, 2)
	assert.False(t, env.metrics.denials[0].forbidden)
	assert.True(t, env.metrics.denials[1].forbidden)
}

func TestService_Move(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace

	t.Run("same status reorder never consults admission", func(t *testing.T) {
		env := newTestEnv(t)
		env.setLimits(t, intPtr(1), nil)
		task := env.create(t, "only", constants.TaskStatusInProgress)
		env.admitter.calls.Store(0)
		env.admitter.counts.Store(0)

		rank := 3.5
		moved, err := env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{
			Status: constants.TaskStatusInProgress, Rank: &rank,
		})
		require.NoError(t, err)
		assert.InDelta(t, 3.5, moved.Rank, 0.0001)
		assert.Equal(t, int32(0), env.admitter.calls.Load())
		assert.Equal(t, int32(0), env.admitter.counts.Load())

		updates := env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityTaskUpdated})
		require.Len(t, updates, 1)
		assert.Equal(t, []any{"rank"}, updates[0].Payload["fields"])
		assert.Empty(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityStatusChanged}))
	})

	t.Run("terminal tasks cannot move", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "shipped", constants.TaskStatusTodo)
		_, err := env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{Status: constants.TaskStatusDone})
		require.NoError(t, err)
		env.admitter.calls.Store(0)

		_, err = env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{Status: constants.TaskStatusInReview})
		require.ErrorIs(t, err, flowerrors.ErrInvalidTransition)
		assert.Equal(t, flowerrors.KindValidation, flowerrors.KindOf(err))
		assert.Equal(t, int32(0), env.admitter.calls.Load())

		got, err := env.svc.Get(ctx, testutil.Member, ws, task.ID, false)
		require.NoError(t, err)
		assert.Equal(t, constants.TaskStatusDone, got.Status)
	})

	t.Run("completed_at is set once", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "ship it", constants.TaskStatusInReview)
		done, err := env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{Status: constants.TaskStatusDone})
		require.NoError(t, err)
		require.NotNil(t, done.CompletedAt)
		first := *done.CompletedAt

		title := "ship it now"
		again, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, first, *again.CompletedAt)
	})

	t.Run("moving to a column appends to its bottom", func(t *testing.T) {
		env := newTestEnv(t)
		top := env.create(t, "top", constants.TaskStatusTodo)
		mover := env.create(t, "mover", constants.TaskStatusBacklog)

		moved, err := env.svc.Move(ctx, testutil.Member, ws, mover.ID, MoveRequest{Status: constants.TaskStatusTodo})
		require.NoError(t, err)
		assert.Greater(t, moved.Rank, top.Rank)
	})

	t.Run("blocked rings the bell", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "waiting", constants.TaskStatusInProgress)
		_, err := env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{Status: constants.TaskStatusBlocked})
		require.NoError(t, err)
		assert.Equal(t, "\a", env.bell.String())
	})

	t.Run("unknown task", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Move(ctx, testutil.Member, ws, "ghost", MoveRequest{Status: constants.TaskStatusTodo})
		require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)
	})
}

func TestService_Update(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace

	t.Run("fields assignment and status in one write", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "draft", constants.TaskStatusTodo)

		title := "final"
		assignee := "bob"
		priority := constants.PriorityHigh
		status := constants.TaskStatusInProgress
		tags := []string{"api"}
		updated, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{
			Title:      &title,
			AssigneeID: &assignee,
			Priority:   &priority,
			Status:     &status,
			Tags:       &tags,
		})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, "bob", *updated.AssigneeID)
		assert.Equal(t, constants.TaskStatusInProgress, updated.Status)

		assert.Len(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityStatusChanged}), 1)
		assigned := env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityTaskAssigned})
		require.Len(t, assigned, 1)
		assert.Nil(t, assigned[0].Payload["from"])
		assert.Equal(t, "bob", assigned[0].Payload["to"])
		fields := env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityTaskUpdated})
		require.Len(t, fields, 1)
		assert.ElementsMatch(t, []any{"title", "priority", "tags"}, fields[0].Payload["fields"])
	})

	t.Run("clearing an assignee", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "owned", constants.TaskStatusTodo)
		bob := "bob"
		_, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{AssigneeID: &bob})
		require.NoError(t, err)

		none := ""
		updated, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{AssigneeID: &none})
		require.NoError(t, err)
		assert.Nil(t, updated.AssigneeID)
		assert.Len(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityTaskAssigned}), 2)
	})

	t.Run("no-op update writes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "same", constants.TaskStatusTodo)
		title := "same"
		_, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{Title: &title})
		require.NoError(t, err)
		assert.Len(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID}), 1, "only task_created")
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.create(t, "named", constants.TaskStatusTodo)
		blank := " "
		_, err := env.svc.Update(ctx, testutil.Member, ws, task.ID, UpdateRequest{Title: &blank})
		require.ErrorIs(t, err, flowerrors.ErrEmptyValue)
	})
}

func TestService_BulkUpdateStatus(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace

	t.Run("batch over the ceiling is denied in full", func(t *testing.T) {
		env := newTestEnv(t)
		env.setLimits(t, nil, map[string]*int{"in_progress": intPtr(3)})
		ids := make([]string, 0, 5)
		for _, title := range []string{"a", "b", "c", "d", "e"} {
			ids = append(ids, env.create(t, title, constants.TaskStatusTodo).ID)
		}

		_, err := env.svc.BulkUpdateStatus(ctx, testutil.Member, ws, BulkStatusRequest{
			TaskIDs: ids, Status: constants.TaskStatusInProgress,
		})
		w, ok := flowerrors.AsWIPLimit(err)
		require.True(t, ok)
		assert.Equal(t, 3, w.Limit)
		assert.Equal(t, 0, w.Current)

		moved, err := env.svc.List(ctx, testutil.Member, ws, domain.TaskFilter{Status: constants.TaskStatusInProgress})
		require.NoError(t, err)
		assert.Empty(t, moved, "no task may be partially applied")
		assert.Empty(t, env.activities(t, domain.ActivityFilter{Type: constants.ActivityStatusChanged}))
	})

	t.Run("batch within the ceiling records one change per task", func(t *testing.T) {
		env := newTestEnv(t)
		env.setLimits(t, intPtr(3), nil)
		a := env.create(t, "a", constants.TaskStatusTodo)
		b := env.create(t, "b", constants.TaskStatusTodo)
		c := env.create(t, "c", constants.TaskStatusInProgress)

		tasks, err := env.svc.BulkUpdateStatus(ctx, testutil.Member, ws, BulkStatusRequest{
			TaskIDs: []string{a.ID, b.ID, a.ID, c.ID}, Status: constants.TaskStatusInProgress,
		})
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		for _, task := range tasks {
			assert.Equal(t, constants.TaskStatusInProgress, task.Status)
		}
		assert.Greater(t, tasks[1].Rank, tasks[0].Rank)

		changes := env.activities(t, domain.ActivityFilter{Type: constants.ActivityStatusChanged})
		assert.Len(t, changes, 2, "the task already in place is not a mover")
		for _, change := range changes {
			assert.Equal(t, "todo", change.Payload["from"])
			assert.Equal(t, true, change.Payload["bulk"])
		}
		assert.Len(t, env.metrics.moves, 2+3, "three creates and two bulk moves")
	})

	t.Run("admin override records one workspace-level audit per project", func(t *testing.T) {
		env := newTestEnv(t)
		env.setLimits(t, intPtr(1), nil)
		a := env.create(t, "a", constants.TaskStatusTodo)
		b := env.create(t, "b", constants.TaskStatusBacklog)
		overridesBefore := len(env.activities(t, domain.ActivityFilter{Type: constants.ActivityWIPOverrideUsed}))

		_, err := env.svc.BulkUpdateStatus(ctx, testutil.Admin, ws, BulkStatusRequest{
			TaskIDs: []string{a.ID, b.ID}, Status: constants.TaskStatusInReview, Override: true, Reason: "demo day",
		})
		require.NoError(t, err)

		overrides := env.activities(t, domain.ActivityFilter{Type: constants.ActivityWIPOverrideUsed})
		require.Len(t, overrides, overridesBefore+1)
		latest := overrides[0]
		assert.Nil(t, latest.TaskID)
		require.NotNil(t, latest.ProjectID)
		assert.Equal(t, testutil.TestProject, *latest.ProjectID)
		assert.Equal(t, "demo day", latest.Payload["reason"])
		assert.Len(t, latest.Payload["task_ids"], 2)
	})

	t.Run("one illegal transition aborts the batch", func(t *testing.T) {
		env := newTestEnv(t)
		open := env.create(t, "open", constants.TaskStatusTodo)
		closed := env.create(t, "closed", constants.TaskStatusCanceled)

		_, err := env.svc.BulkUpdateStatus(ctx, testutil.Member, ws, BulkStatusRequest{
			TaskIDs: []string{open.ID, closed.ID}, Status: constants.TaskStatusInProgress,
		})
		require.ErrorIs(t, err, flowerrors.ErrInvalidTransition)

		got, err := env.svc.Get(ctx, testutil.Member, ws, open.ID, false)
		require.NoError(t, err)
		assert.Equal(t, constants.TaskStatusTodo, got.Status)
	})

	t.Run("unknown task aborts the batch", func(t *testing.T) {
		env := newTestEnv(t)
		open := env.create(t, "open", constants.TaskStatusTodo)
		_, err := env.svc.BulkUpdateStatus(ctx, testutil.Member, ws, BulkStatusRequest{
			TaskIDs: []string{open.ID, "ghost"}, Status: constants.TaskStatusInProgress,
		})
		require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)
	})

	t.Run("empty batch", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.BulkUpdateStatus(ctx, testutil.Member, ws, BulkStatusRequest{Status: constants.TaskStatusTodo})
		require.ErrorIs(t, err, flowerrors.ErrEmptyValue)
	})
}

// TestService_DeleteDetachesChain deletes the middle of T1 -> T2 -> T3 and
// expects both edges to go with it.
func TestService_DeleteDetachesChain(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)

	t1 := env.create(t, "T1", constants.TaskStatusTodo)
	t2 := env.create(t, "T2", constants.TaskStatusTodo)
	t3 := env.create(t, "T3", constants.TaskStatusTodo)
	_, err := env.graph.Add(ctx, testutil.Member, ws, t1.ID, t2.ID, "")
	require.NoError(t, err)
	_, err = env.graph.Add(ctx, testutil.Member, ws, t2.ID, t3.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, testutil.Member, ws, t2.ID))

	succ, err := env.store.ListSuccessors(ctx, testutil.TestScope(), t1.ID)
	require.NoError(t, err)
	assert.Empty(t, succ)
	pred, err := env.store.ListPredecessors(ctx, testutil.TestScope(), t3.ID)
	require.NoError(t, err)
	assert.Empty(t, pred)

	_, err = env.svc.Get(ctx, testutil.Member, ws, t2.ID, false)
	require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)
	deleted, err := env.svc.Get(ctx, testutil.Member, ws, t2.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	deletions := env.activities(t, domain.ActivityFilter{TaskID: t2.ID, Type: constants.ActivityTaskDeleted})
	require.Len(t, deletions, 1)
	assert.InDelta(t, 2, deletions[0].Payload["dependencies_removed"], 0)

	require.ErrorIs(t, env.svc.Delete(ctx, testutil.Member, ws, t2.ID), flowerrors.ErrTaskNotFound)
}

func TestService_DeleteFreesCapacity(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)
	env.setLimits(t, intPtr(1), nil)

	busy := env.create(t, "busy", constants.TaskStatusInProgress)
	next := env.create(t, "next", constants.TaskStatusTodo)
	_, err := env.svc.Move(ctx, testutil.Member, ws, next.ID, MoveRequest{Status: constants.TaskStatusInProgress})
	require.ErrorIs(t, err, flowerrors.ErrWIPLimitExceeded)

	require.NoError(t, env.svc.Delete(ctx, testutil.Member, ws, busy.ID))
	_, err = env.svc.Move(ctx, testutil.Member, ws, next.ID, MoveRequest{Status: constants.TaskStatusInProgress})
	require.NoError(t, err, "soft-deleted tasks do not occupy the column")
}

func TestService_Destroy(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)

	keep := env.create(t, "keep", constants.TaskStatusTodo)
	doomed := env.create(t, "doomed", constants.TaskStatusTodo)
	_, err := env.graph.Add(ctx, testutil.Member, ws, keep.ID, doomed.ID, "")
	require.NoError(t, err)
	_, err = env.svc.AddComment(ctx, testutil.Member, ws, doomed.ID, "looks risky")
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, testutil.Member, ws, doomed.ID))

	result, err := env.svc.Destroy(ctx, testutil.Admin, ws, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Dependencies, "soft delete already detached the edge")
	assert.Equal(t, int64(1), result.Comments)
	assert.Positive(t, result.Activities)

	_, err = env.svc.Get(ctx, testutil.Member, ws, doomed.ID, true)
	require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)
	assert.Empty(t, env.activities(t, domain.ActivityFilter{TaskID: doomed.ID}))

	audit := env.activities(t, domain.ActivityFilter{Type: constants.ActivityTaskDeleted})
	require.NotEmpty(t, audit)
	assert.Nil(t, audit[0].TaskID)
	assert.Equal(t, doomed.ID, audit[0].Payload["task_id"])
	assert.Equal(t, true, audit[0].Payload["hard"])

	_, err = env.svc.Destroy(ctx, testutil.Admin, ws, doomed.ID)
	require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)

	kept, err := env.svc.Get(ctx, testutil.Member, ws, keep.ID, false)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, kept.ID)
}

func TestService_DestroyLiveTaskRemovesEdges(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)

	a := env.create(t, "a", constants.TaskStatusTodo)
	b := env.create(t, "b", constants.TaskStatusTodo)
	_, err := env.graph.Add(ctx, testutil.Member, ws, a.ID, b.ID, "")
	require.NoError(t, err)

	result, err := env.svc.Destroy(ctx, testutil.Admin, ws, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dependencies)

	pred, err := env.store.ListPredecessors(ctx, testutil.TestScope(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, pred)
}

// failingDetacher strips a task's comments through the transaction and
// then fails, so a rollback has something to undo.
type failingDetacher struct{}

func (failingDetacher) Detach(ctx context.Context, tx *store.Tx, scope domain.Scope, _ domain.Actor, taskID string) ([]domain.Dependency, error) {
	if _, err := tx.DeleteTaskComments(ctx, scope, taskID); err != nil {
		return nil, err
	}
	return nil, assert.AnError
}

func TestService_DestroyRollsBackWhenDetachFails(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)

	task := env.create(t, "sticky", constants.TaskStatusTodo)
	_, err := env.svc.AddComment(ctx, testutil.Member, ws, task.ID, "still here")
	require.NoError(t, err)
	activityBefore := env.activities(t, domain.ActivityFilter{TaskID: task.ID})
	require.NotEmpty(t, activityBefore)

	rec := activity.NewRecorder(env.store, access.AllowAll{}, zerolog.Nop())
	svc := NewService(env.store, access.AllowAll{}, env.admitter, failingDetacher{}, rec, zerolog.Nop())

	result, err := svc.Destroy(ctx, testutil.Admin, ws, task.ID)
	require.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, result)

	kept, err := env.svc.Get(ctx, testutil.Member, ws, task.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "sticky", kept.Title)

	comments, err := env.svc.ListComments(ctx, testutil.Member, ws, task.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "still here", comments[0].Body)

	assert.Len(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID}), len(activityBefore))
	assert.Empty(t, env.activities(t, domain.ActivityFilter{Type: constants.ActivityTaskDeleted}))
}

func TestService_BoardCountsBeyondListPage(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)
	WithLimitReader(env.resolver)(env.svc)
	env.setLimits(t, nil, map[string]*int{"in_progress": intPtr(3)})

	for i := 0; i < constants.DefaultListLimit; i++ {
		env.create(t, fmt.Sprintf("backlog %d", i), constants.TaskStatusBacklog)
	}
	for i := 0; i < 3; i++ {
		env.create(t, fmt.Sprintf("active %d", i), constants.TaskStatusInProgress)
	}

	snap, err := env.svc.Board(ctx, testutil.Member, ws, testutil.TestProject)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestProject, snap.ProjectID)
	assert.Len(t, snap.Tasks, constants.DefaultListLimit+3)
	assert.Equal(t, constants.DefaultListLimit, snap.Counts[constants.TaskStatusBacklog])
	assert.Equal(t, 3, snap.Counts[constants.TaskStatusInProgress])
	require.NotNil(t, snap.Limits[constants.TaskStatusInProgress])
	assert.Equal(t, 3, *snap.Limits[constants.TaskStatusInProgress])
	assert.Nil(t, snap.Limits[constants.TaskStatusDone])
}

func TestService_BoardWithoutLimitReader(t *testing.T) {
	env := newTestEnv(t)
	env.setLimits(t, intPtr(1), nil)
	env.create(t, "only", constants.TaskStatusTodo)

	snap, err := env.svc.Board(testutil.Context(), testutil.Member, testutil.TestWorkspace, testutil.TestProject)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Counts[constants.TaskStatusTodo])
	assert.Nil(t, snap.Limits[constants.TaskStatusTodo], "no reader means no ceilings")
	require.Len(t, snap.Tasks, 1)
}

func TestService_Comments(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)
	task := env.create(t, "discuss", constants.TaskStatusTodo)

	first, err := env.svc.AddComment(ctx, testutil.Member, ws, task.ID, " first ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Body)
	_, err = env.svc.AddComment(ctx, testutil.Admin, ws, task.ID, "second")
	require.NoError(t, err)

	_, err = env.svc.AddComment(ctx, testutil.Member, ws, task.ID, "   ")
	require.ErrorIs(t, err, flowerrors.ErrEmptyValue)
	_, err = env.svc.AddComment(ctx, testutil.Member, ws, "ghost", "hello")
	require.ErrorIs(t, err, flowerrors.ErrTaskNotFound)

	comments, err := env.svc.ListComments(ctx, testutil.Member, ws, task.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, testutil.Admin.ID, comments[1].AuthorID)

	assert.Len(t, env.activities(t, domain.ActivityFilter{TaskID: task.ID, Type: constants.ActivityCommentAdded}), 2)

	require.NoError(t, env.svc.Delete(ctx, testutil.Member, ws, task.ID))
	comments, err = env.svc.ListComments(ctx, testutil.Member, ws, task.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, comments, 2, "soft delete keeps comments")
}

func TestService_List(t *testing.T) {
	ctx := testutil.Context()
	ws := testutil.TestWorkspace
	env := newTestEnv(t)
	env.create(t, "done", constants.TaskStatusDone)
	env.create(t, "todo", constants.TaskStatusTodo)

	tasks, err := env.svc.List(ctx, testutil.Member, ws, domain.TaskFilter{ProjectID: testutil.TestProject})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, constants.TaskStatusTodo, tasks[0].Status)

	_, err = env.svc.List(ctx, testutil.Member, ws, domain.TaskFilter{Status: "qa"})
	require.ErrorIs(t, err, flowerrors.ErrInvalidStatus)
}

func TestService_AccessDenied(t *testing.T) {
	s := testutil.NewStore(t)
	gate := access.NewStaticGate(nil)
	rec := activity.NewRecorder(s, gate, zerolog.Nop())
	resolver := workflow.NewResolver(s, gate, rec, workflow.Config{}, zerolog.Nop())
	mgr := graph.NewManager(s, gate, rec, graph.Config{}, zerolog.Nop())
	svc := NewService(s, gate, wip.NewController(resolver, zerolog.Nop()), mgr, rec, zerolog.Nop())

	_, err := svc.List(testutil.Context(), testutil.Member, testutil.TestWorkspace, domain.TaskFilter{})
	require.ErrorIs(t, err, flowerrors.ErrWorkspaceRequired)
	assert.Equal(t, flowerrors.KindWorkspaceRequired, flowerrors.KindOf(err))
}

func TestService_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	env := newTestEnv(t, WithTracerProvider(tp))
	env.setLimits(t, intPtr(1), nil)
	ctx := testutil.Context()
	ws := testutil.TestWorkspace

	env.create(t, "busy", constants.TaskStatusInProgress)
	task := env.create(t, "waiting", constants.TaskStatusTodo)
	exporter.Reset()

	_, err := env.svc.Move(ctx, testutil.Member, ws, task.ID, MoveRequest{Status: constants.TaskStatusInProgress})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "task.Update", spans[0].Name)
	var kind string
	for _, kv := range spans[0].Attributes {
		if kv.Key == "taskflow.error.kind" {
			kind = kv.Value.AsString()
		}
	}
	assert.Equal(t, string(flowerrors.KindWIPLimitExceeded), kind)
}

// Package graph manages predecessor → successor dependencies between tasks
// of one workspace and keeps the graph acyclic.
//
// The graph is never held in memory: every traversal step is an adjacency
// query against the store, run inside the same transaction as the insert so
// the cycle check sees a consistent snapshot.
package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/tracing"
)

// Config holds graph settings.
type Config struct {
	// CycleSearchLimit caps the number of expanded tasks per cycle check.
	CycleSearchLimit int
}

// Manager adds, removes and lists dependencies.
type Manager struct {
	store    *store.Store
	gate     access.Gate
	recorder *activity.Recorder
	clock    clock.Clock
	tracer   trace.Tracer
	config   Config
	logger   zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithTracerProvider sets the span source.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) {
		m.tracer = tracing.Tracer(tp)
	}
}

// NewManager creates a Manager.
func NewManager(st *store.Store, gate access.Gate, recorder *activity.Recorder, cfg Config, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	if cfg.CycleSearchLimit <= 0 {
		cfg.CycleSearchLimit = constants.DefaultCycleSearchLimit
	}
	m := &Manager{
		store:    st,
		gate:     gate,
		recorder: recorder,
		clock:    clock.RealClock{},
		tracer:   tracing.Tracer(nil),
		config:   cfg,
		logger:   logger.With().Str("component", "graph").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add creates predecessor → successor. An empty depType means finish_to_start.
//
// Rejections, in order: self-dependency and unknown type (validation),
// either task missing from the workspace (not found), the same edge already
// present (conflict), and an edge that would close a cycle (validation).
func (m *Manager) Add(ctx context.Context, actor domain.Actor, workspaceID, predecessorID, successorID string,
	depType constants.DependencyType,
) (dep *domain.Dependency, err error) {
	ctx, span := m.tracer.Start(ctx, "graph.Add", trace.WithAttributes(
		attribute.String("taskflow.predecessor_id", predecessorID),
		attribute.String("taskflow.successor_id", successorID),
	))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, m.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.ScopeAttributes(scope.OrganizationID, scope.WorkspaceID)...)

	if depType == "" {
		depType = constants.DependencyFinishToStart
	}
	if !depType.IsValid() {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrInvalidDependencyType, depType)
	}
	if predecessorID == "" || successorID == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "predecessor and successor are required")
	}
	if predecessorID == successorID {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrSelfDependency, predecessorID)
	}

	dep = &domain.Dependency{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: scope.OrganizationID,
		WorkspaceID:    scope.WorkspaceID,
		PredecessorID:  predecessorID,
		SuccessorID:    successorID,
		Type:           depType,
		CreatedBy:      actor.ID,
		CreatedAt:      m.clock.Now().UTC(),
	}

	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		tasks, err := tx.GetTasks(ctx, scope, []string{predecessorID, successorID})
		if err != nil {
			return err
		}
		if missing := missingIDs(tasks, predecessorID, successorID); len(missing) > 0 {
			return fmt.Errorf("%w: %v", flowerrors.ErrTaskNotFound, missing)
		}

		exists, err := tx.DependencyExists(ctx, scope, predecessorID, successorID, depType)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s -> %s (%s)", flowerrors.ErrDuplicateDependency, predecessorID, successorID, depType)
		}

		if err := CheckCycle(ctx, tx, scope, predecessorID, successorID, m.config.CycleSearchLimit); err != nil {
			return err
		}

		if err := tx.InsertDependency(ctx, dep); err != nil {
			return err
		}
		_, err = m.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			TaskID:  successorID,
			Type:    constants.ActivityDependencyAdded,
			ActorID: actor.ID,
			Payload: edgePayload(dep),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("workspace_id", scope.WorkspaceID).
		Str("predecessor_id", predecessorID).
		Str("successor_id", successorID).
		Str("type", string(depType)).
		Msg("dependency added")
	return dep, nil
}

// Remove deletes the edges between predecessor and successor. A nil
// depType removes every type. No matching edge is ErrDependencyNotFound.
func (m *Manager) Remove(ctx context.Context, actor domain.Actor, workspaceID, predecessorID, successorID string,
	depType *constants.DependencyType,
) (removed []domain.Dependency, err error) {
	ctx, span := m.tracer.Start(ctx, "graph.Remove", trace.WithAttributes(
		attribute.String("taskflow.predecessor_id", predecessorID),
		attribute.String("taskflow.successor_id", successorID),
	))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, m.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if depType != nil && !depType.IsValid() {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrInvalidDependencyType, *depType)
	}

	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		removed, err = tx.DeleteDependencies(ctx, scope, predecessorID, successorID, depType)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			return fmt.Errorf("%w: %s -> %s", flowerrors.ErrDependencyNotFound, predecessorID, successorID)
		}
		return m.recordRemoved(ctx, tx, scope, actor, removed)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("workspace_id", scope.WorkspaceID).
		Str("predecessor_id", predecessorID).
		Str("successor_id", successorID).
		Int("removed", len(removed)).
		Msg("dependency removed")
	return removed, nil
}

// Detach removes every edge touching taskID inside the caller's
// transaction and records one dependency_removed per edge. The task
// service calls it when a task is deleted.
func (m *Manager) Detach(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor, taskID string) ([]domain.Dependency, error) {
	removed, err := tx.DeleteTaskDependencies(ctx, scope, taskID)
	if err != nil {
		return nil, err
	}
	if err := m.recordRemoved(ctx, tx, scope, actor, removed); err != nil {
		return nil, err
	}
	return removed, nil
}

func (m *Manager) recordRemoved(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor, removed []domain.Dependency) error {
	for i := range removed {
		if _, err := m.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			TaskID:  removed[i].SuccessorID,
			Type:    constants.ActivityDependencyRemoved,
			ActorID: actor.ID,
			Payload: edgePayload(&removed[i]),
		}); err != nil {
			return err
		}
	}
	return nil
}

// List returns the predecessors and successors of taskID. The two
// directions are read concurrently.
func (m *Manager) List(ctx context.Context, actor domain.Actor, workspaceID, taskID string) (list *domain.DependencyList, err error) {
	ctx, span := m.tracer.Start(ctx, "graph.List", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, m.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.GetTask(ctx, scope, taskID, false); err != nil {
		return nil, err
	}

	list = &domain.DependencyList{TaskID: taskID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		preds, err := m.store.ListPredecessors(gctx, scope, taskID)
		list.Predecessors = preds
		return err
	})
	g.Go(func() error {
		succs, err := m.store.ListSuccessors(gctx, scope, taskID)
		list.Successors = succs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}

func missingIDs(found []*domain.Task, ids ...string) []string {
	have := make(map[string]struct{}, len(found))
	for _, t := range found {
		have[t.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func edgePayload(d *domain.Dependency) map[string]any {
	return map[string]any{
		"dependency_id":  d.ID,
		"predecessor_id": d.PredecessorID,
		"successor_id":   d.SuccessorID,
		"type":           string(d.Type),
	}
}

package task

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/tracing"
	"github.com/mrz1836/taskflow/internal/workflow"
)

// LimitReader resolves the WIP ceilings of a project through the caller's
// transaction. *workflow.Resolver satisfies it.
type LimitReader interface {
	EffectiveLimits(ctx context.Context, q workflow.ConfigSource, scope domain.Scope, projectID string) (map[constants.TaskStatus]*int, error)
}

// unlimited is the LimitReader used when none is configured.
type unlimited struct{}

func (unlimited) EffectiveLimits(context.Context, workflow.ConfigSource, domain.Scope, string) (map[constants.TaskStatus]*int, error) {
	return workflow.Effective(nil, nil), nil
}

// WithLimitReader sets where Board reads ceilings from.
func WithLimitReader(r LimitReader) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.limits = r
		}
	}
}

// BoardSnapshot is a project's board read in one transaction. Counts come
// from the same count query admission control uses, so they hold even when
// Tasks is large.
type BoardSnapshot struct {
	ProjectID string
	Limits    map[constants.TaskStatus]*int
	Counts    map[constants.TaskStatus]int
	Tasks     []*domain.Task
}

// Board reads the ceilings, per-status occupancy and every live task of a
// project. Tasks are fetched in pages of constants.MaxListLimit.
func (s *Service) Board(ctx context.Context, actor domain.Actor, workspaceID, projectID string) (snap *BoardSnapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "task.Board", trace.WithAttributes(attribute.String("taskflow.project_id", projectID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}

	snap = &BoardSnapshot{ProjectID: projectID}
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if snap.Limits, err = s.limits.EffectiveLimits(ctx, tx, scope, projectID); err != nil {
			return err
		}
		if snap.Counts, err = tx.CountByStatus(ctx, scope, projectID); err != nil {
			return err
		}
		snap.Tasks, err = listAll(ctx, tx, scope, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func listAll(ctx context.Context, tx *store.Tx, scope domain.Scope, projectID string) ([]*domain.Task, error) {
	var all []*domain.Task
	for offset := 0; ; offset += constants.MaxListLimit {
		page, err := tx.ListTasks(ctx, scope, domain.TaskFilter{
			ProjectID: projectID,
			Limit:     constants.MaxListLimit,
			Offset:    offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < constants.MaxListLimit {
			return all, nil
		}
	}
}

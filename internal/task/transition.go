package task

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/tracing"
	"github.com/mrz1836/taskflow/internal/wip"
)

// Update applies a partial update. A status change is validated by the
// state machine and admitted by the WIP controller before anything is
// written; a same-status update never consults admission.
func (s *Service) Update(ctx context.Context, actor domain.Actor, workspaceID, taskID string, req UpdateRequest) (task *domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "task.Update", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.ScopeAttributes(scope.OrganizationID, scope.WorkspaceID)...)

	var (
		before   *domain.Task
		decision wip.Decision
	)
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetTask(ctx, scope, taskID, false)
		if err != nil {
			return err
		}
		before = current
		task, decision, err = s.apply(ctx, tx, scope, actor, current, req)
		return err
	})
	if err != nil {
		if before != nil {
			s.observeDenial(before.ProjectID, err)
		}
		return nil, err
	}

	s.afterMove(task.ProjectID, before.Status, task.Status, decision)
	if before.Status != task.Status {
		s.logger.Info().
			Str("task_id", task.ID).
			Str("from", string(before.Status)).
			Str("to", string(task.Status)).
			Bool("override", decision.OverrideUsed).
			Msg("task moved")
	}
	return task, nil
}

// Move changes the column and/or rank of a task. Moving to the current
// status with a rank is a reorder.
func (s *Service) Move(ctx context.Context, actor domain.Actor, workspaceID, taskID string, req MoveRequest) (*domain.Task, error) {
	status := req.Status
	return s.Update(ctx, actor, workspaceID, taskID, UpdateRequest{
		Status:   &status,
		Rank:     req.Rank,
		Override: req.Override,
		Reason:   req.Reason,
	})
}

// apply computes the next state of current, admits a status change, writes
// the row and records the matching activities.
func (s *Service) apply(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor,
	current *domain.Task, req UpdateRequest,
) (*domain.Task, wip.Decision, error) {
	now := s.clock.Now().UTC()
	next := current.Clone()

	changed, err := applyFields(next, req)
	if err != nil {
		return nil, wip.Decision{}, err
	}

	var decision wip.Decision
	statusChanged := false
	if req.Status != nil {
		to := *req.Status
		if err := CheckTransition(current.Status, to); err != nil {
			return nil, wip.Decision{}, err
		}
		if to != current.Status {
			decision, err = s.admitter.Admit(ctx, tx, wip.Request{
				Scope:     scope,
				ProjectID: current.ProjectID,
				TaskID:    current.ID,
				From:      current.Status,
				To:        to,
				Actor:     actor,
				Override:  req.Override,
				Reason:    req.Reason,
			})
			if err != nil {
				return nil, wip.Decision{}, err
			}
			if err := Transition(ctx, next, to, now); err != nil {
				return nil, wip.Decision{}, err
			}
			statusChanged = true

			if req.Rank == nil {
				if next.Rank, err = bottomRank(ctx, tx, scope, next.ProjectID, to); err != nil {
					return nil, wip.Decision{}, err
				}
			}
		}
	}

	assigned := !sameText(current.AssigneeID, next.AssigneeID)
	if !statusChanged && len(changed) == 0 && !assigned {
		return current, decision, nil
	}

	next.UpdatedAt = now
	if err := tx.UpdateTask(ctx, next); err != nil {
		return nil, wip.Decision{}, err
	}

	if statusChanged {
		if err := s.record(ctx, tx, scope, actor, next.ID, constants.ActivityStatusChanged, map[string]any{
			"from": string(current.Status),
			"to":   string(next.Status),
		}); err != nil {
			return nil, wip.Decision{}, err
		}
	}
	if assigned {
		if err := s.record(ctx, tx, scope, actor, next.ID, constants.ActivityTaskAssigned, map[string]any{
			"from": textValue(current.AssigneeID),
			"to":   textValue(next.AssigneeID),
		}); err != nil {
			return nil, wip.Decision{}, err
		}
	}
	if len(changed) > 0 {
		if err := s.record(ctx, tx, scope, actor, next.ID, constants.ActivityTaskUpdated, map[string]any{
			"fields": changed,
		}); err != nil {
			return nil, wip.Decision{}, err
		}
	}
	if err := s.recordOverride(ctx, tx, scope, actor, next.ProjectID, next.ID, next.Status,
		decision, req.Reason, []string{next.ID}); err != nil {
		return nil, wip.Decision{}, err
	}
	return next, decision, nil
}

// applyFields copies the non-status fields of req onto t and returns the
// names of the fields that actually changed. Assignment is reported separately.
func applyFields(t *domain.Task, req UpdateRequest) ([]string, error) {
	var changed []string
	mark := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "title cannot be blank")
		}
		mark("title", title != t.Title)
		t.Title = title
	}
	if req.Description != nil {
		v := optionalText(req.Description)
		mark("description", !sameText(t.Description, v))
		t.Description = v
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, fmt.Errorf("%w: priority %q", flowerrors.ErrInvalidArgument, *req.Priority)
		}
		mark("priority", *req.Priority != t.Priority)
		t.Priority = *req.Priority
	}
	if req.Type != nil {
		if !req.Type.IsValid() {
			return nil, fmt.Errorf("%w: type %q", flowerrors.ErrInvalidArgument, *req.Type)
		}
		mark("type", *req.Type != t.Type)
		t.Type = *req.Type
	}
	if req.AssigneeID != nil {
		t.AssigneeID = optionalText(req.AssigneeID)
	}
	if req.ReporterID != nil {
		v := optionalText(req.ReporterID)
		mark("reporter_id", !sameText(t.ReporterID, v))
		t.ReporterID = v
	}
	if req.StartDate != nil {
		v := optionalDate(req.StartDate)
		mark("start_date", !sameDate(t.StartDate, v))
		t.StartDate = v
	}
	if req.DueDate != nil {
		v := optionalDate(req.DueDate)
		mark("due_date", !sameDate(t.DueDate, v))
		t.DueDate = v
	}
	if req.Tags != nil {
		v := normalizeTags(*req.Tags)
		mark("tags", !slices.Equal(t.Tags, v))
		t.Tags = v
	}
	if req.Rank != nil {
		mark("rank", *req.Rank != t.Rank)
		t.Rank = *req.Rank
	}
	return changed, nil
}

// BulkUpdateStatus moves every listed task into one status. The batch is
// all-or-nothing: an unknown task, an illegal transition or a denied
// project ceiling leaves every task untouched. Tasks already in the target
// status are returned unchanged and do not count as movers.
func (s *Service) BulkUpdateStatus(ctx context.Context, actor domain.Actor, workspaceID string, req BulkStatusRequest) (tasks []*domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "task.BulkUpdateStatus", trace.WithAttributes(
		attribute.String("taskflow.status", string(req.Status)),
		attribute.Int("taskflow.batch_size", len(req.TaskIDs)),
	))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.ScopeAttributes(scope.OrganizationID, scope.WorkspaceID)...)

	ids := dedupe(req.TaskIDs)
	if len(ids) == 0 {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "no tasks given")
	}
	to := req.Status
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrInvalidStatus, to)
	}

	type move struct {
		from     constants.TaskStatus
		project  string
		decision wip.Decision
	}
	var moves []move
	deniedProject := ""

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		found, err := tx.GetTasks(ctx, scope, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.Task, len(found))
		for _, t := range found {
			byID[t.ID] = t
		}
		var missing []string
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", flowerrors.ErrTaskNotFound, missing)
		}

		movers := make(map[string][]string)
		for _, id := range ids {
			t := byID[id]
			if err := CheckTransition(t.Status, to); err != nil {
				return fmt.Errorf("task %s: %w", id, err)
			}
			if t.Status != to {
				movers[t.ProjectID] = append(movers[t.ProjectID], id)
			}
		}

		projects := make([]string, 0, len(movers))
		for p := range movers {
			projects = append(projects, p)
		}
		slices.Sort(projects)

		decisions := make(map[string]wip.Decision, len(projects))
		for _, p := range projects {
			d, err := s.admitter.AdmitBulk(ctx, tx, wip.BulkRequest{
				Scope:     scope,
				ProjectID: p,
				TaskIDs:   movers[p],
				To:        to,
				Actor:     actor,
				Override:  req.Override,
				Reason:    req.Reason,
			})
			if err != nil {
				deniedProject = p
				return err
			}
			decisions[p] = d
		}

		now := s.clock.Now().UTC()
		ranks := make(map[string]float64, len(projects))
		for _, p := range projects {
			if ranks[p], err = bottomRank(ctx, tx, scope, p, to); err != nil {
				return err
			}
		}

		tasks = make([]*domain.Task, 0, len(ids))
		for _, id := range ids {
			current := byID[id]
			if current.Status == to {
				tasks = append(tasks, current)
				continue
			}
			next := current.Clone()
			if err := Transition(ctx, next, to, now); err != nil {
				return err
			}
			next.Rank = ranks[next.ProjectID]
			ranks[next.ProjectID] += constants.RankStep
			if err := tx.UpdateTask(ctx, next); err != nil {
				return err
			}
			if err := s.record(ctx, tx, scope, actor, id, constants.ActivityStatusChanged, map[string]any{
				"from": string(current.Status),
				"to":   string(to),
				"bulk": true,
			}); err != nil {
				return err
			}
			moves = append(moves, move{from: current.Status, project: next.ProjectID, decision: decisions[next.ProjectID]})
			tasks = append(tasks, next)
		}

		for _, p := range projects {
			if err := s.recordOverride(ctx, tx, scope, actor, p, "", to, decisions[p], req.Reason, movers[p]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.observeDenial(deniedProject, err)
		return nil, err
	}

	overridden := make(map[string]bool)
	for _, m := range moves {
		s.metrics.TaskMoved(m.project, m.from, to)
		if m.decision.OverrideUsed && !overridden[m.project] {
			overridden[m.project] = true
			s.metrics.OverrideUsed(m.project, to)
		}
	}
	if len(moves) > 0 {
		s.notifier.NotifyStateChange(moves[0].from, to)
	}

	s.logger.Info().
		Str("status", string(to)).
		Int("requested", len(ids)).
		Int("moved", len(moves)).
		Msg("bulk status update")
	return tasks, nil
}

func (s *Service) record(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor,
	taskID string, typ constants.ActivityType, payload map[string]any,
) error {
	_, err := s.recorder.Record(ctx, tx, activity.Entry{
		Scope:   scope,
		TaskID:  taskID,
		Type:    typ,
		ActorID: actor.ID,
		Payload: payload,
	})
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func textValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

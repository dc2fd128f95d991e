// Package task provides task lifecycle management for taskflow.
//
// This file implements the Service, which orchestrates create, update, move,
// bulk transition and delete. Every mutation runs in one store transaction:
// the state machine validates, admission control decides, the row is
// written and the activity trail appended, or none of it is visible.
//
// Import rules:
//   - CAN import: internal/access, internal/activity, internal/store, internal/wip, std lib
//   - CAN import: internal/workflow (ceilings for Board)
//   - MUST NOT import: internal/cli, internal/tui, internal/graph
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/tracing"
	"github.com/mrz1836/taskflow/internal/wip"
)

// Admitter decides whether tasks may enter a status. *wip.Controller
// satisfies it.
type Admitter interface {
	Admit(ctx context.Context, q wip.Queries, req wip.Request) (wip.Decision, error)
	AdmitBulk(ctx context.Context, q wip.Queries, req wip.BulkRequest) (wip.Decision, error)
}

// Detacher removes the dependency edges of a task inside a transaction.
// *graph.Manager satisfies it.
type Detacher interface {
	Detach(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor, taskID string) ([]domain.Dependency, error)
}

// Service is the task lifecycle entry point.
type Service struct {
	store    *store.Store
	gate     access.Gate
	admitter Admitter
	detacher Detacher
	limits   LimitReader
	recorder *activity.Recorder
	clock    clock.Clock
	tracer   trace.Tracer
	metrics  Metrics
	notifier *StateChangeNotifier
	logger   zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = c
	}
}

// WithTracerProvider sets the span source.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) {
		s.tracer = tracing.Tracer(tp)
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNotifier sets the state change notifier.
// The notifier emits a terminal bell when a task enters an attention status.
func WithNotifier(n *StateChangeNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates a task Service.
func NewService(st *store.Store, gate access.Gate, admitter Admitter, detacher Detacher,
	recorder *activity.Recorder, logger zerolog.Logger, opts ...ServiceOption,
) *Service {
	s := &Service{
		store:    st,
		gate:     gate,
		admitter: admitter,
		detacher: detacher,
		limits:   unlimited{},
		recorder: recorder,
		clock:    clock.RealClock{},
		tracer:   tracing.Tracer(nil),
		metrics:  NoopMetrics{},
		logger:   logger.With().Str("component", "task").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a new task. Zero values take defaults: status
// backlog, priority medium, type task, reporter the actor, rank the bottom
// of the column.
type CreateRequest struct {
	ProjectID   string               `json:"project_id"`
	Title       string               `json:"title"`
	Description *string              `json:"description,omitempty"`
	Status      constants.TaskStatus `json:"status,omitempty"`
	Priority    constants.Priority   `json:"priority,omitempty"`
	Type        constants.TaskType   `json:"type,omitempty"`
	AssigneeID  *string              `json:"assignee_id,omitempty"`
	ReporterID  *string              `json:"reporter_id,omitempty"`
	StartDate   *time.Time           `json:"start_date,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Rank        *float64             `json:"rank,omitempty"`

	// Override asks to bypass a reached WIP ceiling; only administrators may.
	Override bool   `json:"override,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// UpdateRequest is a partial update. Nil fields are left alone; an empty
// string clears an optional text field and a zero time clears a date.
type UpdateRequest struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Status      *constants.TaskStatus `json:"status,omitempty"`
	Priority    *constants.Priority   `json:"priority,omitempty"`
	Type        *constants.TaskType   `json:"type,omitempty"`
	AssigneeID  *string               `json:"assignee_id,omitempty"`
	ReporterID  *string               `json:"reporter_id,omitempty"`
	StartDate   *time.Time            `json:"start_date,omitempty"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	Tags        *[]string             `json:"tags,omitempty"`
	Rank        *float64              `json:"rank,omitempty"`

	Override bool   `json:"override,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// MoveRequest changes the column and/or rank of a task.
type MoveRequest struct {
	Status   constants.TaskStatus `json:"status"`
	Rank     *float64             `json:"rank,omitempty"`
	Override bool                 `json:"override,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// BulkStatusRequest moves a batch of tasks into one status.
type BulkStatusRequest struct {
	TaskIDs  []string             `json:"task_ids"`
	Status   constants.TaskStatus `json:"status"`
	Override bool                 `json:"override,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// DestroyResult reports what a hard delete removed.
type DestroyResult struct {
	TaskID       string `json:"task_id"`
	Dependencies int    `json:"dependencies"`
	Comments     int64  `json:"comments"`
	Activities   int64  `json:"activities"`
}

// Create validates and inserts a new task. A non-exempt initial status goes
// through admission control like any other arrival.
func (s *Service) Create(ctx context.Context, actor domain.Actor, workspaceID string, req CreateRequest) (task *domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "task.Create", trace.WithAttributes(
		attribute.String("taskflow.project_id", req.ProjectID),
	))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.ScopeAttributes(scope.OrganizationID, scope.WorkspaceID)...)

	task, err = s.newTask(scope, actor, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("taskflow.task_id", task.ID))

	var decision wip.Decision
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		decision, err = s.admitter.Admit(ctx, tx, wip.Request{
			Scope:     scope,
			ProjectID: task.ProjectID,
			TaskID:    task.ID,
			To:        task.Status,
			Actor:     actor,
			Override:  req.Override,
			Reason:    req.Reason,
		})
		if err != nil {
			return err
		}

		if req.Rank == nil {
			if task.Rank, err = bottomRank(ctx, tx, scope, task.ProjectID, task.Status); err != nil {
				return err
			}
		}
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}

		if _, err := s.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			TaskID:  task.ID,
			Type:    constants.ActivityTaskCreated,
			ActorID: actor.ID,
			Payload: map[string]any{
				"title":  task.Title,
				"status": string(task.Status),
			},
		}); err != nil {
			return err
		}
		return s.recordOverride(ctx, tx, scope, actor, task.ProjectID, task.ID, task.Status, decision, req.Reason, []string{task.ID})
	})
	if err != nil {
		s.observeDenial(task.ProjectID, err)
		return nil, err
	}

	s.afterMove(task.ProjectID, "", task.Status, decision)
	s.logger.Info().
		Str("task_id", task.ID).
		Str("project_id", task.ProjectID).
		Str("status", string(task.Status)).
		Msg("task created")
	return task, nil
}

func (s *Service) newTask(scope domain.Scope, actor domain.Actor, req CreateRequest) (*domain.Task, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "project is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "title is required")
	}

	status := req.Status
	if status == "" {
		status = constants.TaskStatusBacklog
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrInvalidStatus, status)
	}
	priority := req.Priority
	if priority == "" {
		priority = constants.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: priority %q", flowerrors.ErrInvalidArgument, priority)
	}
	taskType := req.Type
	if taskType == "" {
		taskType = constants.TaskTypeTask
	}
	if !taskType.IsValid() {
		return nil, fmt.Errorf("%w: type %q", flowerrors.ErrInvalidArgument, taskType)
	}

	reporter := req.ReporterID
	if reporter == nil && actor.ID != "" {
		id := actor.ID
		reporter = &id
	}

	now := s.clock.Now().UTC()
	task := &domain.Task{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: scope.OrganizationID,
		WorkspaceID:    scope.WorkspaceID,
		ProjectID:      projectID,
		Title:          title,
		Description:    optionalText(req.Description),
		Status:         status,
		Priority:       priority,
		Type:           taskType,
		AssigneeID:     optionalText(req.AssigneeID),
		ReporterID:     optionalText(reporter),
		StartDate:      optionalDate(req.StartDate),
		DueDate:        optionalDate(req.DueDate),
		Tags:           normalizeTags(req.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Rank != nil {
		task.Rank = *req.Rank
	}
	if status == constants.TaskStatusDone {
		completed := now
		task.CompletedAt = &completed
	}
	return task, nil
}

// Get returns one task. Soft-deleted tasks are returned only with includeDeleted.
func (s *Service) Get(ctx context.Context, actor domain.Actor, workspaceID, taskID string, includeDeleted bool) (task *domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "task.Get", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	return s.store.GetTask(ctx, scope, taskID, includeDeleted)
}

// List returns the tasks matching filter in board order.
func (s *Service) List(ctx context.Context, actor domain.Actor, workspaceID string, filter domain.TaskFilter) (tasks []*domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "task.List")
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrInvalidStatus, filter.Status)
	}
	return s.store.ListTasks(ctx, scope, filter)
}

// Delete soft-deletes a task: the row keeps its comments and activity but
// leaves the board, its occupancy counts and the dependency graph.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, workspaceID, taskID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "task.Delete", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return err
	}

	var removed []domain.Dependency
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetTask(ctx, scope, taskID, false); err != nil {
			return err
		}
		removed, err = s.detacher.Detach(ctx, tx, scope, actor, taskID)
		if err != nil {
			return err
		}
		if err := tx.SoftDeleteTask(ctx, scope, taskID, s.clock.Now()); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			TaskID:  taskID,
			Type:    constants.ActivityTaskDeleted,
			ActorID: actor.ID,
			Payload: map[string]any{"dependencies_removed": len(removed)},
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("task_id", taskID).Int("dependencies_removed", len(removed)).Msg("task deleted")
	return nil
}

// Destroy permanently removes a task, live or soft-deleted, together with
// its dependency edges, comments and activity rows. A workspace-level
// task_deleted record survives it.
func (s *Service) Destroy(ctx context.Context, actor domain.Actor, workspaceID, taskID string) (result *DestroyResult, err error) {
	ctx, span := s.tracer.Start(ctx, "task.Destroy", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}

	result = &DestroyResult{TaskID: taskID}
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, scope, taskID, true)
		if err != nil {
			return err
		}
		removed, err := s.detacher.Detach(ctx, tx, scope, actor, taskID)
		if err != nil {
			return err
		}
		result.Dependencies = len(removed)

		if result.Comments, err = tx.DeleteTaskComments(ctx, scope, taskID); err != nil {
			return err
		}
		if result.Activities, err = tx.DeleteTaskActivity(ctx, scope, taskID); err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, scope, taskID); err != nil {
			return err
		}

		_, err = s.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			Type:    constants.ActivityTaskDeleted,
			ActorID: actor.ID,
			Payload: map[string]any{
				activity.PayloadProjectKey: task.ProjectID,
				"task_id":                  taskID,
				"title":                    task.Title,
				"hard":                     true,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Int("dependencies_removed", result.Dependencies).
		Int64("comments_removed", result.Comments).
		Int64("activities_removed", result.Activities).
		Msg("task destroyed")
	return result, nil
}

// AddComment attaches a comment to a live task.
func (s *Service) AddComment(ctx context.Context, actor domain.Actor, workspaceID, taskID, body string) (comment *domain.Comment, err error) {
	ctx, span := s.tracer.Start(ctx, "task.AddComment", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "comment body is required")
	}

	comment = &domain.Comment{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: scope.OrganizationID,
		WorkspaceID:    scope.WorkspaceID,
		TaskID:         taskID,
		AuthorID:       actor.ID,
		Body:           body,
		CreatedAt:      s.clock.Now().UTC(),
	}
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetTask(ctx, scope, taskID, false); err != nil {
			return err
		}
		if err := tx.InsertComment(ctx, comment); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			TaskID:  taskID,
			Type:    constants.ActivityCommentAdded,
			ActorID: actor.ID,
			Payload: map[string]any{"comment_id": comment.ID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comments of a task, oldest first. Comments of a
// soft-deleted task stay readable.
func (s *Service) ListComments(ctx context.Context, actor domain.Actor, workspaceID, taskID string, limit, offset int) (comments []domain.Comment, err error) {
	ctx, span := s.tracer.Start(ctx, "task.ListComments", trace.WithAttributes(attribute.String("taskflow.task_id", taskID)))
	defer func() { tracing.End(span, err) }()

	scope, err := access.Authorize(ctx, s.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTask(ctx, scope, taskID, true); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, scope, taskID, limit, offset)
}

// recordOverride appends wip_override_used when the decision bypassed a ceiling.
// An empty taskID makes the record workspace-level with the project in the payload.
func (s *Service) recordOverride(ctx context.Context, tx *store.Tx, scope domain.Scope, actor domain.Actor,
	projectID, taskID string, status constants.TaskStatus, d wip.Decision, reason string, taskIDs []string,
) error {
	if !d.OverrideUsed {
		return nil
	}
	payload := wip.OverridePayload(status, d, reason, taskIDs)
	payload[activity.PayloadProjectKey] = projectID
	_, err := s.recorder.Record(ctx, tx, activity.Entry{
		Scope:   scope,
		TaskID:  taskID,
		Type:    constants.ActivityWIPOverrideUsed,
		ActorID: actor.ID,
		Payload: payload,
	})
	return err
}

// afterMove reports a committed arrival in to.
func (s *Service) afterMove(projectID string, from, to constants.TaskStatus, d wip.Decision) {
	if from == to {
		return
	}
	s.metrics.TaskMoved(projectID, from, to)
	if d.OverrideUsed {
		s.metrics.OverrideUsed(projectID, to)
	}
	s.notifier.NotifyStateChange(from, to)
}

// observeDenial reports an admission denial to metrics.
func (s *Service) observeDenial(projectID string, err error) {
	if w, ok := flowerrors.AsWIPLimit(err); ok {
		s.metrics.AdmissionDenied(projectID, constants.TaskStatus(w.Status), w.Forbidden)
	}
}

// bottomRank places a task after the last one of its column.
func bottomRank(ctx context.Context, tx *store.Tx, scope domain.Scope, projectID string, status constants.TaskStatus) (float64, error) {
	highest, ok, err := tx.MaxRank(ctx, scope, projectID, status)
	if err != nil {
		return 0, err
	}
	if !ok {
		return constants.RankStep, nil
	}
	return highest + constants.RankStep, nil
}

func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Package activity implements the append-only audit log of the workflow engine.
//
// Entries are written inside the caller's transaction so a lifecycle change
// and its audit row commit together. An entry whose project cannot be
// resolved is skipped with a warning instead of failing the mutation.
package activity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// PayloadProjectKey is the payload field consulted when the entry has no
// resolvable task.
const PayloadProjectKey = "project_id"

// Writer is the slice of the store the recorder writes through.
// *store.Tx satisfies it.
type Writer interface {
	TaskProject(ctx context.Context, scope domain.Scope, taskID string) (string, bool, error)
	InsertActivity(ctx context.Context, a *domain.Activity) error
}

// Reader lists stored activity. *store.Store satisfies it.
type Reader interface {
	ListActivity(ctx context.Context, scope domain.Scope, filter domain.ActivityFilter) ([]domain.Activity, error)
}

// Entry describes one event to record.
type Entry struct {
	Scope   domain.Scope
	TaskID  string // empty for workspace-level events
	Type    constants.ActivityType
	ActorID string
	Payload map[string]any
}

// Recorder appends activity rows and lists them back.
type Recorder struct {
	reader Reader
	gate   access.Gate
	clock  clock.Clock
	logger zerolog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the time source.
func WithClock(c clock.Clock) RecorderOption {
	return func(r *Recorder) {
		r.clock = c
	}
}

// NewRecorder creates a Recorder. reader and gate are only needed by List.
func NewRecorder(reader Reader, gate access.Gate, logger zerolog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		reader: reader,
		gate:   gate,
		clock:  clock.RealClock{},
		logger: logger.With().Str("component", "activity").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends e through w. It reports whether a row was written; a
// false result with a nil error means the entry had no resolvable project
// and was skipped.
func (r *Recorder) Record(ctx context.Context, w Writer, e Entry) (bool, error) {
	if !e.Type.IsValid() {
		return false, flowerrors.Wrapf(flowerrors.ErrInvalidArgument, "activity type %q", e.Type)
	}

	project, err := r.resolveProject(ctx, w, e)
	if err != nil {
		return false, err
	}
	if project == "" {
		r.logger.Warn().
			Str("workspace_id", e.Scope.WorkspaceID).
			Str("task_id", e.TaskID).
			Str("type", e.Type.String()).
			Msg("activity skipped: no resolvable project")
		return false, nil
	}

	a := &domain.Activity{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: e.Scope.OrganizationID,
		WorkspaceID:    e.Scope.WorkspaceID,
		ProjectID:      &project,
		Type:           e.Type,
		ActorID:        e.ActorID,
		Payload:        e.Payload,
		CreatedAt:      r.clock.Now().UTC(),
	}
	if e.TaskID != "" {
		taskID := e.TaskID
		a.TaskID = &taskID
	}

	if err := w.InsertActivity(ctx, a); err != nil {
		return false, flowerrors.Wrapf(err, "record %s", e.Type)
	}
	r.logger.Debug().Str("activity_id", a.ID).Str("type", e.Type.String()).Msg("activity recorded")
	return true, nil
}

// resolveProject prefers the task's project and falls back to the payload.
func (r *Recorder) resolveProject(ctx context.Context, w Writer, e Entry) (string, error) {
	if e.TaskID != "" {
		project, ok, err := w.TaskProject(ctx, e.Scope, e.TaskID)
		if err != nil {
			return "", err
		}
		if ok && project != "" {
			return project, nil
		}
	}
	if v, ok := e.Payload[PayloadProjectKey].(string); ok {
		return strings.TrimSpace(v), nil
	}
	return "", nil
}

// List returns workspace or task activity, newest first.
func (r *Recorder) List(ctx context.Context, actor domain.Actor, workspaceID string, filter domain.ActivityFilter) ([]domain.Activity, error) {
	scope, err := access.Authorize(ctx, r.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, flowerrors.Wrapf(flowerrors.ErrInvalidArgument, "activity type %q", filter.Type)
	}
	return r.reader.ListActivity(ctx, scope, filter)
}

// Package wip implements WIP admission control for board status changes.
//
// The controller answers one question: may this task (or batch of tasks)
// enter the target status given the project's ceiling and current
// occupancy? It counts through the caller's transaction and keeps no state
// between calls. Two concurrent movers can both observe a count below the
// ceiling and both be admitted; the guarantee is best-effort.
package wip

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/workflow"
)

// Queries is what admission reads from the store. *store.Tx satisfies it.
type Queries interface {
	workflow.ConfigSource
	CountInStatus(ctx context.Context, scope domain.Scope, projectID string, status constants.TaskStatus, exclude []string) (int, error)
}

// LimitResolver resolves the effective ceiling of a status.
// *workflow.Resolver satisfies it.
type LimitResolver interface {
	EffectiveLimit(ctx context.Context, q workflow.ConfigSource, scope domain.Scope, projectID string, status constants.TaskStatus) (*int, error)
}

// Request is a single proposed status change.
type Request struct {
	Scope     domain.Scope
	ProjectID string
	TaskID    string
	From      constants.TaskStatus
	To        constants.TaskStatus
	Actor     domain.Actor
	Override  bool
	Reason    string
}

// BulkRequest is a batch of tasks of one project entering the same status.
type BulkRequest struct {
	Scope     domain.Scope
	ProjectID string
	TaskIDs   []string
	To        constants.TaskStatus
	Actor     domain.Actor
	Override  bool
	Reason    string
}

// Decision is the outcome of an admitted request.
type Decision struct {
	// Counted is set when occupancy was queried.
	Counted bool

	// Limit is the effective ceiling, nil when none applies.
	Limit *int

	// Current is the occupancy the decision was based on.
	Current int

	// OverrideUsed is set when an administrator bypassed a reached ceiling.
	// The caller must record a wip_override_used activity.
	OverrideUsed bool
}

// Controller decides admission.
type Controller struct {
	limits LimitResolver
	logger zerolog.Logger
}

// NewController creates a Controller.
func NewController(limits LimitResolver, logger zerolog.Logger) *Controller {
	return &Controller{
		limits: limits,
		logger: logger.With().Str("component", "wip").Logger(),
	}
}

// IsAdministrative reports whether role may override a WIP ceiling.
func IsAdministrative(role constants.Role) bool {
	switch role {
	case constants.RoleOwner, constants.RoleAdmin:
		return true
	case constants.RoleMember, constants.RoleViewer:
		return false
	default:
		return false
	}
}

// Admit decides a single move. A denial is returned as a
// *flowerrors.WIPLimitError.
func (c *Controller) Admit(ctx context.Context, q Queries, req Request) (Decision, error) {
	if req.To.IsExempt() {
		return Decision{}, nil
	}
	if req.From == req.To {
		return Decision{}, nil
	}

	limit, err := c.limits.EffectiveLimit(ctx, q, req.Scope, req.ProjectID, req.To)
	if err != nil {
		return Decision{}, err
	}
	if limit == nil {
		return Decision{}, nil
	}

	var exclude []string
	if req.TaskID != "" {
		exclude = []string{req.TaskID}
	}
	current, err := q.CountInStatus(ctx, req.Scope, req.ProjectID, req.To, exclude)
	if err != nil {
		return Decision{}, err
	}

	return c.decide(req.To, *limit, current, current < *limit, req.Actor, req.Override)
}

// AdmitBulk decides a batch. Post-move occupancy is the count without the
// moving tasks plus the batch size; if that exceeds the ceiling the whole
// batch is denied.
func (c *Controller) AdmitBulk(ctx context.Context, q Queries, req BulkRequest) (Decision, error) {
	if req.To.IsExempt() || len(req.TaskIDs) == 0 {
		return Decision{}, nil
	}

	limit, err := c.limits.EffectiveLimit(ctx, q, req.Scope, req.ProjectID, req.To)
	if err != nil {
		return Decision{}, err
	}
	if limit == nil {
		return Decision{}, nil
	}

	current, err := q.CountInStatus(ctx, req.Scope, req.ProjectID, req.To, req.TaskIDs)
	if err != nil {
		return Decision{}, err
	}

	return c.decide(req.To, *limit, current, current+len(req.TaskIDs) <= *limit, req.Actor, req.Override)
}

func (c *Controller) decide(status constants.TaskStatus, limit, current int, fits bool,
	actor domain.Actor, override bool,
) (Decision, error) {
	d := Decision{Counted: true, Limit: &limit, Current: current}
	if fits {
		return d, nil
	}

	if !override {
		return Decision{}, &flowerrors.WIPLimitError{Status: string(status), Limit: limit, Current: current}
	}
	if !IsAdministrative(actor.Role) {
		c.logger.Warn().
			Str("actor_id", actor.ID).
			Str("role", string(actor.Role)).
			Str("status", string(status)).
			Msg("wip override refused")
		return Decision{}, &flowerrors.WIPLimitError{Status: string(status), Limit: limit, Current: current, Forbidden: true}
	}

	c.logger.Info().
		Str("actor_id", actor.ID).
		Str("status", string(status)).
		Int("limit", limit).
		Int("current", current).
		Msg("wip override used")
	d.OverrideUsed = true
	return d, nil
}

// OverridePayload is the activity payload documenting an override.
func OverridePayload(status constants.TaskStatus, d Decision, reason string, taskIDs []string) map[string]any {
	p := map[string]any{
		"status":   string(status),
		"current":  d.Current,
		"reason":   reason,
		"task_ids": taskIDs,
	}
	if d.Limit != nil {
		p["limit"] = *d.Limit
	}
	return p
}

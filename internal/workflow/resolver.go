package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/store"
)

// ConfigSource reads a stored configuration row. Both *store.Store and
// *store.Tx satisfy it.
type ConfigSource interface {
	GetWorkflowConfig(ctx context.Context, scope domain.Scope, projectID string) (*domain.WorkflowConfig, error)
}

// View is the read model of a project's configuration.
type View struct {
	ProjectID    string                        `json:"project_id"`
	Configured   bool                          `json:"configured"`
	DefaultLimit *int                          `json:"default_wip_limit"`
	StatusLimits map[constants.TaskStatus]int  `json:"status_wip_limits"`
	Effective    map[constants.TaskStatus]*int `json:"effective_wip_limits"`
	UpdatedBy    string                        `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time                    `json:"updated_at,omitempty"`
}

// Config holds resolver settings.
type Config struct {
	// MaxLimit is the highest accepted ceiling, never above constants.MaxWIPLimit.
	MaxLimit int
}

// Resolver serves configuration reads and writes.
type Resolver struct {
	store    *store.Store
	gate     access.Gate
	recorder *activity.Recorder
	cache    Cache
	clock    clock.Clock
	config   Config
	logger   zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache enables read caching.
func WithCache(c Cache) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) ResolverOption {
	return func(r *Resolver) {
		r.clock = c
	}
}

// NewResolver creates a Resolver.
func NewResolver(st *store.Store, gate access.Gate, recorder *activity.Recorder, cfg Config, logger zerolog.Logger, opts ...ResolverOption) *Resolver {
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > constants.MaxWIPLimit {
		cfg.MaxLimit = constants.MaxWIPLimit
	}
	r := &Resolver{
		store:    st,
		gate:     gate,
		recorder: recorder,
		cache:    noCache{},
		clock:    clock.RealClock{},
		config:   cfg,
		logger:   logger.With().Str("component", "workflow").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the configuration of a project with its derived effective
// ceilings. A project without a stored row yields the all-defaults view.
func (r *Resolver) Get(ctx context.Context, actor domain.Actor, workspaceID, projectID string) (*View, error) {
	scope, err := access.Authorize(ctx, r.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "project id")
	}

	if cfg, ok := r.cache.Load(ctx, scope, projectID); ok {
		return newView(projectID, cfg), nil
	}

	cfg, err := load(ctx, r.store, scope, projectID)
	if err != nil {
		return nil, err
	}
	r.cache.Save(ctx, scope, projectID, cfg)
	return newView(projectID, cfg), nil
}

// Update validates u and replaces the project's configuration. The write
// and its workflow_updated activity commit together.
func (r *Resolver) Update(ctx context.Context, actor domain.Actor, workspaceID, projectID string, u Update) (*View, error) {
	scope, err := access.Authorize(ctx, r.gate, workspaceID, actor)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, flowerrors.Wrap(flowerrors.ErrEmptyValue, "project id")
	}

	limits, err := Validate(u, r.config.MaxLimit)
	if err != nil {
		return nil, err
	}

	cfg := &domain.WorkflowConfig{
		OrganizationID: scope.OrganizationID,
		WorkspaceID:    scope.WorkspaceID,
		ProjectID:      projectID,
		DefaultLimit:   u.DefaultLimit,
		StatusLimits:   limits,
		UpdatedBy:      actor.ID,
		UpdatedAt:      r.clock.Now().UTC(),
	}

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		previous, err := load(ctx, tx, scope, projectID)
		if err != nil {
			return err
		}
		if err := tx.UpsertWorkflowConfig(ctx, cfg); err != nil {
			return err
		}
		_, err = r.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			Type:    constants.ActivityWorkflowUpdated,
			ActorID: actor.ID,
			Payload: updatePayload(projectID, previous, cfg),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	r.cache.Evict(ctx, scope, projectID)
	r.logger.Info().
		Str("workspace_id", scope.WorkspaceID).
		Str("project_id", projectID).
		Str("actor_id", actor.ID).
		Msg("workflow configuration updated")
	return newView(projectID, cfg), nil
}

// Reset deletes the project's configuration, returning it to defaults.
func (r *Resolver) Reset(ctx context.Context, actor domain.Actor, workspaceID, projectID string) error {
	scope, err := access.Authorize(ctx, r.gate, workspaceID, actor)
	if err != nil {
		return err
	}

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.DeleteWorkflowConfig(ctx, scope, projectID); err != nil {
			return err
		}
		_, err := r.recorder.Record(ctx, tx, activity.Entry{
			Scope:   scope,
			Type:    constants.ActivityWorkflowUpdated,
			ActorID: actor.ID,
			Payload: map[string]any{activity.PayloadProjectKey: projectID, "reset": true},
		})
		return err
	})
	if err != nil {
		return err
	}

	r.cache.Evict(ctx, scope, projectID)
	return nil
}

// EffectiveLimit resolves the ceiling of status for a project through q,
// normally the caller's transaction. Nil means no ceiling.
func (r *Resolver) EffectiveLimit(ctx context.Context, q ConfigSource, scope domain.Scope, projectID string,
	status constants.TaskStatus,
) (*int, error) {
	if status.IsExempt() {
		return nil, nil
	}
	cfg, err := load(ctx, q, scope, projectID)
	if err != nil || cfg == nil {
		return nil, err
	}
	return limitFor(status, cfg.DefaultLimit, cfg.StatusLimits), nil
}

// EffectiveLimits resolves every limitable status at once.
func (r *Resolver) EffectiveLimits(ctx context.Context, q ConfigSource, scope domain.Scope, projectID string) (map[constants.TaskStatus]*int, error) {
	cfg, err := load(ctx, q, scope, projectID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Effective(nil, nil), nil
	}
	return Effective(cfg.DefaultLimit, cfg.StatusLimits), nil
}

// load returns the stored row, or nil when the project runs on defaults.
func load(ctx context.Context, q ConfigSource, scope domain.Scope, projectID string) (*domain.WorkflowConfig, error) {
	cfg, err := q.GetWorkflowConfig(ctx, scope, projectID)
	if errors.Is(err, flowerrors.ErrWorkflowConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}

func newView(projectID string, cfg *domain.WorkflowConfig) *View {
	v := &View{ProjectID: projectID, StatusLimits: map[constants.TaskStatus]int{}}
	if cfg != nil {
		v.Configured = true
		v.DefaultLimit = cfg.DefaultLimit
		if cfg.StatusLimits != nil {
			v.StatusLimits = cfg.StatusLimits
		}
		v.UpdatedBy = cfg.UpdatedBy
		at := cfg.UpdatedAt
		v.UpdatedAt = &at
	}
	v.Effective = Effective(v.DefaultLimit, v.StatusLimits)
	return v
}

func updatePayload(projectID string, previous, next *domain.WorkflowConfig) map[string]any {
	p := map[string]any{
		activity.PayloadProjectKey: projectID,
		"default_wip_limit":        next.DefaultLimit,
		"status_wip_limits":        next.StatusLimits,
	}
	if previous != nil {
		p["previous_default_wip_limit"] = previous.DefaultLimit
		p["previous_status_wip_limits"] = previous.StatusLimits
	}
	return p
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// GetWorkflowConfig loads the stored configuration of a project.
// ErrWorkflowConfigNotFound means the project runs on defaults.
func (q *Queries) GetWorkflowConfig(ctx context.Context, scope domain.Scope, projectID string) (*domain.WorkflowConfig, error) {
	var (
		cfg    domain.WorkflowConfig
		def    sql.NullInt64
		limits string
	)
	err := q.queryRow(ctx, `SELECT organization_id, workspace_id, project_id,
		default_wip_limit, status_wip_limits, updated_by, updated_at
		FROM workflow_configs
		WHERE organization_id = ? AND workspace_id = ? AND project_id = ?`,
		scope.OrganizationID, scope.WorkspaceID, projectID,
	).Scan(&cfg.OrganizationID, &cfg.WorkspaceID, &cfg.ProjectID, &def, &limits, &cfg.UpdatedBy, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", flowerrors.ErrWorkflowConfigNotFound, projectID)
	}
	if err != nil {
		return nil, flowerrors.Wrapf(err, "get workflow config of %s", projectID)
	}

	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	if def.Valid {
		v := int(def.Int64)
		cfg.DefaultLimit = &v
	}
	if limits != "" {
		if err := json.Unmarshal([]byte(limits), &cfg.StatusLimits); err != nil {
			return nil, flowerrors.Wrapf(err, "decode status limits of %s", projectID)
		}
	}
	return &cfg, nil
}

// UpsertWorkflowConfig replaces the configuration row of a project.
func (q *Queries) UpsertWorkflowConfig(ctx context.Context, cfg *domain.WorkflowConfig) error {
	limits := cfg.StatusLimits
	if limits == nil {
		limits = map[constants.TaskStatus]int{}
	}
	encoded, err := json.Marshal(limits)
	if err != nil {
		return flowerrors.Wrap(err, "encode status limits")
	}

	var def sql.NullInt64
	if cfg.DefaultLimit != nil {
		def = sql.NullInt64{Int64: int64(*cfg.DefaultLimit), Valid: true}
	}

	_, err = q.exec(ctx, `INSERT INTO workflow_configs
		(organization_id, workspace_id, project_id, default_wip_limit, status_wip_limits, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, workspace_id, project_id) DO UPDATE SET
			default_wip_limit = excluded.default_wip_limit,
			status_wip_limits = excluded.status_wip_limits,
			updated_by        = excluded.updated_by,
			updated_at        = excluded.updated_at`,
		cfg.OrganizationID, cfg.WorkspaceID, cfg.ProjectID, def, string(encoded),
		cfg.UpdatedBy, cfg.UpdatedAt.UTC())
	return flowerrors.Wrapf(err, "upsert workflow config of %s", cfg.ProjectID)
}

// DeleteWorkflowConfig removes the configuration row, returning the project
// to defaults.
func (q *Queries) DeleteWorkflowConfig(ctx context.Context, scope domain.Scope, projectID string) error {
	res, err := q.exec(ctx, `DELETE FROM workflow_configs
		WHERE organization_id = ? AND workspace_id = ? AND project_id = ?`,
		scope.OrganizationID, scope.WorkspaceID, projectID)
	if err != nil {
		return flowerrors.Wrapf(err, "delete workflow config of %s", projectID)
	}
	return expectRow(res, flowerrors.ErrWorkflowConfigNotFound, projectID)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

const dependencyColumns = `id, organization_id, workspace_id, predecessor_id, successor_id, type, created_by, created_at`

func scanDependency(r rowScanner) (domain.Dependency, error) {
	var d domain.Dependency
	err := r.Scan(&d.ID, &d.OrganizationID, &d.WorkspaceID, &d.PredecessorID,
		&d.SuccessorID, &d.Type, &d.CreatedBy, &d.CreatedAt)
	d.CreatedAt = d.CreatedAt.UTC()
	return d, err
}

func collectDependencies(rows *sql.Rows) ([]domain.Dependency, error) {
	defer func() { _ = rows.Close() }()
	out := []domain.Dependency{}
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, flowerrors.Wrap(err, "scan dependency")
		}
		out = append(out, d)
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate dependencies")
}

// InsertDependency persists an edge. A duplicate (predecessor, successor, type)
// is reported as ErrDuplicateDependency.
func (q *Queries) InsertDependency(ctx context.Context, d *domain.Dependency) error {
	_, err := q.exec(ctx, `INSERT INTO dependencies (`+dependencyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrganizationID, d.WorkspaceID, d.PredecessorID, d.SuccessorID,
		string(d.Type), d.CreatedBy, d.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s -> %s (%s)", flowerrors.ErrDuplicateDependency,
				d.PredecessorID, d.SuccessorID, d.Type)
		}
		return flowerrors.Wrap(err, "insert dependency")
	}
	return nil
}

// DependencyExists reports whether the exact edge is already stored.
func (q *Queries) DependencyExists(ctx context.Context, scope domain.Scope, predecessorID, successorID string,
	depType constants.DependencyType,
) (bool, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM dependencies
		WHERE organization_id = ? AND workspace_id = ?
		AND predecessor_id = ? AND successor_id = ? AND type = ?`,
		scope.OrganizationID, scope.WorkspaceID, predecessorID, successorID, string(depType)).Scan(&n)
	if err != nil {
		return false, flowerrors.Wrap(err, "check dependency")
	}
	return n > 0, nil
}

// SuccessorIDs returns the distinct tasks that depend on taskID. This is the
// adjacency query of the cycle search.
func (q *Queries) SuccessorIDs(ctx context.Context, scope domain.Scope, taskID string) ([]string, error) {
	rows, err := q.query(ctx, `SELECT DISTINCT successor_id FROM dependencies
		WHERE organization_id = ? AND workspace_id = ? AND predecessor_id = ?
		ORDER BY successor_id`,
		scope.OrganizationID, scope.WorkspaceID, taskID)
	if err != nil {
		return nil, flowerrors.Wrapf(err, "successors of %s", taskID)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, flowerrors.Wrap(err, "scan successor")
		}
		out = append(out, id)
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate successors")
}

// ListPredecessors returns the edges pointing into taskID.
func (q *Queries) ListPredecessors(ctx context.Context, scope domain.Scope, taskID string) ([]domain.Dependency, error) {
	rows, err := q.query(ctx, `SELECT `+dependencyColumns+` FROM dependencies
		WHERE organization_id = ? AND workspace_id = ? AND successor_id = ?
		ORDER BY created_at, id`,
		scope.OrganizationID, scope.WorkspaceID, taskID)
	if err != nil {
		return nil, flowerrors.Wrapf(err, "predecessors of %s", taskID)
	}
	return collectDependencies(rows)
}

// ListSuccessors returns the edges leaving taskID.
func (q *Queries) ListSuccessors(ctx context.Context, scope domain.Scope, taskID string) ([]domain.Dependency, error) {
	rows, err := q.query(ctx, `SELECT `+dependencyColumns+` FROM dependencies
		WHERE organization_id = ? AND workspace_id = ? AND predecessor_id = ?
		ORDER BY created_at, id`,
		scope.OrganizationID, scope.WorkspaceID, taskID)
	if err != nil {
		return nil, flowerrors.Wrapf(err, "successors of %s", taskID)
	}
	return collectDependencies(rows)
}

// DeleteDependencies removes the edges between predecessor and successor.
// A nil depType removes every type. It returns the removed edges.
func (q *Queries) DeleteDependencies(ctx context.Context, scope domain.Scope, predecessorID, successorID string,
	depType *constants.DependencyType,
) ([]domain.Dependency, error) {
	where := `organization_id = ? AND workspace_id = ? AND predecessor_id = ? AND successor_id = ?`
	args := []any{scope.OrganizationID, scope.WorkspaceID, predecessorID, successorID}
	if depType != nil {
		where += ` AND type = ?`
		args = append(args, string(*depType))
	}

	rows, err := q.query(ctx, `SELECT `+dependencyColumns+` FROM dependencies WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, flowerrors.Wrap(err, "find dependencies")
	}
	removed, err := collectDependencies(rows)
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if _, err := q.exec(ctx, `DELETE FROM dependencies WHERE `+where, args...); err != nil {
		return nil, flowerrors.Wrap(err, "delete dependencies")
	}
	return removed, nil
}

// DeleteTaskDependencies removes every edge touching taskID and returns them.
func (q *Queries) DeleteTaskDependencies(ctx context.Context, scope domain.Scope, taskID string) ([]domain.Dependency, error) {
	rows, err := q.query(ctx, `SELECT `+dependencyColumns+` FROM dependencies
		WHERE organization_id = ? AND workspace_id = ? AND (predecessor_id = ? OR successor_id = ?)
		ORDER BY created_at, id`,
		scope.OrganizationID, scope.WorkspaceID, taskID, taskID)
	if err != nil {
		return nil, flowerrors.Wrapf(err, "find dependencies of %s", taskID)
	}
	removed, err := collectDependencies(rows)
	if err != nil {
		return nil, err
	}

	if _, err := q.exec(ctx, `DELETE FROM dependencies
		WHERE organization_id = ? AND workspace_id = ? AND (predecessor_id = ? OR successor_id = ?)`,
		scope.OrganizationID, scope.WorkspaceID, taskID, taskID); err != nil {
		return nil, flowerrors.Wrapf(err, "delete dependencies of %s", taskID)
	}
	return removed, nil
}

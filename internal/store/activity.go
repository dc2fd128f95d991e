package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

const activityColumns = `id, organization_id, workspace_id, project_id, task_id, type, actor_id, payload, created_at`

// InsertActivity appends an audit row. Activity rows are never updated.
func (q *Queries) InsertActivity(ctx context.Context, a *domain.Activity) error {
	payload := a.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return flowerrors.Wrap(err, "encode activity payload")
	}

	_, err = q.exec(ctx, `INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrganizationID, a.WorkspaceID, toNullString(a.ProjectID), toNullString(a.TaskID),
		string(a.Type), a.ActorID, string(encoded), a.CreatedAt.UTC())
	return flowerrors.Wrap(err, "insert activity")
}

// ListActivity returns activity newest first.
func (q *Queries) ListActivity(ctx context.Context, scope domain.Scope, filter domain.ActivityFilter) ([]domain.Activity, error) {
	var (
		where = []string{"organization_id = ?", "workspace_id = ?"}
		args  = []any{scope.OrganizationID, scope.WorkspaceID}
	)
	if filter.TaskID != "" {
		where = append(where, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := q.query(ctx, `SELECT `+activityColumns+` FROM activities
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, flowerrors.Wrap(err, "list activity")
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Activity{}
	for rows.Next() {
		var (
			a             domain.Activity
			project, task sql.NullString
			payload       string
		)
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.WorkspaceID, &project, &task,
			&a.Type, &a.ActorID, &payload, &a.CreatedAt); err != nil {
			return nil, flowerrors.Wrap(err, "scan activity")
		}
		a.ProjectID = nullString(project)
		a.TaskID = nullString(task)
		a.CreatedAt = a.CreatedAt.UTC()
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
				return nil, flowerrors.Wrapf(err, "decode payload of activity %s", a.ID)
			}
		}
		out = append(out, a)
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate activity")
}

// DeleteTaskActivity removes the audit rows of a task. Only the cascading
// hard delete calls this.
func (q *Queries) DeleteTaskActivity(ctx context.Context, scope domain.Scope, taskID string) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM activities
		WHERE organization_id = ? AND workspace_id = ? AND task_id = ?`,
		scope.OrganizationID, scope.WorkspaceID, taskID)
	if err != nil {
		return 0, flowerrors.Wrapf(err, "delete activity of %s", taskID)
	}
	n, err := res.RowsAffected()
	return n, flowerrors.Wrap(err, "rows affected")
}

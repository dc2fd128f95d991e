package store

import (
	"context"

	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// InsertComment persists a comment.
func (q *Queries) InsertComment(ctx context.Context, c *domain.Comment) error {
	_, err := q.exec(ctx, `INSERT INTO comments
		(id, organization_id, workspace_id, task_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrganizationID, c.WorkspaceID, c.TaskID, c.AuthorID, c.Body, c.CreatedAt.UTC())
	return flowerrors.Wrap(err, "insert comment")
}

// ListComments returns the comments of a task, oldest first.
func (q *Queries) ListComments(ctx context.Context, scope domain.Scope, taskID string, limit, offset int) ([]domain.Comment, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := q.query(ctx, `SELECT id, organization_id, workspace_id, task_id, author_id, body, created_at
		FROM comments
		WHERE organization_id = ? AND workspace_id = ? AND task_id = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`,
		scope.OrganizationID, scope.WorkspaceID, taskID, limit, offset)
	if err != nil {
		return nil, flowerrors.Wrapf(err, "list comments of %s", taskID)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.WorkspaceID, &c.TaskID,
			&c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, flowerrors.Wrap(err, "scan comment")
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate comments")
}

// DeleteTaskComments removes every comment of a task.
func (q *Queries) DeleteTaskComments(ctx context.Context, scope domain.Scope, taskID string) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM comments
		WHERE organization_id = ? AND workspace_id = ? AND task_id = ?`,
		scope.OrganizationID, scope.WorkspaceID, taskID)
	if err != nil {
		return 0, flowerrors.Wrapf(err, "delete comments of %s", taskID)
	}
	n, err := res.RowsAffected()
	return n, flowerrors.Wrap(err, "rows affected")
}

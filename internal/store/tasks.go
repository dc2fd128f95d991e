package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

const taskColumns = `id, organization_id, workspace_id, project_id, title, description,
	status, priority, type, assignee_id, reporter_id, start_date, due_date,
	completed_at, tags, rank, created_at, updated_at, deleted_at`

// boardOrderExpr sorts rows by board column.
func boardOrderExpr() string {
	var b strings.Builder
	b.WriteString("CASE status")
	for i, s := range constants.AllTaskStatuses() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", s, i)
	}
	b.WriteString(" ELSE 99 END")
	return b.String()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*domain.Task, error) {
	var (
		t                             domain.Task
		description, assignee, report sql.NullString
		start, due, completed, del    sql.NullTime
		tags                          string
	)
	err := r.Scan(
		&t.ID, &t.OrganizationID, &t.WorkspaceID, &t.ProjectID, &t.Title, &description,
		&t.Status, &t.Priority, &t.Type, &assignee, &report, &start, &due,
		&completed, &tags, &t.Rank, &t.CreatedAt, &t.UpdatedAt, &del,
	)
	if err != nil {
		return nil, err
	}

	t.Description = nullString(description)
	t.AssigneeID = nullString(assignee)
	t.ReporterID = nullString(report)
	t.StartDate = nullTime(start)
	t.DueDate = nullTime(due)
	t.CompletedAt = nullTime(completed)
	t.DeletedAt = nullTime(del)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return nil, flowerrors.Wrapf(err, "decode tags of task %s", t.ID)
		}
	}
	return &t, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", flowerrors.Wrap(err, "encode tags")
	}
	return string(b), nil
}

// InsertTask persists a new task row.
func (q *Queries) InsertTask(ctx context.Context, t *domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrganizationID, t.WorkspaceID, t.ProjectID, t.Title, toNullString(t.Description),
		string(t.Status), string(t.Priority), string(t.Type), toNullString(t.AssigneeID),
		toNullString(t.ReporterID), toNullTime(t.StartDate), toNullTime(t.DueDate),
		toNullTime(t.CompletedAt), tags, t.Rank, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		toNullTime(t.DeletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", flowerrors.ErrTaskExists, t.ID)
		}
		return flowerrors.Wrap(err, "insert task")
	}
	return nil
}

// GetTask loads one task. Soft-deleted tasks are only returned when
// includeDeleted is set; otherwise they are reported as not found.
func (q *Queries) GetTask(ctx context.Context, scope domain.Scope, id string, includeDeleted bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	t, err := scanTask(q.queryRow(ctx, query, scope.OrganizationID, scope.WorkspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, flowerrors.Wrapf(err, "get task %s", id)
	}
	return t, nil
}

// GetTasks loads the live tasks among ids. Missing ids are simply absent
// from the result.
func (q *Queries) GetTasks(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+2)
	args = append(args, scope.OrganizationID, scope.WorkspaceID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q.query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND deleted_at IS NULL
		AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, flowerrors.Wrap(err, "get tasks")
	}
	return collectTasks(rows)
}

// ListTasks returns tasks matching filter ordered by board column then rank.
func (q *Queries) ListTasks(ctx context.Context, scope domain.Scope, filter domain.TaskFilter) ([]*domain.Task, error) {
	var (
		where = []string{"organization_id = ?", "workspace_id = ?"}
		args  = []any{scope.OrganizationID, scope.WorkspaceID}
	)
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != "" {
		where = append(where, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := q.query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY `+boardOrderExpr()+`, rank, created_at, id
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, flowerrors.Wrap(err, "list tasks")
	}
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	defer func() { _ = rows.Close() }()
	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, flowerrors.Wrap(err, "scan task")
		}
		out = append(out, t)
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate tasks")
}

// UpdateTask writes the mutable fields of a live task. Scope identifiers
// and created_at are never changed.
func (q *Queries) UpdateTask(ctx context.Context, t *domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx, `UPDATE tasks SET
		title = ?, description = ?, status = ?, priority = ?, type = ?,
		assignee_id = ?, reporter_id = ?, start_date = ?, due_date = ?,
		completed_at = ?, tags = ?, rank = ?, updated_at = ?
		WHERE organization_id = ? AND workspace_id = ? AND id = ? AND deleted_at IS NULL`,
		t.Title, toNullString(t.Description), string(t.Status), string(t.Priority), string(t.Type),
		toNullString(t.AssigneeID), toNullString(t.ReporterID), toNullTime(t.StartDate),
		toNullTime(t.DueDate), toNullTime(t.CompletedAt), tags, t.Rank, t.UpdatedAt.UTC(),
		t.OrganizationID, t.WorkspaceID, t.ID,
	)
	if err != nil {
		return flowerrors.Wrapf(err, "update task %s", t.ID)
	}
	return expectRow(res, flowerrors.ErrTaskNotFound, t.ID)
}

// SoftDeleteTask sets the deleted_at marker on a live task.
func (q *Queries) SoftDeleteTask(ctx context.Context, scope domain.Scope, id string, at time.Time) error {
	res, err := q.exec(ctx, `UPDATE tasks SET deleted_at = ?, updated_at = ?
		WHERE organization_id = ? AND workspace_id = ? AND id = ? AND deleted_at IS NULL`,
		at.UTC(), at.UTC(), scope.OrganizationID, scope.WorkspaceID, id)
	if err != nil {
		return flowerrors.Wrapf(err, "soft delete task %s", id)
	}
	return expectRow(res, flowerrors.ErrTaskNotFound, id)
}

// DeleteTask removes the task row, deleted or not.
func (q *Queries) DeleteTask(ctx context.Context, scope domain.Scope, id string) error {
	res, err := q.exec(ctx, `DELETE FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND id = ?`,
		scope.OrganizationID, scope.WorkspaceID, id)
	if err != nil {
		return flowerrors.Wrapf(err, "delete task %s", id)
	}
	return expectRow(res, flowerrors.ErrTaskNotFound, id)
}

// CountInStatus counts live tasks of a project in status, leaving out the
// tasks named in exclude.
func (q *Queries) CountInStatus(ctx context.Context, scope domain.Scope, projectID string,
	status constants.TaskStatus, exclude []string,
) (int, error) {
	query := `SELECT COUNT(*) FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND project_id = ?
		AND status = ? AND deleted_at IS NULL`
	args := []any{scope.OrganizationID, scope.WorkspaceID, projectID, string(status)}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}

	var n int
	if err := q.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, flowerrors.Wrapf(err, "count tasks in %s", status)
	}
	return n, nil
}

// CountByStatus returns the live task count of every occupied column of a project.
func (q *Queries) CountByStatus(ctx context.Context, scope domain.Scope, projectID string) (map[constants.TaskStatus]int, error) {
	rows, err := q.query(ctx, `SELECT status, COUNT(*) FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND project_id = ? AND deleted_at IS NULL
		GROUP BY status`, scope.OrganizationID, scope.WorkspaceID, projectID)
	if err != nil {
		return nil, flowerrors.Wrap(err, "count tasks by status")
	}
	defer func() { _ = rows.Close() }()

	out := make(map[constants.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, flowerrors.Wrap(err, "scan status count")
		}
		out[constants.TaskStatus(status)] = n
	}
	return out, flowerrors.Wrap(rows.Err(), "iterate status counts")
}

// MaxRank returns the largest rank among live tasks of a project column.
// The boolean is false for an empty column.
func (q *Queries) MaxRank(ctx context.Context, scope domain.Scope, projectID string, status constants.TaskStatus) (float64, bool, error) {
	var rank sql.NullFloat64
	err := q.queryRow(ctx, `SELECT MAX(rank) FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND project_id = ?
		AND status = ? AND deleted_at IS NULL`,
		scope.OrganizationID, scope.WorkspaceID, projectID, string(status)).Scan(&rank)
	if err != nil {
		return 0, false, flowerrors.Wrapf(err, "max rank in %s", status)
	}
	return rank.Float64, rank.Valid, nil
}

// TaskProject resolves the project of a task, soft-deleted rows included.
// The boolean is false when no such task exists in the workspace.
func (q *Queries) TaskProject(ctx context.Context, scope domain.Scope, id string) (string, bool, error) {
	var project string
	err := q.queryRow(ctx, `SELECT project_id FROM tasks
		WHERE organization_id = ? AND workspace_id = ? AND id = ?`,
		scope.OrganizationID, scope.WorkspaceID, id).Scan(&project)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, flowerrors.Wrapf(err, "resolve project of task %s", id)
	}
	return project, true, nil
}

// expectRow turns a zero-row write into notFound.
func expectRow(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return flowerrors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

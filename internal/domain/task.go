// Package domain provides shared domain types for the taskflow workflow engine.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"time"

	"github.com/mrz1836/taskflow/internal/constants"
)

// Scope is the tenancy boundary every query is filtered by.
type Scope struct {
	OrganizationID string `json:"organization_id"`
	WorkspaceID    string `json:"workspace_id"`
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   string         `json:"id"`
	Role constants.Role `json:"role"`
}

// Task represents a single work item on a project board.
//
// Example JSON representation:
//
//	{
//	    "id": "1f0e...",
//	    "organization_id": "acme",
//	    "workspace_id": "eng",
//	    "project_id": "platform",
//	    "title": "Rotate TLS certificates",
//	    "status": "in_progress",
//	    "priority": "high",
//	    "type": "task",
//	    "rank": 1024,
//	    "created_at": "2026-01-12T10:00:00Z",
//	    "updated_at": "2026-01-12T10:05:00Z"
//	}
type Task struct {
	// ID is the unique identifier for the task.
	ID string `json:"id"`

	// OrganizationID, WorkspaceID and ProjectID are fixed at creation.
	OrganizationID string `json:"organization_id"`
	WorkspaceID    string `json:"workspace_id"`
	ProjectID      string `json:"project_id"`

	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`

	// Status is the board column the task occupies.
	Status   constants.TaskStatus `json:"status"`
	Priority constants.Priority   `json:"priority"`
	Type     constants.TaskType   `json:"type"`

	AssigneeID *string `json:"assignee_id,omitempty"`
	ReporterID *string `json:"reporter_id,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	// CompletedAt is set the first time the task reaches done and never changes afterwards.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Tags []string `json:"tags,omitempty"`

	// Rank orders tasks within a board column; lower sorts first.
	Rank float64 `json:"rank"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is the soft-delete marker.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Scope returns the tenancy scope of the task.
func (t *Task) Scope() Scope {
	return Scope{OrganizationID: t.OrganizationID, WorkspaceID: t.WorkspaceID}
}

// IsDeleted reports whether the task carries the soft-delete marker.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone returns a deep copy so callers can diff before/after states.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	ProjectID      string
	Status         constants.TaskStatus
	AssigneeID     string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Comment is a free-text note attached to a task.
type Comment struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	WorkspaceID    string    `json:"workspace_id"`
	TaskID         string    `json:"task_id"`
	AuthorID       string    `json:"author_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

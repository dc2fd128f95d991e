package domain

import (
	"time"

	"github.com/mrz1836/taskflow/internal/constants"
)

// Dependency is a directed edge: Predecessor must complete before Successor.
type Dependency struct {
	ID             string                   `json:"id"`
	OrganizationID string                   `json:"organization_id"`
	WorkspaceID    string                   `json:"workspace_id"`
	PredecessorID  string                   `json:"predecessor_id"`
	SuccessorID    string                   `json:"successor_id"`
	Type           constants.DependencyType `json:"type"`
	CreatedBy      string                   `json:"created_by"`
	CreatedAt      time.Time                `json:"created_at"`
}

// DependencyList is the neighbourhood of one task in the graph.
type DependencyList struct {
	TaskID       string       `json:"task_id"`
	Predecessors []Dependency `json:"predecessors"`
	Successors   []Dependency `json:"successors"`
}

// WorkflowConfig is the stored WIP configuration of one project.
// A project without a row behaves as if every field were nil.
type WorkflowConfig struct {
	OrganizationID string                       `json:"organization_id"`
	WorkspaceID    string                       `json:"workspace_id"`
	ProjectID      string                       `json:"project_id"`
	DefaultLimit   *int                         `json:"default_wip_limit,omitempty"`
	StatusLimits   map[constants.TaskStatus]int `json:"status_wip_limits,omitempty"`
	UpdatedBy      string                       `json:"updated_by,omitempty"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// Activity is an immutable audit fact.
type Activity struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	WorkspaceID    string                 `json:"workspace_id"`
	ProjectID      *string                `json:"project_id,omitempty"`
	TaskID         *string                `json:"task_id,omitempty"`
	Type           constants.ActivityType `json:"type"`
	ActorID        string                 `json:"actor_id"`
	Payload        map[string]any         `json:"payload,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	TaskID    string
	ProjectID string
	Type      constants.ActivityType
	Limit     int
	Offset    int
}

package constants

import "strings"

// TaskStatus represents the column a task occupies on the board.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants in board order:
//
//	Backlog → Todo → InProgress → InReview → Done
//	Blocked and Canceled sit beside the main flow.
const (
	// TaskStatusBacklog is the initial state of a new task.
	TaskStatusBacklog TaskStatus = "backlog"

	// TaskStatusTodo indicates the task is ready to be picked up.
	TaskStatusTodo TaskStatus = "todo"

	// TaskStatusInProgress indicates someone is actively working on the task.
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusBlocked indicates work is paused on an external dependency.
	TaskStatusBlocked TaskStatus = "blocked"

	// TaskStatusInReview indicates the work is awaiting review.
	TaskStatusInReview TaskStatus = "in_review"

	// TaskStatusDone is terminal: the work is finished.
	TaskStatusDone TaskStatus = "done"

	// TaskStatusCanceled is terminal: the work will not be done.
	TaskStatusCanceled TaskStatus = "canceled"
)

// AllTaskStatuses returns every status in board order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusBacklog,
		TaskStatusTodo,
		TaskStatusInProgress,
		TaskStatusBlocked,
		TaskStatusInReview,
		TaskStatusDone,
		TaskStatusCanceled,
	}
}

// LimitableStatuses returns the statuses that may carry a WIP ceiling.
func LimitableStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusTodo,
		TaskStatusInProgress,
		TaskStatusBlocked,
		TaskStatusInReview,
	}
}

// String returns the string representation of the TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the seven known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusInReview, TaskStatusDone, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// IsExempt reports whether s is never subject to a WIP ceiling.
func (s TaskStatus) IsExempt() bool {
	return s == TaskStatusDone || s == TaskStatusBacklog || s == TaskStatusCanceled
}

// BoardOrder returns the column index of the status, or -1 when unknown.
func (s TaskStatus) BoardOrder() int {
	for i, st := range AllTaskStatuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseTaskStatus accepts both the wire form ("in_progress") and the
// upper-case name ("IN_PROGRESS"). The second return is false for unknown input.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// Priority ranks how urgent a task is.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities returns all valid priority values.
func ValidPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// IsValid checks if the priority is a valid value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// TaskType classifies a work item.
type TaskType string

// Task type constants.
const (
	TaskTypeTask    TaskType = "task"
	TaskTypeBug     TaskType = "bug"
	TaskTypeFeature TaskType = "feature"
	TaskTypeStory   TaskType = "story"
	TaskTypeEpic    TaskType = "epic"
)

// ValidTaskTypes returns all valid task type values.
func ValidTaskTypes() []TaskType {
	return []TaskType{TaskTypeTask, TaskTypeBug, TaskTypeFeature, TaskTypeStory, TaskTypeEpic}
}

// IsValid checks if the task type is a valid value.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeTask, TaskTypeBug, TaskTypeFeature, TaskTypeStory, TaskTypeEpic:
		return true
	default:
		return false
	}
}

// DependencyType describes how a predecessor constrains its successor.
type DependencyType string

// Dependency type constants.
const (
	DependencyFinishToStart  DependencyType = "finish_to_start"
	DependencyStartToStart   DependencyType = "start_to_start"
	DependencyFinishToFinish DependencyType = "finish_to_finish"
	DependencyStartToFinish  DependencyType = "start_to_finish"
)

// ValidDependencyTypes returns all valid dependency types.
func ValidDependencyTypes() []DependencyType {
	return []DependencyType{
		DependencyFinishToStart,
		DependencyStartToStart,
		DependencyFinishToFinish,
		DependencyStartToFinish,
	}
}

// IsValid checks if the dependency type is a valid value.
func (d DependencyType) IsValid() bool {
	switch d {
	case DependencyFinishToStart, DependencyStartToStart, DependencyFinishToFinish, DependencyStartToFinish:
		return true
	default:
		return false
	}
}

// Role is the actor's role inside a workspace.
type Role string

// Role constants.
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ValidRoles returns all valid roles.
func ValidRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
}

// IsValid checks if the role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// ParseRole accepts "ADMIN" as well as "admin".
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.IsValid()
}

// ActivityType names a lifecycle or policy event in the audit log.
type ActivityType string

// Activity type constants.
const (
	ActivityTaskCreated       ActivityType = "task_created"
	ActivityTaskUpdated       ActivityType = "task_updated"
	ActivityStatusChanged     ActivityType = "status_changed"
	ActivityTaskAssigned      ActivityType = "task_assigned"
	ActivityTaskDeleted       ActivityType = "task_deleted"
	ActivityDependencyAdded   ActivityType = "dependency_added"
	ActivityDependencyRemoved ActivityType = "dependency_removed"
	ActivityWIPOverrideUsed   ActivityType = "wip_override_used"
	ActivityCommentAdded      ActivityType = "comment_added"
	ActivityWorkflowUpdated   ActivityType = "workflow_updated"
)

// String returns the string representation of the ActivityType.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid checks if the activity type is a known event.
func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityTaskCreated, ActivityTaskUpdated, ActivityStatusChanged, ActivityTaskAssigned,
		ActivityTaskDeleted, ActivityDependencyAdded, ActivityDependencyRemoved,
		ActivityWIPOverrideUsed, ActivityCommentAdded, ActivityWorkflowUpdated:
		return true
	default:
		return false
	}
}

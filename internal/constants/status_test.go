package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_IsValid(t *testing.T) {
	for _, s := range AllTaskStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, TaskStatus("").IsValid())
	assert.False(t, TaskStatus("IN_PROGRESS").IsValid())
	assert.False(t, TaskStatus("archived").IsValid())
}

func TestTaskStatus_IsExempt(t *testing.T) {
	exempt := map[TaskStatus]bool{
		TaskStatusBacklog:  true,
		TaskStatusDone:     true,
		TaskStatusCanceled: true,
	}
	for _, s := range AllTaskStatuses() {
		assert.Equal(t, exempt[s], s.IsExempt(), s)
	}
	for _, s := range LimitableStatuses() {
		assert.False(t, s.IsExempt(), "limitable status %s cannot be exempt", s)
	}
}

func TestTaskStatus_BoardOrder(t *testing.T) {
	assert.Equal(t, 0, TaskStatusBacklog.BoardOrder())
	assert.Equal(t, 2, TaskStatusInProgress.BoardOrder())
	assert.Equal(t, 6, TaskStatusCanceled.BoardOrder())
	assert.Equal(t, -1, TaskStatus("nope").BoardOrder())
}

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TaskStatus
		ok   bool
	}{
		{"in_progress", TaskStatusInProgress, true},
		{"IN_PROGRESS", TaskStatusInProgress, true},
		{"  Done ", TaskStatusDone, true},
		{"in-progress", TaskStatus("in-progress"), false},
		{"", TaskStatus(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTaskStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumsAreValid(t *testing.T) {
	for _, p := range ValidPriorities() {
		assert.True(t, p.IsValid(), p)
	}
	assert.False(t, Priority("critical").IsValid())

	for _, tt := range ValidTaskTypes() {
		assert.True(t, tt.IsValid(), tt)
	}
	assert.False(t, TaskType("chore").IsValid())

	for _, d := range ValidDependencyTypes() {
		assert.True(t, d.IsValid(), d)
	}
	assert.False(t, DependencyType("blocks").IsValid())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)

	for _, role := range ValidRoles() {
		assert.True(t, role.IsValid(), role)
	}
}

func TestActivityType_IsValid(t *testing.T) {
	for _, a := range []ActivityType{
		ActivityTaskCreated, ActivityTaskUpdated, ActivityStatusChanged, ActivityTaskAssigned,
		ActivityTaskDeleted, ActivityDependencyAdded, ActivityDependencyRemoved,
		ActivityWIPOverrideUsed, ActivityCommentAdded, ActivityWorkflowUpdated,
	} {
		assert.True(t, a.IsValid(), a)
	}
	assert.False(t, ActivityType("task_archived").IsValid())
}

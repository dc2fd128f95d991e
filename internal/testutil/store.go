package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/clock"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/tenant"
)

// Test tenancy used across package tests.
const (
	TestOrganization = "acme"
	TestWorkspace    = "eng"
	TestProject      = "platform"
)

// TestScope is the scope of TestOrganization/TestWorkspace.
func TestScope() domain.Scope {
	return domain.Scope{OrganizationID: TestOrganization, WorkspaceID: TestWorkspace}
}

// Member and Admin are ready-made actors.
var (
	Member = domain.Actor{ID: "mia", Role: constants.RoleMember}
	Admin  = domain.Actor{ID: "ada", Role: constants.RoleAdmin}
)

// Context returns a background context carrying TestOrganization.
func Context() context.Context {
	return tenant.WithOrganization(context.Background(), TestOrganization)
}

// NewClock returns a clock that starts at a fixed instant and ticks one second per call.
func NewClock() *clock.StepClock {
	return clock.NewStepClock(time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC), time.Second)
}

// NewStore opens a migrated sqlite store in a temp directory.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Driver: constants.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), constants.DatabaseFileName),
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedTask inserts a live task directly through the store.
func SeedTask(t *testing.T, s *store.Store, id, project string, status constants.TaskStatus) *domain.Task {
	t.Helper()
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	task := &domain.Task{
		ID:             id,
		OrganizationID: TestOrganization,
		WorkspaceID:    TestWorkspace,
		ProjectID:      project,
		Title:          "task " + id,
		Status:         status,
		Priority:       constants.PriorityMedium,
		Type:           constants.TaskTypeTask,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.InsertTask(context.Background(), task))
	return task
}

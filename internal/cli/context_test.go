package cli

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/tenant"
)

func TestResolveExecutionContext(t *testing.T) {
	newCLIEnv(t)

	ec, err := ResolveExecutionContext(context.Background(), &GlobalFlags{
		Output:       OutputJSON,
		Organization: "acme",
		Workspace:    "eng",
		Actor:        "ann",
		Role:         "Admin",
		Quiet:        true,
	})

	require.NoError(t, err)
	assert.Equal(t, "acme", ec.OrganizationID)
	assert.Equal(t, "eng", ec.WorkspaceID)
	assert.Equal(t, "ann", ec.Actor.ID)
	assert.Equal(t, constants.RoleAdmin, ec.Actor.Role)
	assert.Equal(t, OutputJSON, ec.Output)
	assert.True(t, ec.Quiet)
}

func TestResolveExecutionContext_Defaults(t *testing.T) {
	newCLIEnv(t)
	t.Setenv("USER", "carol")

	ec, err := ResolveExecutionContext(context.Background(), &GlobalFlags{Output: OutputText})

	require.NoError(t, err)
	assert.Equal(t, "local", ec.OrganizationID)
	assert.Equal(t, "default", ec.WorkspaceID)
	assert.Equal(t, "carol", ec.Actor.ID)
	assert.Equal(t, constants.RoleMember, ec.Actor.Role)
}

func TestResolveActorID(t *testing.T) {
	t.Setenv("USER", "")

	assert.Equal(t, "ann", resolveActorID("  ann "))
	assert.Equal(t, fallbackActor, resolveActorID(""))

	t.Setenv("USER", "bob")
	assert.Equal(t, "bob", resolveActorID(""))
}

func TestExecutionContext_Context(t *testing.T) {
	t.Parallel()

	ec := &ExecutionContext{OrganizationID: "acme", Logger: zerolog.Nop()}

	ctx := ec.Context(context.Background())

	org, ok := tenant.Organization(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme", org)
}

func TestWithExecutionContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, GetExecutionContext(context.Background()))

	ec := &ExecutionContext{WorkspaceID: "eng"}
	ctx := WithExecutionContext(context.Background(), ec)

	assert.Same(t, ec, GetExecutionContext(ctx))
}

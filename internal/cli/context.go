package cli

// This file resolves who is acting and where: the merged configuration,
// the actor and the tenant scope every engine call runs under.

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	"github.com/mrz1836/taskflow/internal/tenant"
)

// fallbackActor is used when neither config, flags nor $USER name an actor.
const fallbackActor = "local"

// ExecutionContext holds the resolved configuration and identity of a command.
type ExecutionContext struct {
	// Config is the merged configuration.
	Config *config.Config

	// Actor is the caller passed to every engine operation.
	Actor domain.Actor

	// OrganizationID is installed as the tenant of the command context.
	OrganizationID string

	// WorkspaceID is the workspace every operation targets.
	WorkspaceID string

	// Output is the selected output format.
	Output string

	// Quiet suppresses notifications and informational output.
	Quiet bool

	// Logger is the CLI logger.
	Logger zerolog.Logger
}

// executionContextKey is the context key for ExecutionContext.
type executionContextKey struct{}

// ResolveExecutionContext loads configuration with flag overrides and
// resolves the acting identity.
func ResolveExecutionContext(ctx context.Context, flags *GlobalFlags) (*ExecutionContext, error) {
	cfg, err := config.LoadWithOverrides(ctx, flags.overrides())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &ExecutionContext{
		Config: cfg,
		Actor: domain.Actor{
			ID:   resolveActorID(cfg.Identity.Actor),
			Role: constants.Role(cfg.Identity.Role),
		},
		OrganizationID: cfg.Identity.Organization,
		WorkspaceID:    cfg.Identity.Workspace,
		Output:         flags.Output,
		Quiet:          flags.Quiet,
	}, nil
}

// resolveActorID prefers the configured actor, then $USER.
func resolveActorID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return fallbackActor
}

// Context returns ctx carrying the tenant and the CLI logger.
func (ec *ExecutionContext) Context(ctx context.Context) context.Context {
	ctx = tenant.WithOrganization(ctx, ec.OrganizationID)
	return ec.Logger.WithContext(ctx)
}

// WithExecutionContext returns a new context with the ExecutionContext attached.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey{}, ec)
}

// GetExecutionContext retrieves the ExecutionContext from the context.
// Returns nil if no execution context was set.
func GetExecutionContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(executionContextKey{}).(*ExecutionContext)
	return ec
}

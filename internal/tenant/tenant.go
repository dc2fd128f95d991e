// Package tenant carries the current organization through a request context.
// The surrounding application resolves the tenant; the engine only reads it.
package tenant

import (
	"context"
	"strings"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

type ctxKey struct{}

// WithOrganization returns a child context carrying the organization ID.
func WithOrganization(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(organizationID))
}

// Organization returns the organization ID stored in ctx, if any.
func Organization(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Require returns the organization ID or ErrTenantRequired.
func Require(ctx context.Context) (string, error) {
	id, ok := Organization(ctx)
	if !ok {
		return "", flowerrors.ErrTenantRequired
	}
	return id, nil
}

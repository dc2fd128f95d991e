// Package access defines the workspace access contract the engine consumes.
//
// Membership itself is owned by the surrounding application; this package only
// declares the Gate interface, a Check helper that turns a denial into
// ErrWorkspaceRequired, and two simple gates used by the CLI.
package access

import (
	"context"
	"strings"
	"sync"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/tenant"
)

// Gate decides whether an actor may read or write a workspace.
type Gate interface {
	CanAccess(ctx context.Context, workspaceID, organizationID, actorID string, role constants.Role) (bool, error)
}

// Check consults gate and converts a denial into ErrWorkspaceRequired.
func Check(ctx context.Context, gate Gate, scope domain.Scope, actor domain.Actor) error {
	if scope.WorkspaceID == "" {
		return flowerrors.Wrap(flowerrors.ErrWorkspaceRequired, "no workspace selected")
	}
	ok, err := gate.CanAccess(ctx, scope.WorkspaceID, scope.OrganizationID, actor.ID, actor.Role)
	if err != nil {
		return flowerrors.Wrap(err, "failed to check workspace access")
	}
	if !ok {
		return flowerrors.Wrapf(flowerrors.ErrWorkspaceRequired,
			"actor %s cannot access workspace %s", actor.ID, scope.WorkspaceID)
	}
	return nil
}

// AllowAll admits every actor. It is the default for the single-user CLI.
type AllowAll struct{}

// CanAccess always returns true.
func (AllowAll) CanAccess(context.Context, string, string, string, constants.Role) (bool, error) {
	return true, nil
}

// Membership lists the actors of one workspace.
type Membership struct {
	OrganizationID string   `yaml:"organization" mapstructure:"organization"`
	WorkspaceID    string   `yaml:"workspace" mapstructure:"workspace"`
	Actors         []string `yaml:"actors" mapstructure:"actors"`
}

// StaticGate admits actors listed in a fixed membership table.
type StaticGate struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

// NewStaticGate builds a gate from membership entries.
func NewStaticGate(memberships []Membership) *StaticGate {
	g := &StaticGate{members: make(map[string]map[string]struct{}, len(memberships))}
	for _, m := range memberships {
		for _, actor := range m.Actors {
			g.Grant(m.OrganizationID, m.WorkspaceID, actor)
		}
	}
	return g
}

// Grant adds an actor to a workspace.
func (g *StaticGate) Grant(organizationID, workspaceID, actorID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := organizationID + "/" + workspaceID
	if g.members[key] == nil {
		g.members[key] = make(map[string]struct{})
	}
	g.members[key][actorID] = struct{}{}
}

// CanAccess reports whether actorID is a member of the workspace.
// Viewers are admitted here; write restrictions for viewers belong to the caller.
func (g *StaticGate) CanAccess(_ context.Context, workspaceID, organizationID, actorID string, _ constants.Role) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.members[organizationID+"/"+workspaceID][actorID]
	return ok, nil
}

var (
	_ Gate = AllowAll{}
	_ Gate = (*StaticGate)(nil)
)

// Authorize resolves the tenant from ctx and checks the actor against the
// workspace. It is the entry guard of every engine operation.
func Authorize(ctx context.Context, gate Gate, workspaceID string, actor domain.Actor) (domain.Scope, error) {
	org, err := tenant.Require(ctx)
	if err != nil {
		return domain.Scope{}, err
	}
	scope := domain.Scope{OrganizationID: org, WorkspaceID: strings.TrimSpace(workspaceID)}
	if err := Check(ctx, gate, scope, actor); err != nil {
		return domain.Scope{}, err
	}
	return scope, nil
}

package graph

import (
	"context"
	"fmt"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// Adjacency answers "which tasks depend on this one". *store.Tx satisfies it.
type Adjacency interface {
	SuccessorIDs(ctx context.Context, scope domain.Scope, taskID string) ([]string, error)
}

// CheckCycle reports whether adding predecessor → successor would close a
// cycle. It walks breadth-first from successor along outgoing edges, one
// adjacency query per expanded node. Reaching predecessor returns
// ErrDependencyCycle; exhausting the expansion budget before the frontier
// empties returns ErrGraphTooDeep, since the edge could not be proven safe.
func CheckCycle(ctx context.Context, adj Adjacency, scope domain.Scope, predecessorID, successorID string, limit int) error {
	if predecessorID == successorID {
		return flowerrors.ErrSelfDependency
	}
	if limit <= 0 {
		limit = constants.DefaultCycleSearchLimit
	}

	queue := []string{successorID}
	visited := map[string]struct{}{successorID: {}}
	expansions := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if expansions >= limit {
			return fmt.Errorf("%w: more than %d tasks reachable from %s", flowerrors.ErrGraphTooDeep, limit, successorID)
		}

		node := queue[0]
		queue = queue[1:]
		expansions++

		next, err := adj.SuccessorIDs(ctx, scope, node)
		if err != nil {
			return err
		}
		for _, id := range next {
			if id == predecessorID {
				return fmt.Errorf("%w: %s already depends on %s", flowerrors.ErrDependencyCycle, predecessorID, successorID)
			}
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			queue = append(queue, id)
		}
	}
	return nil
}

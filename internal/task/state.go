package task

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// ValidTransitions maps each open status to the statuses it may move to.
// Open tasks move freely between columns; Done and Canceled have no entry.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = buildTransitions()

func buildTransitions() map[constants.TaskStatus][]constants.TaskStatus {
	all := constants.AllTaskStatuses()
	out := make(map[constants.TaskStatus][]constants.TaskStatus, len(all))
	for _, from := range all {
		if IsTerminalStatus(from) {
			continue
		}
		targets := make([]constants.TaskStatus, 0, len(all)-1)
		for _, to := range all {
			if to != from {
				targets = append(targets, to)
			}
		}
		out[from] = targets
	}
	return out
}

// IsValidTransition reports whether a task in from may move to to. A
// same-status move is a reorder and is not a transition.
func IsValidTransition(from, to constants.TaskStatus) bool {
	return from != to && slices.Contains(ValidTransitions[from], to)
}

// IsTerminalStatus reports whether status is Done or Canceled.
func IsTerminalStatus(status constants.TaskStatus) bool {
	return status == constants.TaskStatusDone || status == constants.TaskStatusCanceled
}

// IsExemptStatus reports whether status can never carry a WIP limit.
func IsExemptStatus(status constants.TaskStatus) bool {
	return status.IsExempt()
}

// GetValidTargetStatuses returns a copy of the targets reachable from from,
// or nil for terminal and unknown statuses.
func GetValidTargetStatuses(from constants.TaskStatus) []constants.TaskStatus {
	return slices.Clone(ValidTransitions[from])
}

// CheckTransition validates a status change without applying it.
// A same-status move is always accepted, even from a terminal status.
func CheckTransition(from, to constants.TaskStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", flowerrors.ErrInvalidStatus, to)
	}
	if from == to {
		return nil
	}
	if IsTerminalStatus(from) {
		return fmt.Errorf("%w: %s is terminal, cannot move to %s",
			flowerrors.ErrInvalidTransition, from, to)
	}
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s",
			flowerrors.ErrInvalidTransition, from, to)
	}
	return nil
}

// Transition applies a status change to task in place, stamping UpdatedAt
// and, on the first arrival in Done, CompletedAt. Admission control and
// persistence are up to the caller.
func Transition(ctx context.Context, task *domain.Task, to constants.TaskStatus, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if task == nil {
		return fmt.Errorf("%w: task is nil", flowerrors.ErrInvalidTransition)
	}

	if err := CheckTransition(task.Status, to); err != nil {
		return err
	}
	if task.Status == to {
		return nil
	}

	task.Status = to
	task.UpdatedAt = now

	// CompletedAt is written once
	if to == constants.TaskStatusDone && task.CompletedAt == nil {
		completed := now
		task.CompletedAt = &completed
	}

	return nil
}

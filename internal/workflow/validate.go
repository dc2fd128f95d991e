// Package workflow resolves per-project WIP configuration.
//
// A project has at most one stored configuration: an optional default
// ceiling and optional per-status ceilings. The resolver validates writes,
// derives the effective ceiling of every limitable status on reads, and
// answers the admission controller's "what is the limit for this status"
// question. It never counts tasks.
package workflow

import (
	"fmt"
	"sort"

	"github.com/mrz1836/taskflow/internal/constants"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// Update is a configuration write. StatusLimits keys are raw status names
// as received from the caller; nil values are ignored.
type Update struct {
	DefaultLimit *int            `json:"default_wip_limit,omitempty" yaml:"default_wip_limit,omitempty"`
	StatusLimits map[string]*int `json:"status_wip_limits,omitempty" yaml:"status_wip_limits,omitempty"`
}

// Validate checks an update against the ceiling bounds and returns the
// normalized per-status map. maxLimit values above constants.MaxWIPLimit
// are clamped to it.
func Validate(u Update, maxLimit int) (map[constants.TaskStatus]int, error) {
	if maxLimit <= 0 || maxLimit > constants.MaxWIPLimit {
		maxLimit = constants.MaxWIPLimit
	}

	if u.DefaultLimit != nil {
		if err := checkLimit("default", *u.DefaultLimit, maxLimit); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(u.StatusLimits))
	for k := range u.StatusLimits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[constants.TaskStatus]int, len(keys))
	for _, key := range keys {
		status, ok := constants.ParseTaskStatus(key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", flowerrors.ErrInvalidWorkflowConfig, key)
		}
		if status.IsExempt() {
			return nil, fmt.Errorf("%w: status %s cannot carry a wip limit", flowerrors.ErrInvalidWorkflowConfig, status)
		}
		v := u.StatusLimits[key]
		if v == nil {
			continue
		}
		if _, dup := out[status]; dup {
			return nil, fmt.Errorf("%w: status %s given twice", flowerrors.ErrInvalidWorkflowConfig, status)
		}
		if err := checkLimit(string(status), *v, maxLimit); err != nil {
			return nil, err
		}
		out[status] = *v
	}
	return out, nil
}

func checkLimit(name string, v, maxLimit int) error {
	if v < constants.MinWIPLimit || v > maxLimit {
		return fmt.Errorf("%w: %s limit %d outside [%d, %d]",
			flowerrors.ErrInvalidWorkflowConfig, name, v, constants.MinWIPLimit, maxLimit)
	}
	return nil
}

// Effective derives the ceiling of every limitable status: a per-status
// value wins over the default, and nil means no ceiling.
func Effective(defaultLimit *int, statusLimits map[constants.TaskStatus]int) map[constants.TaskStatus]*int {
	out := make(map[constants.TaskStatus]*int, len(constants.LimitableStatuses()))
	for _, s := range constants.LimitableStatuses() {
		out[s] = limitFor(s, defaultLimit, statusLimits)
	}
	return out
}

// limitFor resolves one status. Exempt statuses never have a ceiling.
func limitFor(status constants.TaskStatus, defaultLimit *int, statusLimits map[constants.TaskStatus]int) *int {
	if status.IsExempt() {
		return nil
	}
	if v, ok := statusLimits[status]; ok {
		return &v
	}
	if defaultLimit != nil {
		v := *defaultLimit
		return &v
	}
	return nil
}

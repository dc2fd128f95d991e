// Package errors provides centralized error handling for taskflow.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// Errors fall into the taxonomy surfaced to callers (see Kind): every specific
// sentinel also matches its category sentinel, so
//
//	errors.Is(ErrDependencyCycle, ErrValidation) == true
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels. Callers that only need the taxonomy check against these.
var (
	// ErrValidation indicates the request is well-formed but violates a rule.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a referenced task, edge or configuration is missing
	// from the workspace.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request duplicates existing state.
	ErrConflict = errors.New("conflict")

	// ErrWIPLimitExceeded indicates admission control denied a status change.
	ErrWIPLimitExceeded = errors.New("wip limit exceeded")

	// ErrWIPOverrideForbidden indicates a non-administrative actor requested
	// a WIP override.
	ErrWIPOverrideForbidden = errors.New("wip override forbidden")

	// ErrWorkspaceRequired indicates the access gate denied the actor.
	ErrWorkspaceRequired = errors.New("workspace access required")
)

// kindError is a specific sentinel that also matches its category.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

// Is reports whether target is the category of this sentinel.
func (e *kindError) Is(target error) bool { return target == e.kind }

func newKind(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// Validation sentinels.
var (
	// ErrSelfDependency indicates a task was asked to depend on itself.
	ErrSelfDependency = newKind(ErrValidation, "task cannot depend on itself")

	// ErrDependencyCycle indicates the proposed edge would close a cycle.
	ErrDependencyCycle = newKind(ErrValidation, "dependency would create a cycle")

	// ErrGraphTooDeep indicates the cycle search hit its expansion cap before
	// it could prove the edge safe.
	ErrGraphTooDeep = newKind(ErrValidation, "dependency graph too large to verify")

	// ErrInvalidTransition indicates an illegal status change, such as
	// leaving a terminal status.
	ErrInvalidTransition = newKind(ErrValidation, "invalid state transition")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = newKind(ErrValidation, "invalid task status")

	// ErrInvalidWorkflowConfig indicates a rejected workflow configuration payload.
	ErrInvalidWorkflowConfig = newKind(ErrValidation, "invalid workflow configuration")

	// ErrInvalidDependencyType indicates an unknown dependency type.
	ErrInvalidDependencyType = newKind(ErrValidation, "invalid dependency type")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = newKind(ErrValidation, "value cannot be empty")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = newKind(ErrValidation, "invalid argument")

	// ErrTenantRequired indicates an operation ran without an organization in context.
	ErrTenantRequired = newKind(ErrValidation, "organization context required")
)

// Not-found sentinels.
var (
	// ErrTaskNotFound indicates that a task was not found in the workspace.
	ErrTaskNotFound = newKind(ErrNotFound, "task not found")

	// ErrDependencyNotFound indicates that no matching dependency edge exists.
	ErrDependencyNotFound = newKind(ErrNotFound, "dependency not found")

	// ErrWorkflowConfigNotFound indicates the project has no stored workflow configuration.
	ErrWorkflowConfigNotFound = newKind(ErrNotFound, "workflow configuration not found")
)

// Conflict sentinels.
var (
	// ErrDuplicateDependency indicates the same edge already exists.
	ErrDuplicateDependency = newKind(ErrConflict, "dependency already exists")

	// ErrTaskExists indicates an attempt to create a task that already exists.
	ErrTaskExists = newKind(ErrConflict, "task already exists")
)

// Infrastructure and CLI sentinels.
var (
	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidDatabase indicates an invalid database configuration value.
	ErrConfigInvalidDatabase = errors.New("invalid database configuration")

	// ErrConfigInvalidCache indicates an invalid cache configuration value.
	ErrConfigInvalidCache = errors.New("invalid cache configuration")

	// ErrConfigInvalidWorkflow indicates an invalid workflow engine configuration value.
	ErrConfigInvalidWorkflow = errors.New("invalid workflow engine configuration")

	// ErrConfigInvalidAccess indicates an invalid access configuration value.
	ErrConfigInvalidAccess = errors.New("invalid access configuration")

	// ErrUnsupportedDriver indicates an unknown database driver name.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrTxFailed indicates a transaction could not be committed.
	ErrTxFailed = errors.New("transaction failed")

	// ErrConfigExists indicates init found a configuration file and --force was not given.
	ErrConfigExists = errors.New("configuration file already exists")

	// ErrLockHeld indicates another process holds a file lock.
	ErrLockHeld = errors.New("file is locked by another process")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrNonInteractiveMode indicates that an operation requiring confirmation
	// was attempted in non-interactive mode without the force flag.
	ErrNonInteractiveMode = errors.New("use --force in non-interactive mode")

	// ErrUserInputRequired indicates user input is required but not provided.
	// Commands should exit with code 2 when this error is returned.
	ErrUserInputRequired = errors.New("user input required")

	// ErrMenuCanceled indicates the user left an interactive prompt with q or Esc,
	// or no terminal was available to show it.
	ErrMenuCanceled = errors.New("menu canceled")
)

// WIPLimitError carries the admission details for a denied status change.
// It matches ErrWIPLimitExceeded, or ErrWIPOverrideForbidden when Forbidden is set.
type WIPLimitError struct {
	Status    string
	Limit     int
	Current   int
	Forbidden bool
}

// Error implements the error interface.
func (e *WIPLimitError) Error() string {
	label := ErrWIPLimitExceeded.Error()
	if e.Forbidden {
		label = ErrWIPOverrideForbidden.Error()
	}
	return fmt.Sprintf("%s: status %s holds %d of %d", label, e.Status, e.Current, e.Limit)
}

// Is lets errors.Is match the category sentinel.
func (e *WIPLimitError) Is(target error) bool {
	if e.Forbidden {
		return target == ErrWIPOverrideForbidden
	}
	return target == ErrWIPLimitExceeded
}

// AsWIPLimit extracts the admission details from err.
func AsWIPLimit(err error) (*WIPLimitError, bool) {
	var w *WIPLimitError
	if errors.As(err, &w) {
		return w, true
	}
	return nil, false
}

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}

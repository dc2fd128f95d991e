package errors

import "errors"

// hint is the user-facing text shown for a sentinel.
type hint struct {
	target  error
	message string
	action  string
}

// hints is ordered: the first sentinel matched by errors.Is wins, so more
// specific errors come before the ones they wrap.
//
//nolint:gochecknoglobals // lookup table
var hints = []hint{
	// admission control
	{ErrWIPOverrideForbidden, "Only workspace owners and admins may override a WIP limit.",
		"Ask an admin to move the task, or free a slot in the target column first."},
	{ErrWIPLimitExceeded, "The target column is at its WIP limit.",
		"Finish or move a task out of the column, or retry with --override and a reason."},

	// dependencies
	{ErrSelfDependency, "A task cannot depend on itself.", "Pick two different tasks."},
	{ErrDependencyCycle, "This dependency would create a cycle.",
		"Run 'taskflow dep list <task>' to inspect the existing chain."},
	{ErrGraphTooDeep, "The dependency chain is too large to verify.",
		"Split the chain or raise workflow.cycle_search_limit."},
	{ErrDuplicateDependency, "This dependency already exists.", ""},
	{ErrDependencyNotFound, "No matching dependency exists between these tasks.",
		"Run 'taskflow dep list <task>' to see current dependencies."},
	{ErrInvalidDependencyType, "Unknown dependency type.",
		"Use finish_to_start, start_to_start, finish_to_finish or start_to_finish."},

	// tasks
	{ErrTaskNotFound, "The specified task was not found in this workspace.",
		"Run 'taskflow task list' to see current tasks."},
	{ErrTaskExists, "A task with this ID already exists.", ""},
	{ErrInvalidTransition, "Cannot move the task to this status.",
		"Done and canceled tasks cannot be moved; create a follow-up task instead."},
	{ErrInvalidStatus, "Unknown task status.",
		"Use backlog, todo, in_progress, blocked, in_review, done or canceled."},

	// workflow configuration
	{ErrInvalidWorkflowConfig, "The workflow configuration is invalid.",
		"Limits must be 1-200 and cannot be set on backlog, done or canceled."},
	{ErrWorkflowConfigNotFound, "This project has no workflow configuration.", ""},

	// access
	{ErrWorkspaceRequired, "You do not have access to this workspace.",
		"Ask a workspace owner to add you, or check --workspace."},
	{ErrTenantRequired, "No organization was provided.", "Pass --org or set TASKFLOW_ORG."},

	// configuration
	{ErrConfigNil, "Configuration is not loaded.", "Ensure config.yaml exists and is valid YAML."},
	{ErrConfigInvalidDatabase, "Invalid database configuration.", "Check the 'database' section of your config."},
	{ErrConfigInvalidCache, "Invalid cache configuration.", "Check the 'cache' section of your config."},
	{ErrConfigInvalidWorkflow, "Invalid workflow engine configuration.", "Check the 'workflow' section of your config."},
	{ErrUnsupportedDriver, "Unsupported database driver.", "Use 'sqlite' or 'postgres'."},
	{ErrConfigExists, "A taskflow configuration file already exists.",
		"Use --force to overwrite it; the old file is kept as config.yaml.backup."},
	{ErrLockHeld, "Another taskflow process is writing the configuration.", "Wait for it to finish and try again."},

	// input
	{ErrEmptyValue, "A required value was not provided.", "Provide the required value and try again."},
	{ErrInvalidArgument, "An invalid argument was provided.", "Check the command help for valid arguments."},
	{ErrOperationCanceled, "Operation was canceled.", ""},
	{ErrUserInputRequired, "This operation requires user input.",
		"Run in an interactive terminal or provide required flags."},
	{ErrNonInteractiveMode, "This operation requires confirmation in non-interactive mode.",
		"Use --force flag to skip confirmation."},
}

func lookupHint(err error) hint {
	for _, h := range hints {
		if errors.Is(err, h.target) {
			return h
		}
	}
	return hint{message: err.Error()}
}

// UserMessage returns the message to show an end user for err. Errors with
// no registered hint fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return lookupHint(err).message
}

// Actionable returns the user message for err and, when one exists, a
// suggestion for resolving it.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	h := lookupHint(err)
	return h.message, h.action
}

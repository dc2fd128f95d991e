// Package cli provides the command-line interface for taskflow.
package cli

import (
	stderrors "errors"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/tui"
)

// Process exit codes. ExitDenied covers WIP refusals and workspace access.
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitInvalidInput = 2
	ExitDenied       = 3
)

// Values accepted by --output.
const (
	OutputText = tui.FormatText
	OutputJSON = tui.FormatJSON
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool

	// Organization, Workspace, Actor and Role override the configured identity.
	Organization string
	Workspace    string
	Actor        string
	Role         string

	// Database overrides database.dsn.
	Database string
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	pf.StringVar(&flags.Organization, "org", "", "organization to act in")
	pf.StringVarP(&flags.Workspace, "workspace", "w", "", "workspace to act in")
	pf.StringVar(&flags.Actor, "as", "", "actor id to act as")
	pf.StringVar(&flags.Role, "role", "", "actor role (owner|admin|member|viewer)")
	pf.StringVar(&flags.Database, "db", "", "database file or connection URL")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper so TASKFLOW_OUTPUT,
// TASKFLOW_VERBOSE and TASKFLOW_QUIET work like the flags.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Root().PersistentFlags() finds flags defined on the root command,
	// even when called from a subcommand's PersistentPreRunE.
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"output", "verbose", "quiet"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	return nil
}

// applyBoundFlags copies environment-provided values into flags that were not
// set on the command line.
func applyBoundFlags(v *viper.Viper, cmd *cobra.Command, flags *GlobalFlags) {
	rootFlags := cmd.Root().PersistentFlags()
	if !rootFlags.Changed("output") {
		flags.Output = v.GetString("output")
	}
	if !rootFlags.Changed("verbose") && !rootFlags.Changed("quiet") {
		flags.Verbose = v.GetBool("verbose")
		flags.Quiet = !flags.Verbose && v.GetBool("quiet")
	}
}

// overrides turns identity and database flags into a config overlay.
func (f *GlobalFlags) overrides() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{DSN: f.Database},
		Identity: config.IdentityConfig{
			Organization: f.Organization,
			Workspace:    f.Workspace,
			Actor:        f.Actor,
			Role:         strings.ToLower(f.Role),
		},
	}
}

// ValidOutputFormats lists the --output values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat reports whether format is one of ValidOutputFormats.
func IsValidOutputFormat(format string) bool {
	return slices.Contains(ValidOutputFormats(), format)
}

// cobraUsageErrors are fragments of the errors cobra and pflag return for a
// malformed command line.
//
//nolint:gochecknoglobals // lookup table
var cobraUsageErrors = []string{
	"unknown flag", "unknown shorthand flag", "flag needs an argument",
	"invalid argument", "if any flags in the group", "required flag",
	"unknown command", "accepts ", "requires at least",
}

// ExitCodeForError maps err to the process exit code: ExitInvalidInput for
// bad input, ExitDenied for WIP and workspace refusals, ExitError otherwise.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.IsExitCode2Error(err),
		stderrors.Is(err, errors.ErrInvalidOutputFormat),
		stderrors.Is(err, errors.ErrUserInputRequired):
		return ExitInvalidInput
	}

	switch errors.KindOf(err) { //nolint:exhaustive // only refusals get their own code
	case errors.KindWIPLimitExceeded, errors.KindWIPOverrideForbidden, errors.KindWorkspaceRequired:
		return ExitDenied
	}

	msg := err.Error()
	for _, fragment := range cobraUsageErrors {
		if strings.Contains(msg, fragment) {
			return ExitInvalidInput
		}
	}
	return ExitError
}

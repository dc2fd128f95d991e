package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/logging"
	"github.com/mrz1836/taskflow/internal/tui"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault ConfigSource = "default"
	// SourceGlobal indicates the value came from the global config file.
	SourceGlobal ConfigSource = "global"
	// SourceProject indicates the value came from .taskflow/config.yaml.
	SourceProject ConfigSource = "project"
	// SourceEnv indicates the value came from a TASKFLOW_* variable.
	SourceEnv ConfigSource = "env"
	// SourceFlag indicates the value came from a command-line flag.
	SourceFlag ConfigSource = "flag"
)

// ConfigValueWithSource is one effective value and the layer that set it.
type ConfigValueWithSource struct {
	Key    string       `json:"key"`
	Value  any          `json:"value"`
	Source ConfigSource `json:"source"`
}

// configShowResult is what config show reports in JSON mode.
type configShowResult struct {
	GlobalPath  string                  `json:"global_path,omitempty"`
	ProjectPath string                  `json:"project_path"`
	Values      []ConfigValueWithSource `json:"values"`
}

// flagKeys maps the identity and database flags to the keys they override.
//
//nolint:gochecknoglobals // lookup table
var flagKeys = map[string]string{
	"db":        "database.dsn",
	"org":       "identity.organization",
	"workspace": "identity.workspace",
	"as":        "identity.actor",
	"role":      "identity.role",
}

// AddConfigCommand adds the config command group to the root command.
func AddConfigCommand(rootCmd *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect taskflow configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the effective taskflow configuration with the layer each value
comes from: flag > env > project > global > default.

Database passwords and the redis password are masked.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	})
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	ec := GetExecutionContext(cmd.Context())
	if ec == nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), errors.ErrConfigNil)
	}

	globalPath, _ := config.GlobalConfigPath()
	projectPath := config.ProjectConfigPath()
	values, err := annotate(maskSecrets(ec.Config), changedFlagKeys(cmd),
		readLayerKeys(globalPath), readLayerKeys(projectPath))
	if err != nil {
		return err
	}

	if ec.Output == OutputJSON {
		return tui.NewOutput(cmd.OutOrStdout(), ec.Output).JSON(configShowResult{
			GlobalPath:  globalPath,
			ProjectPath: projectPath,
			Values:      values,
		})
	}
	writeConfigText(cmd.OutOrStdout(), values, globalPath, projectPath)
	return nil
}

// maskSecrets returns a copy of cfg that is safe to print.
func maskSecrets(cfg *config.Config) *config.Config {
	shown := *cfg
	shown.Database.DSN = logging.RedactDSN(cfg.Database.DSN)
	if cfg.Cache.RedisPassword != "" {
		shown.Cache.RedisPassword = logging.RedactedValue
	}
	return &shown
}

func changedFlagKeys(cmd *cobra.Command) map[string]bool {
	out := make(map[string]bool)
	flags := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if flags.Changed(name) {
			out[key] = true
		}
	}
	return out
}

// readLayerKeys returns the dotted keys one config file sets. A missing or
// unreadable file sets nothing; Load has already reported real errors.
func readLayerKeys(path string) map[string]bool {
	out := make(map[string]bool)
	if path == "" {
		return out
	}
	data, err := os.ReadFile(path) //nolint:gosec // config file path
	if err != nil {
		return out
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return out
	}
	for key := range flatten("", raw) {
		out[key] = true
	}
	return out
}

// annotate flattens cfg into sorted dotted keys and tags each with the
// highest-precedence layer that sets it.
func annotate(cfg *config.Config, flagSet, globalSet, projectSet map[string]bool) ([]ConfigValueWithSource, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode configuration")
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	flat := flatten("", raw)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ConfigValueWithSource, 0, len(keys))
	for _, k := range keys {
		out = append(out, ConfigValueWithSource{Key: k, Value: flat[k], Source: sourceOf(k, flagSet, globalSet, projectSet)})
	}
	return out, nil
}

func sourceOf(key string, flagSet, globalSet, projectSet map[string]bool) ConfigSource {
	switch {
	case flagSet[key]:
		return SourceFlag
	case os.Getenv(envKey(key)) != "":
		return SourceEnv
	case projectSet[key]:
		return SourceProject
	case globalSet[key]:
		return SourceGlobal
	default:
		return SourceDefault
	}
}

// envKey is the variable viper reads for a dotted key.
func envKey(key string) string {
	return constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// flatten turns nested maps into dotted keys. Lists stay whole values.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func writeConfigText(w io.Writer, values []ConfigValueWithSource, globalPath, projectPath string) {
	key := lipgloss.NewStyle().Foreground(tui.ColorPrimary)
	dim := lipgloss.NewStyle().Foreground(tui.ColorMuted)
	sources := map[ConfigSource]lipgloss.Style{
		SourceFlag:    lipgloss.NewStyle().Foreground(tui.ColorError),
		SourceEnv:     lipgloss.NewStyle().Foreground(tui.ColorError),
		SourceProject: lipgloss.NewStyle().Foreground(tui.ColorWarning),
		SourceGlobal:  lipgloss.NewStyle().Foreground(tui.ColorSuccess),
		SourceDefault: dim,
	}

	_, _ = fmt.Fprintln(w, dim.Render("Sources: flag > env > project > global > default"))
	section := ""
	for _, v := range values {
		head, field, _ := strings.Cut(v.Key, ".")
		if head != section {
			section = head
			_, _ = fmt.Fprintf(w, "\n%s:\n", section)
		}
		_, _ = fmt.Fprintf(w, "  %s: %s  %s\n", key.Render(field), formatConfigValue(v.Value),
			sources[v.Source].Render("("+string(v.Source)+")"))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, dim.Render("Configuration files:"))
	for _, f := range []struct{ name, path string }{{"Global", globalPath}, {"Project", projectPath}} {
		if f.path == "" {
			continue
		}
		state := ""
		if _, err := os.Stat(f.path); err != nil {
			state = " (not found)"
		} else if abs, err := filepath.Abs(f.path); err == nil {
			f.path = abs
		}
		_, _ = fmt.Fprintln(w, dim.Render("  "+f.name+": "+f.path+state))
	}
}

func formatConfigValue(v any) string {
	switch val := v.(type) {
	case nil:
		return `""`
	case string:
		if val == "" {
			return `""`
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}

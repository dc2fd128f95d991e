package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
)

// cliEnv runs commands against one temporary sqlite database with an
// isolated TASKFLOW_HOME and working directory.
type cliEnv struct {
	t  *testing.T
	db string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv(constants.HomeEnvVar, t.TempDir())
	t.Setenv("NO_COLOR", "1")
	t.Chdir(t.TempDir())
	t.Cleanup(CloseLogFile)
	return &cliEnv{t: t, db: filepath.Join(t.TempDir(), "taskflow.db")}
}

// run executes the root command and returns what it wrote to stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "test"})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", e.db, "--quiet"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun fails the test when the command fails.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "taskflow %v", args)
	return out
}

// createTask creates a task through the CLI and returns it decoded.
func (e *cliEnv) createTask(project, title string, extra ...string) *domain.Task {
	e.t.Helper()
	args := append([]string{"-o", "json", "task", "create", "--project", project}, extra...)
	args = append(args, title)
	var task domain.Task
	decodeJSON(e.t, e.mustRun(args...), &task)
	return &task
}

func decodeJSON(t *testing.T, raw string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(raw), v), raw)
}

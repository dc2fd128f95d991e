package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

func TestInitCommand_ProjectConfig(t *testing.T) {
	env := newCLIEnv(t)

	var result initResult
	decodeJSON(t, env.mustRun("-o", "json", "--workspace", "eng", "init"), &result)

	assert.Equal(t, config.ProjectConfigPath(), result.ConfigPath)
	assert.Empty(t, result.BackupPath)
	assert.Equal(t, constants.DriverSQLite, result.Driver)
	assert.Positive(t, result.SchemaVersion)

	data, err := os.ReadFile(result.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# taskflow configuration")

	var written config.Config
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, "eng", written.Identity.Workspace)
	assert.Equal(t, env.db, written.Database.DSN)

	t.Run("existing file needs force", func(t *testing.T) {
		_, err := env.run("init")
		require.ErrorIs(t, err, errors.ErrConfigExists)
	})

	t.Run("force keeps a backup", func(t *testing.T) {
		out := env.mustRun("init", "--force")
		assert.Contains(t, out, "config.yaml.backup")

		_, err := os.Stat(config.ProjectConfigPath() + ".backup")
		require.NoError(t, err)
	})

	t.Run("written config is loaded", func(t *testing.T) {
		cfg, err := config.Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "eng", cfg.Identity.Workspace)
	})
}

func TestInitCommand_Global(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("init", "--global")

	path := filepath.Join(os.Getenv(constants.HomeEnvVar), constants.GlobalConfigName)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, config.ProjectConfigPath())
}

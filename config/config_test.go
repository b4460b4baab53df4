package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	root := t.TempDir()
	cfg := Default(filepath.Join(root, "iframework"))

	assert.Equal(t, filepath.Join(root, "app"), cfg.AppPath)
	assert.Equal(t, filepath.Join(root, "app", "models"), cfg.ModelsPath)
	assert.Equal(t, filepath.Join(root, "config"), cfg.ConfigPath)
	assert.Equal(t, filepath.Join(root, "config", "lang"), cfg.LangPath)
	assert.Equal(t, filepath.Join(root, "tmp", "storage"), cfg.StoragePath)
	assert.Equal(t, filepath.Join(root, "drive", "database"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(root, "drive", "database", "migrations"), cfg.MigrationsPath)
	assert.Equal(t, cfg.ConfigPath, cfg.EnvironmentPath)
	assert.Equal(t, filepath.Join(root, "config", "_ENV"), cfg.EnvFile())
}

func TestLoadWithoutEnvironmentFile(t *testing.T) {
	root := t.TempDir()
	unsetEnv(t, "DATABASE_URL", "LOG_LEVEL")

	cfg, err := Load(filepath.Join(root, "iframework"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	_, err = cfg.RequireDatabaseURL()
	assert.Error(t, err)
}

func TestLoadEnvironmentFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	env := "DATABASE_URL=postgres://file/db\nDB_TABLE_PREFIX=app_\nDATABASE_PATH=/srv/db\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "_ENV"), []byte(env), 0o644))

	unsetEnv(t, "DATABASE_URL", "DB_TABLE_PREFIX", "DATABASE_PATH", "MIGRATIONS_PATH", "SCHEMA_FILE", "MODELS_PATH")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(root, "iframework"))
	require.NoError(t, err)

	assert.Equal(t, "app_", cfg.TablePrefix)
	assert.Equal(t, "/srv/db", cfg.DatabasePath)
	assert.Equal(t, filepath.Join("/srv/db", "migrations"), cfg.MigrationsPath)
	assert.Equal(t, "warn", cfg.LogLevel, "process environment wins over the file")

	url, err := cfg.RequireDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/db", url)
}

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

package cfgmng

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Database struct {
		DSN   string `mapstructure:"dsn"`
		Table string `mapstructure:"table"`
	} `mapstructure:"database"`
	BulkHooks bool `mapstructure:"bulk_hooks"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, "database:\n  dsn: postgres://localhost/app\nbulk_hooks: true\n")

	cfg, err := LoadConfig[testConfig](dir, "app", WithDefaults(map[string]any{"database.table": "records"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.DSN)
	assert.Equal(t, "records", cfg.Database.Table)
	assert.True(t, cfg.BulkHooks)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "database:\n  dsn: postgres://localhost/app\n")
	t.Setenv("CFGTEST_DATABASE_DSN", "postgres://override/app")

	cfg, err := LoadConfig[testConfig](dir, "app", WithEnvPrefix("cfgtest"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://override/app", cfg.Database.DSN)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig[testConfig](dir, "absent")
	assert.Error(t, err)

	cfg, err := LoadConfig[testConfig](dir, "absent", Optional(), WithDefaults(map[string]any{"bulk_hooks": true}))
	require.NoError(t, err)
	assert.True(t, cfg.BulkHooks)
}

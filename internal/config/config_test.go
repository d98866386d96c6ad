package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayers(t *testing.T) {
	chdir(t, t.TempDir())
	file := filepath.Join(t.TempDir(), "orcabot.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
command_prefix: "!"
store_backend: sqlite
http_timeout: 10s
log:
  level: debug
  max_backups: 2
`), 0o644))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("INARA_APP_NAME", "orcabot")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, ";", cfg.MacroPrefix)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Log.MaxBackups)
	assert.Equal(t, 30, cfg.Log.MaxAgeDays)
	assert.Equal(t, "orcabot", cfg.InaraAppName)
	require.NoError(t, cfg.Validate())
}

func TestDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("DEVELOPER_ID=42\n"), 0o644))
	t.Setenv("DEVELOPER_ID", "")
	os.Unsetenv("DEVELOPER_ID")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDeveloper("42"))
	assert.False(t, cfg.IsDeveloper("7"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.ErrorContains(t, cfg.ValidateBot(), "DISCORD_TOKEN")

	cfg.StoreBackend = "redis"
	assert.ErrorContains(t, cfg.Validate(), "STORE_BACKEND")

	cfg.StoreBackend = BackendMongo
	assert.ErrorContains(t, cfg.Validate(), "MONGO_URI")

	cfg = Default()
	cfg.HTTPTimeout = 0
	cfg.CommandPrefix = " "
	err := cfg.Validate()
	assert.ErrorContains(t, err, "HTTP_TIMEOUT")
	assert.ErrorContains(t, err, "COMMAND_PREFIX")
}

// chdir is a stand-in for testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

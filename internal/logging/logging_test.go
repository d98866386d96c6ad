package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orcabot/internal/config"
)

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orcabot.log")
	logger, closeFn, err := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("command executed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"command executed"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestBadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

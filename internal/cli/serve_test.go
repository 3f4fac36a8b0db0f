package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nounverse/verbs/internal/config"
	"github.com/nounverse/verbs/internal/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_RefusesWhenRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verbs.json")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"data_dir":%q}`, dir)), 0644))

	_, err := daemon.WritePIDFile(dir)
	require.NoError(t, err)

	_, err = executeCommand(t, "serve", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verbs.json")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"data_dir":%q,"logging":{"level":"loud"}}`, dir)), 0644))

	_, err := executeCommand(t, "serve", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoggerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/verbs.log"

	lc := loggerConfig(cfg)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "/tmp/verbs.log", lc.File)
	assert.True(t, lc.Console)
	assert.True(t, lc.Pretty)
	assert.True(t, lc.Redaction)
	assert.Equal(t, 100, lc.MaxSize)
	assert.Equal(t, 7, lc.MaxAge)
}

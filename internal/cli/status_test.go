package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nounverse/verbs/internal/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommand_Stopped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verbs.json")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"data_dir":%q}`, dir)), 0644))

	output, err := executeCommand(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Status: stopped")
}

func TestStatusCommand_Running(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verbs.json")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"data_dir":%q}`, dir)), 0644))

	_, err := daemon.WritePIDFile(dir)
	require.NoError(t, err)

	output, err := executeCommand(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Status: running")
	assert.Contains(t, output, fmt.Sprintf("PID: %d", os.Getpid()))
	assert.Contains(t, output, "Uptime:")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m5s", formatDuration(3665*time.Second))
}

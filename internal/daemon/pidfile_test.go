package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WritePIDFile(dir)
	require.NoError(t, err)
	assert.Equal(t, PIDFilePath(dir), path)

	pid, err := ReadPID(dir)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWritePIDFile_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	_, err := WritePIDFile(dir)
	require.NoError(t, err)
	assert.FileExists(t, PIDFilePath(dir))
}

func TestReadPID_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(PIDFilePath(dir), []byte("not-a-pid"), 0644))

	_, err := ReadPID(dir)
	assert.ErrorContains(t, err, "invalid PID file")
}

func TestReadPID_Missing(t *testing.T) {
	_, err := ReadPID(t.TempDir())
	assert.Error(t, err)
}

func TestRemovePIDFile(t *testing.T) {
	dir := t.TempDir()

	_, err := WritePIDFile(dir)
	require.NoError(t, err)

	require.NoError(t, RemovePIDFile(dir))
	assert.NoFileExists(t, PIDFilePath(dir))

	// Removing again is not an error.
	assert.NoError(t, RemovePIDFile(dir))
}

func TestRunning(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Running(dir))

	_, err := WritePIDFile(dir)
	require.NoError(t, err)
	assert.True(t, Running(dir))
}

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
}

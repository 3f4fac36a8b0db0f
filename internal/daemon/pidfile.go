package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFilePath returns the daemon PID file location under dataDir.
func PIDFilePath(dataDir string) string {
	return filepath.Join(dataDir, "verbs.pid")
}

// WritePIDFile records the current process ID under dataDir, creating
// the directory if needed, and returns the file path.
func WritePIDFile(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	path := PIDFilePath(dataDir)
	content := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// RemovePIDFile deletes the PID file under dataDir. A missing file is
// not an error.
func RemovePIDFile(dataDir string) error {
	if err := os.Remove(PIDFilePath(dataDir)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadPID returns the process ID recorded under dataDir.
func ReadPID(dataDir string) (int, error) {
	data, err := os.ReadFile(PIDFilePath(dataDir))
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// Alive reports whether the process with the given PID is running. On
// Unix, FindProcess always succeeds, so liveness is probed with signal 0.
func Alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(os.Signal(nil)) == nil
}

// Running reports whether a daemon recorded under dataDir is alive.
func Running(dataDir string) bool {
	pid, err := ReadPID(dataDir)
	if err != nil {
		return false
	}
	return Alive(pid)
}

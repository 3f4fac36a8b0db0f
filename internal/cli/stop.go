package cli

import (
	"fmt"
	"syscall"
	"time"

	"github.com/nounverse/verbs/internal/config"
	"github.com/nounverse/verbs/internal/daemon"
	"github.com/spf13/cobra"
)

var stopTimeout int

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the verbs daemon",
	Long: `Stop the verbs daemon gracefully.
Sends SIGTERM to the daemon and waits for it to shut down.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "timeout in seconds to wait for daemon to stop")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pid, err := daemon.ReadPID(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("daemon is not running: %w", err)
	}
	if !daemon.Alive(pid) {
		cmd.Println("Daemon is not running, removing stale PID file")
		return daemon.RemovePIDFile(cfg.DataDir)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	// Wait for process to stop with timeout
	deadline := time.Now().Add(time.Duration(stopTimeout) * time.Second)
	for time.Now().Before(deadline) {
		if !daemon.Alive(pid) {
			cmd.Println("Daemon stopped successfully")
			return daemon.RemovePIDFile(cfg.DataDir)
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Force kill if timeout
	cmd.Println("Timeout reached, sending SIGKILL...")
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	cmd.Println("Daemon killed")
	return daemon.RemovePIDFile(cfg.DataDir)
}

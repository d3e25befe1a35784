package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mprisbridge/internal/daemon"
)

var stopForce bool

func init() {
	rootCmd.AddCommand(cmdStop)
	cmdStop.Flags().BoolVarP(&stopForce, "force", "f", false, "Escalate to SIGKILL if the daemon ignores SIGTERM")
}

var cmdStop = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !daemon.IsRunning() {
			fmt.Fprintln(os.Stdout, "Daemon is not running.")
			return nil
		}
		if err := daemon.StopRunningDaemon(stopForce); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Daemon stopped.")
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mprisbridge/internal/daemon"
	"mprisbridge/internal/tui"
)

func init() {
	rootCmd.AddCommand(cmdTUI)
}

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive now-playing panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := tui.Run(cfg.Output.SnapshotPath, daemon.SocketPath()); err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}

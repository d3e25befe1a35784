package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mprisbridge/internal/daemon"
	"mprisbridge/internal/ipc"
)

func init() {
	rootCmd.AddCommand(cmdPing)
}

var cmdPing = &cobra.Command{
	Use:   "ping",
	Short: "Check daemon availability (expects 'pong')",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ipc.Ping(daemon.SocketPath()) {
			return errors.New("daemon did not respond")
		}
		fmt.Fprintln(os.Stdout, "pong")
		return nil
	},
}

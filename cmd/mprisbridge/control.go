package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mprisbridge/internal/daemon"
	"mprisbridge/internal/ipc"
)

var controlPlayer string

func init() {
	for _, c := range []*cobra.Command{cmdPlayPause, cmdNext, cmdPrevious, cmdSeek, cmdSetPosition} {
		c.Flags().StringVarP(&controlPlayer, "player", "p", "", "Target a specific player instead of the current selection")
		rootCmd.AddCommand(c)
	}
}

func sendControl(req ipc.Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.Player = controlPlayer
	resp, err := ipc.Send(ctx, daemon.SocketPath(), req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	if !resp.OK {
		return errors.New("command rejected by daemon")
	}
	return nil
}

var cmdPlayPause = &cobra.Command{
	Use:   "play-pause",
	Short: "Toggle playback of the selected player",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(ipc.Request{Cmd: ipc.CmdPlayPause})
	},
}

var cmdNext = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(ipc.Request{Cmd: ipc.CmdNext})
	},
}

var cmdPrevious = &cobra.Command{
	Use:   "previous",
	Short: "Skip to the previous track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(ipc.Request{Cmd: ipc.CmdPrevious})
	},
}

var cmdSeek = &cobra.Command{
	Use:   "seek <offset>",
	Short: "Seek relative to the current position, in seconds (negative rewinds)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("offset must be a number of seconds: %w", err)
		}
		return sendControl(ipc.Request{Cmd: ipc.CmdSeek, Offset: &offset})
	},
}

var cmdSetPosition = &cobra.Command{
	Use:   "set-position <seconds>",
	Short: "Jump to an absolute position in the current track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		position, err := strconv.ParseFloat(args[0], 64)
		if err != nil || position < 0 {
			return fmt.Errorf("position must be a non-negative number of seconds")
		}
		return sendControl(ipc.Request{Cmd: ipc.CmdSetPosition, Position: &position})
	},
}

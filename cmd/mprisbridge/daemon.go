package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"mprisbridge/internal/daemon"
)

var daemonForceRestart bool

func init() {
	rootCmd.AddCommand(cmdDaemon)
	cmdDaemon.Flags().BoolVarP(&daemonForceRestart, "force", "f", false, "Restart the daemon if it is already running")
}

var cmdDaemon = &cobra.Command{
	Use:   "daemon",
	Short: "Run the bridge daemon in the foreground",
	Long:  `Connects to the session bus, follows the selected player and serves the control socket until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if daemon.IsRunning() {
			if !daemonForceRestart {
				pid, err := daemon.RunningPID()
				message := "Daemon is already running. Stop it manually or re-run with --force."
				if err == nil && pid != 0 {
					message = fmt.Sprintf("Daemon is already running (pid %d). Stop it manually or re-run with --force.", pid)
				}
				fmt.Fprintln(os.Stdout, message)
				return nil
			}
			fmt.Fprintln(os.Stdout, "Stopping existing daemon process...")
			if err := daemon.StopRunningDaemon(true); err != nil {
				return err
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := daemon.StartDaemon(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Started daemon (pid %d)\n", os.Getpid())
		runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stdout))
		runSpin.Suffix = " Running..."
		runSpin.Start()

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		runSpin.Stop()
		return d.Close()
	},
}

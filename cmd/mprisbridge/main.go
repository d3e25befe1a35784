package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"mprisbridge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "mprisbridge [command]",
	Short: "mprisbridge: media player arbiter",
	Long:  `mprisbridge watches every MPRIS player on the session bus, picks the one that matters and publishes its state for bars and widgets. The same binary also talks to a running daemon.`,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML config file")
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		os.Setenv("MPRISBRIDGE_CONFIG", configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

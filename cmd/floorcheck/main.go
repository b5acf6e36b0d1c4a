package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/floorcheck/cmd/floorcheck/commands"
	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/logger"
)

var rootCmd = &cobra.Command{
	Use:   "floorcheck",
	Short: "floorcheck - Factory floor maintenance task tracking",
	Long: `floorcheck - Shift-based maintenance task tracking for factory kiosks.

Operators badge in at a kiosk with their access card and see the inspection
tasks due for their role and sector this shift. Completions and failures are
recorded per shift window.

Available commands:
  serve    - Start the kiosk daemon (server, reader, generator)
  generate - Run the assignment generator once
  db       - Manage the floorcheck database
  kiosk    - Manage kiosk-to-sector bindings
  version  - Show version information

Examples:
  floorcheck serve                 # Start the kiosk daemon
  floorcheck generate              # Seed assignments for all works
  floorcheck db migrate            # Apply pending migrations
  floorcheck kiosk assign 2 --pos 1`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Initialize(cfg.Server.LogJSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.KioskCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

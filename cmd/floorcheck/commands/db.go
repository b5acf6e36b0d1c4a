package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/errors"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the floorcheck database",
	Long: `Manage floorcheck database operations.

Examples:
  floorcheck db migrate    # Apply pending migrations
  floorcheck db seed       # Seed the catalog (roles, sectors, works, frequencies)
  floorcheck db stats      # Show assignment and execution counts`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runDbMigrate,
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the catalog tables",
	Long:  "Insert the default roles, sectors, work types, frequencies and works. Existing rows are left untouched.",
	RunE:  runDbSeed,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbSeedCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// openDatabase migrates as part of opening
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	pterm.Success.Println("Migrations applied")
	return nil
}

func runDbSeed(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := catalog.Seed(database); err != nil {
		return errors.Wrap(err, "failed to seed catalog")
	}

	pterm.Success.Println("Catalog seeded")
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	var works, assignments, executions, pending int
	if err := database.QueryRow(`SELECT COUNT(*) FROM works`).Scan(&works); err != nil {
		return errors.Wrap(err, "failed to count works")
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM assignments WHERE canceled = 0`).Scan(&assignments); err != nil {
		return errors.Wrap(err, "failed to count assignments")
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&executions); err != nil {
		return errors.Wrap(err, "failed to count executions")
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM executions WHERE status = 'pending'`).Scan(&pending); err != nil {
		return errors.Wrap(err, "failed to count pending executions")
	}

	fmt.Printf("Database Path:      %s\n", cfg.Database.Path)
	fmt.Printf("Works:              %d\n", works)
	fmt.Printf("Active Assignments: %d\n", assignments)
	fmt.Printf("Executions:         %d (%d pending)\n", executions, pending)
	return nil
}

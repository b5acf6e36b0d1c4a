package commands

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/maint"
)

// GenerateCmd runs the assignment generator once and exits. The serve daemon
// runs the same generator on a ticker; this command covers provisioning and
// cron-style setups.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the assignment generator once",
	Long: `Create the missing work-to-sector assignments for every cataloged work.

Heavy works also get a pending placeholder in the execution log so they show
up on the next day shift.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	generator := maint.NewGenerator(database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := generator.GenerateAssignments(ctx, time.Now())
	if err != nil {
		return errors.Wrap(err, "generator failed")
	}

	if created == 0 {
		pterm.Info.Println("No new assignments needed")
	} else {
		pterm.Success.Printf("Created %d assignments\n", created)
	}
	return nil
}

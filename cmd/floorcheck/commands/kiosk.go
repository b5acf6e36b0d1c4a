package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/errors"
)

// KioskCmd manages kiosk-to-sector bindings
var KioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Manage kiosk-to-sector bindings",
	Long: `Bind this kiosk to the sectors it serves. The lowest position is the
kiosk's home sector; higher positions are failover sectors tried when the
home sector has no due work.

Examples:
  floorcheck kiosk ls                  # Show this kiosk's sectors
  floorcheck kiosk assign 2 --pos 0    # Make sector 2 the home sector
  floorcheck kiosk unassign 2`,
}

var kioskLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List this kiosk's sectors in failover order",
	RunE:  runKioskLs,
}

var kioskAssignCmd = &cobra.Command{
	Use:   "assign <sector-id>",
	Short: "Bind this kiosk to a sector",
	Args:  cobra.ExactArgs(1),
	RunE:  runKioskAssign,
}

var kioskUnassignCmd = &cobra.Command{
	Use:   "unassign <sector-id>",
	Short: "Remove a kiosk-to-sector binding",
	Args:  cobra.ExactArgs(1),
	RunE:  runKioskUnassign,
}

var kioskPositionFlag int

func init() {
	KioskCmd.AddCommand(kioskLsCmd)
	KioskCmd.AddCommand(kioskAssignCmd)
	KioskCmd.AddCommand(kioskUnassignCmd)
	kioskAssignCmd.Flags().IntVar(&kioskPositionFlag, "pos", 0, "Failover position (0 = home sector)")
}

func kioskName() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", errors.Wrap(err, "failed to load configuration")
	}
	return cfg.Kiosk.Name, nil
}

func runKioskLs(cmd *cobra.Command, args []string) error {
	name, err := kioskName()
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	sectors, err := catalog.NewKioskStore(database).SectorsFor(name)
	if err != nil {
		return err
	}

	if len(sectors) == 0 {
		pterm.Info.Printf("Kiosk %q has no sector bindings\n", name)
		return nil
	}

	fmt.Printf("Kiosk: %s\n", name)
	for i, sec := range sectors {
		marker := "failover"
		if i == 0 {
			marker = "home"
		}
		fmt.Printf("  %d. %s (id %d, %s)\n", i+1, sec.Name, sec.ID, marker)
	}
	return nil
}

func runKioskAssign(cmd *cobra.Command, args []string) error {
	sectorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sector id %q", args[0])
	}

	name, err := kioskName()
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := catalog.NewKioskStore(database).Assign(name, sectorID, kioskPositionFlag); err != nil {
		return err
	}

	pterm.Success.Printf("Bound kiosk %q to sector %d at position %d\n", name, sectorID, kioskPositionFlag)
	return nil
}

func runKioskUnassign(cmd *cobra.Command, args []string) error {
	sectorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sector id %q", args[0])
	}

	name, err := kioskName()
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := catalog.NewKioskStore(database).Unassign(name, sectorID); err != nil {
		return err
	}

	pterm.Success.Printf("Removed sector %d from kiosk %q\n", sectorID, name)
	return nil
}

package catalog

import (
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
)

// Seed populates the reference dictionaries with the default factory catalog.
// Every insert is OR IGNORE so seeding an already-initialized database is a
// no-op; operators can re-run it safely after upgrades.
func Seed(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin seed transaction")
	}
	defer tx.Rollback()

	roles := []Role{
		{ID: RoleOperator, Name: "operator"},
		{ID: RoleTechnician, Name: "technician"},
		{ID: RoleAdministrator, Name: "administrator"},
	}
	for _, r := range roles {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO roles (id, name) VALUES (?, ?)`, r.ID, r.Name); err != nil {
			return errors.Wrapf(err, "failed to seed role %q", r.Name)
		}
	}

	sectors := []Sector{
		{ID: 1, Name: "Sector 1"},
		{ID: 2, Name: "Sector 2"},
	}
	for _, sec := range sectors {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO sectors (id, name) VALUES (?, ?)`, sec.ID, sec.Name); err != nil {
			return errors.Wrapf(err, "failed to seed sector %q", sec.Name)
		}
	}

	workTypes := []WorkType{
		{ID: WorkTypeHeavy, Name: "heavy"},
		{ID: WorkTypeRoutine, Name: "routine"},
	}
	for _, wt := range workTypes {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO work_types (id, name) VALUES (?, ?)`, wt.ID, wt.Name); err != nil {
			return errors.Wrapf(err, "failed to seed work type %q", wt.Name)
		}
	}

	freqs := []Frequency{
		{ID: 1, Name: "every shift", Kind: FreqKindShift},
		{ID: 2, Name: "weekly", Kind: FreqKindDays, IntervalDays: 7},
		{ID: 3, Name: "monthly", Kind: FreqKindDays, IntervalDays: 30},
		{ID: 4, Name: "quarterly", Kind: FreqKindDays, IntervalDays: 91},
		{ID: 5, Name: "yearly", Kind: FreqKindDays, IntervalDays: 365},
	}
	for _, f := range freqs {
		var days, hours interface{}
		if f.IntervalDays > 0 {
			days = f.IntervalDays
		}
		if f.IntervalHours > 0 {
			hours = f.IntervalHours
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO frequencies (id, name, kind, interval_days, interval_hours) VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Kind, days, hours,
		); err != nil {
			return errors.Wrapf(err, "failed to seed frequency %q", f.Name)
		}
	}

	now := time.Now().Format(time.RFC3339)
	for _, w := range DefaultWorks() {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO works (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
			w.ID, w.Name, w.Description, now,
		); err != nil {
			return errors.Wrapf(err, "failed to seed work %q", w.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit seed transaction")
	}

	logger.Logger.Infow("Catalog seeded",
		"roles", len(roles),
		"sectors", len(sectors),
		"frequencies", len(freqs),
		"works", len(DefaultWorks()))
	return nil
}

// DefaultWorks returns the stock work dictionary. Ids are stable lookup keys
// used by the assignment generator's work->frequency table.
func DefaultWorks() []Work {
	return []Work{
		{ID: 1, Name: "Check oil level in hydraulic unit"},
		{ID: 2, Name: "Inspect coolant supply lines"},
		{ID: 3, Name: "Check spindle for abnormal noise"},
		{ID: 4, Name: "Clean chip conveyor intake"},
		{ID: 5, Name: "Inspect safety guard interlocks"},
		{ID: 6, Name: "Check pneumatic pressure gauges"},
		{ID: 7, Name: "Wipe down control panel and screens"},
		{ID: 8, Name: "Inspect tool holders for wear"},
		{ID: 9, Name: "Check emergency stop buttons"},
		{ID: 10, Name: "Verify lubrication pump operation"},
		{ID: 11, Name: "Inspect belt tension on drive units"},
		{ID: 12, Name: "Check fluid levels in coolant tank"},
		{ID: 13, Name: "Inspect electrical cabinet fans"},
		{ID: 14, Name: "Check work area lighting"},
		{ID: 15, Name: "Replace hydraulic filter element"},
		{ID: 16, Name: "Overhaul spindle bearing assembly"},
		{ID: 17, Name: "Replace coolant and flush tank"},
		{ID: 18, Name: "Calibrate axis positioning"},
		{ID: 19, Name: "Service gearbox and replace oil"},
		{ID: 20, Name: "Grease linear guide rails"},
		{ID: 21, Name: "Inspect and retorque foundation bolts"},
	}
}

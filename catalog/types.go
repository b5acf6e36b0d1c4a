// Package catalog holds the reference dictionaries the maintenance engine is
// built on: roles, production sectors, work types, recurrence frequencies and
// the works themselves.
package catalog

import "time"

// Well-known role ids. The resolver treats administrators specially (they
// manage the catalog, they do not perform work).
const (
	RoleOperator      = 1
	RoleTechnician    = 2
	RoleAdministrator = 4
)

// Well-known work type ids.
const (
	WorkTypeHeavy   = 1
	WorkTypeRoutine = 2
)

// Frequency kinds.
const (
	FreqKindShift = "shift" // due every shift, unconditionally
	FreqKindDays  = "days"  // due when interval_days elapsed since last execution
	FreqKindHours = "hours" // due when interval_hours elapsed since last execution
)

// FreqEveryShift is the id of the per-shift frequency seeded by Seed.
const FreqEveryShift = 1

// Role is an operator role (operator, technician, administrator).
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Sector is a production sector on the factory floor.
type Sector struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WorkType classifies works as routine or heavy.
type WorkType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Frequency describes how often an assigned work recurs.
type Frequency struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	IntervalDays  int    `json:"interval_days,omitempty"`  // set when Kind == "days"
	IntervalHours int    `json:"interval_hours,omitempty"` // set when Kind == "hours"
}

// Interval returns the recurrence interval as a duration. Zero for per-shift
// frequencies, which recur unconditionally.
func (f Frequency) Interval() time.Duration {
	switch f.Kind {
	case FreqKindDays:
		return time.Duration(f.IntervalDays) * 24 * time.Hour
	case FreqKindHours:
		return time.Duration(f.IntervalHours) * time.Hour
	default:
		return 0
	}
}

// Work is a maintenance or inspection task definition.
type Work struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

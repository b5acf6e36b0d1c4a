// Package shift maps wall-clock time to the two fixed 12-hour production
// shifts: day (08:00-20:00) and night (20:00-08:00).
//
// The shift-start timestamp is the canonical identifier of a shift window and
// serves as the dedup key for execution records: "today's day shift" and
// "today's night shift" are distinguished solely by their start timestamps.
package shift

import "time"

// Shift boundary hours, local time.
const (
	DayStartHour   = 8
	NightStartHour = 20
)

// Start returns the start timestamp of the shift containing t, in t's location.
//
//	08:00 <= t < 20:00  -> today 08:00 (day shift)
//	00:00 <= t < 08:00  -> yesterday 20:00 (night shift, spilled over midnight)
//	20:00 <= t < 24:00  -> today 20:00 (night shift)
//
// Start is idempotent: a shift-start timestamp maps to itself.
func Start(t time.Time) time.Time {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())

	switch h := t.Hour(); {
	case h >= DayStartHour && h < NightStartHour:
		return midnight.Add(DayStartHour * time.Hour)
	case h < DayStartHour:
		return midnight.AddDate(0, 0, -1).Add(NightStartHour * time.Hour)
	default:
		return midnight.Add(NightStartHour * time.Hour)
	}
}

// IsDay reports whether t falls in the day shift (08:00-20:00).
func IsDay(t time.Time) bool {
	h := t.Hour()
	return h >= DayStartHour && h < NightStartHour
}

// Next returns the start of the shift following the one containing t.
func Next(t time.Time) time.Time {
	return Start(t).Add(12 * time.Hour)
}

// NextDayStart returns the next 08:00 strictly after t. The generator seeds
// placeholder due entries for heavy work at this boundary.
func NextDayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	start := time.Date(year, month, day, DayStartHour, 0, 0, 0, t.Location())
	if !start.After(t) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

package maint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/shift"
)

// Mid-day-shift reference instant used throughout
var noon = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)

func sectorID(id int64) *int64 { return &id }

func TestResolveDuePerShiftAlwaysDue(t *testing.T) {
	conn := createSeededDB(t)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].AssignmentID)
	assert.Equal(t, "Check oil level in hydraulic unit", due[0].WorkName)
	assert.Equal(t, "routine", due[0].WorkType)
	assert.Equal(t, shift.Start(noon), due[0].DueAt)
}

func TestResolveDueAdminAlwaysEmpty(t *testing.T) {
	conn := createSeededDB(t)
	createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleAdministrator, catalog.WorkTypeRoutine, 1)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleAdministrator, sectorID(1), noon)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestResolveDueFiltersRoleAndSector(t *testing.T) {
	conn := createSeededDB(t)
	createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)
	createTestAssignment(t, conn, 2, catalog.FreqEveryShift, catalog.RoleTechnician, catalog.WorkTypeRoutine, 1)
	createTestAssignment(t, conn, 3, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 2)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(1), due[0].WorkID)
}

func TestResolveDueIntervalElapsed(t *testing.T) {
	conn := createSeededDB(t)
	resolver := NewResolver(conn)
	// Weekly frequency (id 2, 7 days)
	id := createTestAssignment(t, conn, 4, 2, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	t.Run("never executed is due", func(t *testing.T) {
		due, err := resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
		require.NoError(t, err)
		require.Len(t, due, 1)
	})

	t.Run("executed recently is not due", func(t *testing.T) {
		recent := noon.AddDate(0, 0, -3).Format(time.RFC3339)
		_, err := conn.Exec(`UPDATE assignments SET last_exec_at = ? WHERE id = ?`, recent, id)
		require.NoError(t, err)

		due, err := resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("interval elapsed is due again", func(t *testing.T) {
		old := noon.AddDate(0, 0, -8).Format(time.RFC3339)
		_, err := conn.Exec(`UPDATE assignments SET last_exec_at = ? WHERE id = ?`, old, id)
		require.NoError(t, err)

		due, err := resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
		require.NoError(t, err)
		require.Len(t, due, 1)
	})
}

func TestResolveDueExcludesActioned(t *testing.T) {
	conn := createSeededDB(t)
	resolver := NewResolver(conn)
	recorder := NewRecorder(conn)
	createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	due, err := resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, err = recorder.RecordExecution(context.Background(), due[0].AssignmentID, 7, ActionComplete, "", noon)
	require.NoError(t, err)

	due, err = resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestResolveDueExcludesPendingPlaceholder(t *testing.T) {
	conn := createSeededDB(t)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	// A pending placeholder occupies this window's dedup key; the task is
	// scheduled, not offered a second time
	_, err := conn.Exec(
		`INSERT INTO executions (assignment_id, status, due_at, created_at) VALUES (?, 'pending', ?, ?)`,
		id, shift.Start(noon).Format(time.RFC3339), noon.Format(time.RFC3339))
	require.NoError(t, err)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	assert.Empty(t, due)

	// The next shift window has no row yet, so the task comes back
	night := time.Date(2026, time.March, 10, 21, 0, 0, 0, time.Local)
	due, err = NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), night)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestResolveDueAllSectorsWhenNoneGiven(t *testing.T) {
	conn := createSeededDB(t)
	first := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)
	second := createTestAssignment(t, conn, 2, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 2)
	createTestAssignment(t, conn, 3, catalog.FreqEveryShift, catalog.RoleTechnician, catalog.WorkTypeRoutine, 2)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, nil, noon)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first, due[0].AssignmentID)
	assert.Equal(t, int64(1), due[0].SectorID)
	assert.Equal(t, second, due[1].AssignmentID)
	assert.Equal(t, int64(2), due[1].SectorID)
}

func TestResolveDueIgnoresCanceled(t *testing.T) {
	conn := createSeededDB(t)
	store := NewAssignmentStore(conn)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)
	require.NoError(t, store.Cancel(id))

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	assert.Empty(t, due)
}

// Per-shift work completed in the day shift reappears in the night shift:
// the shift-start dedup key differs, so the night window is a fresh slate.
func TestResolveDueAcrossShifts(t *testing.T) {
	conn := createSeededDB(t)
	resolver := NewResolver(conn)
	recorder := NewRecorder(conn)
	createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	// Day shift: due, then completed
	due, err := resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	require.Len(t, due, 1)
	_, err = recorder.RecordExecution(context.Background(), due[0].AssignmentID, 7, ActionComplete, "", noon)
	require.NoError(t, err)

	// Still day shift: gone
	due, err = resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Night shift: due again
	night := time.Date(2026, time.March, 10, 21, 0, 0, 0, time.Local)
	due, err = resolver.ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), night)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, shift.Start(night), due[0].DueAt)
}

func TestResolveDueOrderedByAssignment(t *testing.T) {
	conn := createSeededDB(t)
	first := createTestAssignment(t, conn, 3, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)
	second := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	due, err := NewResolver(conn).ResolveDue(context.Background(), catalog.RoleOperator, sectorID(1), noon)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first, due[0].AssignmentID)
	assert.Equal(t, second, due[1].AssignmentID)
}

package maint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/shift"
)

func TestRecordExecutionComplete(t *testing.T) {
	conn := createSeededDB(t)
	recorder := NewRecorder(conn)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	exec, err := recorder.RecordExecution(context.Background(), id, 7, ActionComplete, "", noon)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, shift.Start(noon), exec.DueAt)
	require.NotNil(t, exec.OperatorID)
	assert.Equal(t, int64(7), *exec.OperatorID)

	// last_exec_at moved to the shift start in the same transaction
	a, err := NewAssignmentStore(conn).Get(id)
	require.NoError(t, err)
	require.NotNil(t, a.LastExecAt)
	assert.Equal(t, shift.Start(noon), *a.LastExecAt)
}

func TestRecordExecutionFailRequiresReason(t *testing.T) {
	conn := createSeededDB(t)
	recorder := NewRecorder(conn)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	_, err := recorder.RecordExecution(context.Background(), id, 7, ActionFail, "", noon)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequest(err))

	exec, err := recorder.RecordExecution(context.Background(), id, 7, ActionFail, "valve seized", noon)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, exec.Status)
	assert.Equal(t, "valve seized", exec.Comment)
}

func TestRecordExecutionUnknownAction(t *testing.T) {
	conn := createSeededDB(t)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	_, err := NewRecorder(conn).RecordExecution(context.Background(), id, 7, "postpone", "", noon)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequest(err))
}

func TestRecordExecutionAlreadyProcessed(t *testing.T) {
	conn := createSeededDB(t)
	recorder := NewRecorder(conn)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	_, err := recorder.RecordExecution(context.Background(), id, 7, ActionFail, "leaking seal", noon)
	require.NoError(t, err)

	// Second action in the same shift window is rejected, whatever the action
	_, err = recorder.RecordExecution(context.Background(), id, 8, ActionComplete, "", noon.Add(time.Hour))
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyProcessed(err))

	// The recorded outcome is untouched
	exec, err := NewExecutionStore(conn).GetForShift(id, shift.Start(noon))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, exec.Status)
	assert.Equal(t, int64(7), *exec.OperatorID)
}

func TestRecordExecutionClaimsPlaceholder(t *testing.T) {
	conn := createSeededDB(t)
	recorder := NewRecorder(conn)
	id := createTestAssignment(t, conn, 16, 5, catalog.RoleTechnician, catalog.WorkTypeHeavy, 1)

	dueAt := shift.Start(noon)
	_, err := conn.Exec(
		`INSERT INTO executions (assignment_id, status, due_at, created_at) VALUES (?, 'pending', ?, ?)`,
		id, dueAt.Format(time.RFC3339), noon.Format(time.RFC3339))
	require.NoError(t, err)

	exec, err := recorder.RecordExecution(context.Background(), id, 9, ActionComplete, "done", noon)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)

	// Claimed in place: still exactly one row for the window
	var count int
	require.NoError(t, conn.QueryRow(
		`SELECT COUNT(*) FROM executions WHERE assignment_id = ?`, id).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecordExecutionUnknownAssignment(t *testing.T) {
	conn := createSeededDB(t)

	_, err := NewRecorder(conn).RecordExecution(context.Background(), 999, 7, ActionComplete, "", noon)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecordExecutionCanceledAssignment(t *testing.T) {
	conn := createSeededDB(t)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)
	require.NoError(t, NewAssignmentStore(conn).Cancel(id))

	_, err := NewRecorder(conn).RecordExecution(context.Background(), id, 7, ActionComplete, "", noon)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequest(err))
}

// Concurrent records for the same (assignment, shift window) must yield
// exactly one success; every loser sees ErrAlreadyProcessed.
func TestRecordExecutionAtMostOnce(t *testing.T) {
	conn := createSeededDB(t)
	recorder := NewRecorder(conn)
	id := createTestAssignment(t, conn, 1, catalog.FreqEveryShift, catalog.RoleOperator, catalog.WorkTypeRoutine, 1)

	const racers = 8
	results := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = recorder.RecordExecution(
				context.Background(), id, int64(100+i), ActionComplete, "", noon)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, errors.IsAlreadyProcessed(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)

	var count int
	require.NoError(t, conn.QueryRow(
		`SELECT COUNT(*) FROM executions WHERE assignment_id = ?`, id).Scan(&count))
	assert.Equal(t, 1, count)
}

package maint

import (
	"database/sql"
	"testing"

	"go.uber.org/zap"

	"github.com/teranos/floorcheck/catalog"
	fctest "github.com/teranos/floorcheck/internal/testing"
)

// testLogger returns a no-op sugared logger for ticker tests.
func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// createSeededDB creates an in-memory database with the schema applied and
// the default catalog seeded.
func createSeededDB(t *testing.T) *sql.DB {
	t.Helper()

	conn := fctest.CreateMigratedTestDB(t)
	if err := catalog.Seed(conn); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
	return conn
}

// createTestAssignment inserts an active assignment and returns its id.
func createTestAssignment(t *testing.T, conn *sql.DB, workID, freqID, roleID, workTypeID, sectorID int64) int64 {
	t.Helper()

	id, err := NewAssignmentStore(conn).Create(&Assignment{
		WorkID:     workID,
		FreqID:     freqID,
		RoleID:     roleID,
		WorkTypeID: workTypeID,
		SectorID:   sectorID,
	})
	if err != nil {
		t.Fatalf("Failed to create test assignment: %v", err)
	}
	return id
}

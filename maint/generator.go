package maint

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
	"github.com/teranos/floorcheck/shift"
)

// workFrequencies maps work id to the frequency it recurs on. This dictionary
// is authoritative: a work with no entry here gets no assignment, logged and
// skipped, rather than a guessed frequency.
var workFrequencies = map[int64]int64{
	1: 1, 2: 1, 3: 1, 4: 2, 5: 2, 6: 2, 7: 1,
	8: 2, 9: 1, 10: 1, 11: 1, 12: 1, 13: 1, 14: 1,
	15: 2, 16: 5, 17: 5, 18: 5, 19: 4, 20: 1, 21: 3,
}

// routineWorkMaxID splits the work dictionary: ids at or below it are routine
// operator checks, above it heavy technician jobs.
const routineWorkMaxID = 14

// Generator creates missing assignments for every (work, sector) pair.
type Generator struct {
	db          *sql.DB
	catalog     *catalog.Store
	assignments *AssignmentStore
}

// NewGenerator creates a new assignment generator
func NewGenerator(database *sql.DB) *Generator {
	return &Generator{
		db:          database,
		catalog:     catalog.NewStore(database),
		assignments: NewAssignmentStore(database),
	}
}

// GenerateAssignments walks the full work x sector grid and creates an
// assignment wherever none exists yet. A canceled assignment counts as
// existing, so cancellation sticks across generator runs. Returns the number
// of assignments created.
//
// Routine works additionally seed a pending placeholder execution due at the
// next day-shift start, so the daily checks enter the schedule at a fixed
// 08:00 slot instead of whenever the generator happened to run.
func (g *Generator) GenerateAssignments(ctx context.Context, now time.Time) (int, error) {
	works, err := g.catalog.ListWorks()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list works for generation")
	}
	sectors, err := g.catalog.ListSectors()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list sectors for generation")
	}

	created := 0
	for _, work := range works {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		freqID, ok := workFrequencies[work.ID]
		if !ok {
			logger.Logger.Warnw("Work has no frequency mapping, skipping",
				"work_id", work.ID,
				"work_name", work.Name)
			continue
		}

		roleID, workTypeID := classifyWork(work.ID)

		for _, sector := range sectors {
			exists, err := g.assignments.ExistsForWorkSector(work.ID, sector.ID)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}

			assignmentID, err := g.assignments.Create(&Assignment{
				WorkID:     work.ID,
				FreqID:     freqID,
				RoleID:     roleID,
				WorkTypeID: workTypeID,
				SectorID:   sector.ID,
			})
			if err != nil {
				if errors.Is(err, errors.ErrConflict) {
					// Raced with a concurrent generator run
					continue
				}
				return created, err
			}
			created++

			if workTypeID == catalog.WorkTypeRoutine {
				if err := g.seedPlaceholder(ctx, assignmentID, now); err != nil {
					return created, err
				}
			}
		}
	}

	if created > 0 {
		logger.Logger.Infow("Assignments generated", "created", created)
	}
	return created, nil
}

// classifyWork derives role and work type from the work dictionary split:
// routine checks belong to operators, heavy jobs to technicians.
func classifyWork(workID int64) (roleID, workTypeID int64) {
	if workID <= routineWorkMaxID {
		return catalog.RoleOperator, catalog.WorkTypeRoutine
	}
	return catalog.RoleTechnician, catalog.WorkTypeHeavy
}

// seedPlaceholder writes a pending execution due at the next day-shift start.
// The UNIQUE (assignment_id, due_at) key makes re-seeding a no-op. A never
// executed assignment also gets its last_exec_at anchored to the current
// shift, so interval recurrence counts from the seeding, not from never.
func (g *Generator) seedPlaceholder(ctx context.Context, assignmentID int64, now time.Time) error {
	dueAt := shift.NextDayStart(now)

	_, err := g.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO executions (assignment_id, status, due_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		assignmentID, StatusPending, dueAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to seed placeholder for assignment %d", assignmentID)
	}

	_, err = g.db.ExecContext(ctx,
		`UPDATE assignments SET last_exec_at = ?, updated_at = ?
		 WHERE id = ? AND last_exec_at IS NULL`,
		shift.Start(now).Format(time.RFC3339), now.Format(time.RFC3339), assignmentID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to anchor last execution for assignment %d", assignmentID)
	}
	return nil
}

// Package maint is the maintenance engine: standing assignments, their
// execution log, the due-task resolver, the completion recorder and the
// assignment generator.
package maint

import "time"

// Assignment is a standing obligation: a work performed at a sector, by a
// role, on a frequency. last_exec_at is nil until the work is first recorded.
type Assignment struct {
	ID         int64
	WorkID     int64
	FreqID     int64
	RoleID     int64
	WorkTypeID int64
	SectorID   int64
	Canceled   bool
	LastExecAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DueTask is a resolver result row: one task an operator should action this
// shift.
type DueTask struct {
	AssignmentID int64     `json:"assignment_id"`
	WorkID       int64     `json:"work_id"`
	WorkName     string    `json:"work_name"`
	WorkType     string    `json:"work_type"`
	SectorID     int64     `json:"sector_id"`
	DueAt        time.Time `json:"due_at"`
}

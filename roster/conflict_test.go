package roster_test

import (
	"testing"
	"time"

	"github.com/fieldforce/payroll-engine/roster"
)

func at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
}

func shift(id string, start, end time.Time, status roster.ShiftStatus) roster.Shift {
	return roster.Shift{
		ID:         roster.ShiftID(id),
		EmployeeID: "emp-1",
		SiteID:     "site-1",
		Start:      start,
		End:        end,
		Status:     status,
	}
}

func TestConflicts_CandidateStartInsideExisting(t *testing.T) {
	existing := []roster.Shift{shift("s1", at(10, 8), at(10, 16), roster.ShiftScheduled)}

	if !roster.Conflicts(at(10, 12), at(10, 20), existing) {
		t.Error("candidate starting inside an existing shift must conflict")
	}
}

func TestConflicts_CandidateEndInsideExisting(t *testing.T) {
	existing := []roster.Shift{shift("s1", at(10, 8), at(10, 16), roster.ShiftScheduled)}

	if !roster.Conflicts(at(10, 4), at(10, 12), existing) {
		t.Error("candidate ending inside an existing shift must conflict")
	}
}

func TestConflicts_CandidateContainsExisting(t *testing.T) {
	existing := []roster.Shift{shift("s1", at(10, 10), at(10, 12), roster.ShiftScheduled)}

	if !roster.Conflicts(at(10, 8), at(10, 16), existing) {
		t.Error("candidate fully containing an existing shift must conflict")
	}
}

func TestConflicts_TouchingBoundaries_Conflict(t *testing.T) {
	// GIVEN: An existing shift ending at 16:00
	// WHEN: A candidate starts exactly at 16:00
	// THEN: Boundary equality is treated as a conflict

	existing := []roster.Shift{shift("s1", at(10, 8), at(10, 16), roster.ShiftScheduled)}

	if !roster.Conflicts(at(10, 16), at(10, 22), existing) {
		t.Error("candidate starting exactly at an existing end must conflict")
	}
	if !roster.Conflicts(at(10, 2), at(10, 8), existing) {
		t.Error("candidate ending exactly at an existing start must conflict")
	}
}

func TestConflicts_DisjointIntervals_NoConflict(t *testing.T) {
	existing := []roster.Shift{shift("s1", at(10, 8), at(10, 16), roster.ShiftScheduled)}

	if roster.Conflicts(at(11, 8), at(11, 16), existing) {
		t.Error("next-day candidate must not conflict")
	}
	if roster.Conflicts(at(10, 17), at(10, 22), existing) {
		t.Error("later same-day candidate with a gap must not conflict")
	}
}

func TestConflicts_CancelledShiftsIgnored(t *testing.T) {
	// GIVEN: An overlapping shift that was cancelled
	// THEN: It never conflicts

	existing := []roster.Shift{shift("s1", at(10, 8), at(10, 16), roster.ShiftCancelled)}

	if roster.Conflicts(at(10, 8), at(10, 16), existing) {
		t.Error("cancelled shifts must be ignored by conflict detection")
	}
}

func TestFirstConflict_NamesTheCollidingShift(t *testing.T) {
	existing := []roster.Shift{
		shift("s1", at(9, 8), at(9, 16), roster.ShiftScheduled),
		shift("s2", at(10, 8), at(10, 16), roster.ShiftScheduled),
	}

	hit, found := roster.FirstConflict(at(10, 12), at(10, 20), existing)
	if !found {
		t.Fatal("expected a conflict")
	}
	if hit.ID != "s2" {
		t.Errorf("expected conflict with s2, got %s", hit.ID)
	}
}

/*
assign.go - Bulk shift assignment with partial-success semantics

PURPOSE:
  Expands (employee list x date range x daily time window) into candidate
  shifts, gates each through the conflict detector, and persists the
  non-conflicting ones. One employee's conflict never blocks the rest of
  the batch: the result reports how many shifts were created and exactly
  who was rejected and why.

BATCH SEMANTICS:
  - Candidates are checked against persisted non-cancelled shifts AND
    against earlier candidates accepted in the same batch, so a batch
    can't create overlapping shifts for one employee either.
  - Job-qualification and site-requirement checks are the roster
    collaborator's job and happen before this flow is invoked.

OVERNIGHT SHIFTS:
  A daily window whose end does not come after its start (e.g. 22:00-06:00)
  rolls the end into the next day.

SEE ALSO:
  - conflict.go: The overlap gate
  - shift.go:    ShiftRepository
*/
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fieldforce/payroll-engine/staff"
)

// =============================================================================
// BULK ASSIGNMENT
// =============================================================================

type BulkAssignInput struct {
	SiteID      SiteID
	JobID       JobID
	EmployeeIDs []staff.EmployeeID

	// Date range, inclusive on both ends. Time-of-day components are ignored.
	From time.Time
	To   time.Time

	// Daily shift window as offsets from midnight, in the dates' location.
	DailyStart time.Duration
	DailyEnd   time.Duration
}

// ConflictReport names one rejected assignment.
type ConflictReport struct {
	EmployeeID staff.EmployeeID
	Name       string
	Date       time.Time
	Reason     string
}

type BulkAssignResult struct {
	Created   int
	Conflicts []ConflictReport
}

// BulkAssigner creates shifts in bulk.
type BulkAssigner struct {
	Shifts    ShiftRepository
	Sites     SiteRepository
	Employees staff.Directory
}

// Assign expands the input into candidate shifts and persists the
// non-conflicting ones. Partial success: conflicts are reported, never fatal.
func (ba *BulkAssigner) Assign(ctx context.Context, in BulkAssignInput) (BulkAssignResult, error) {
	if in.To.Before(in.From) {
		return BulkAssignResult{}, fmt.Errorf("invalid date range: to %s before from %s",
			in.To.Format("2006-01-02"), in.From.Format("2006-01-02"))
	}
	if _, err := ba.Sites.GetSite(ctx, in.SiteID); err != nil {
		return BulkAssignResult{}, fmt.Errorf("bulk assign: %w", err)
	}

	from := truncateToDay(in.From)
	to := truncateToDay(in.To)

	var result BulkAssignResult
	for _, empID := range in.EmployeeIDs {
		emp, err := ba.Employees.GetEmployee(ctx, empID)
		if err != nil {
			if errors.Is(err, staff.ErrEmployeeNotFound) {
				result.Conflicts = append(result.Conflicts, ConflictReport{
					EmployeeID: empID,
					Date:       from,
					Reason:     "employee not found",
				})
				continue
			}
			return result, fmt.Errorf("bulk assign: lookup %s: %w", empID, err)
		}

		// Existing shifts once per employee; +1 day on the upper bound so
		// overnight candidates ending past midnight are still checked.
		existing, err := ba.Shifts.ListShiftsByEmployee(ctx, empID, from, to.AddDate(0, 0, 1))
		if err != nil {
			return result, fmt.Errorf("bulk assign: list shifts for %s: %w", empID, err)
		}

		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			start := day.Add(in.DailyStart)
			end := day.Add(in.DailyEnd)
			if !end.After(start) {
				end = end.AddDate(0, 0, 1)
			}

			if hit, found := FirstConflict(start, end, existing); found {
				result.Conflicts = append(result.Conflicts, ConflictReport{
					EmployeeID: empID,
					Name:       emp.Name,
					Date:       day,
					Reason: fmt.Sprintf("overlaps shift %s (%s - %s)", hit.ID,
						hit.Start.Format("2006-01-02 15:04"), hit.End.Format("2006-01-02 15:04")),
				})
				continue
			}

			shift := Shift{
				ID:         ShiftID(ulid.Make().String()),
				EmployeeID: empID,
				SiteID:     in.SiteID,
				JobID:      in.JobID,
				Start:      start,
				End:        end,
				Status:     ShiftScheduled,
			}
			if err := ba.Shifts.CreateShift(ctx, shift); err != nil {
				return result, fmt.Errorf("bulk assign: create shift for %s: %w", empID, err)
			}

			// Later candidates in this batch must see this one.
			existing = append(existing, shift)
			result.Created++
		}
	}

	return result, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

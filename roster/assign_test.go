package roster_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
	"github.com/fieldforce/payroll-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newAssigner(t *testing.T) (*roster.BulkAssigner, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.PutSite(roster.Site{
		ID:           "site-1",
		Name:         "Warehouse North",
		Location:     geo.Point{Lat: 9.0108, Lng: 38.7613},
		RadiusMeters: 100,
	})
	for _, id := range []string{"emp-1", "emp-2", "emp-3"} {
		store.PutEmployee(staff.Employee{
			ID:         staff.EmployeeID(id),
			Name:       "Employee " + id,
			HourlyRate: decimal.NewFromInt(50),
			Active:     true,
		})
	}
	assigner := &roster.BulkAssigner{Shifts: store, Sites: store, Employees: store}
	return assigner, store
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// BULK ASSIGNMENT TESTS
// =============================================================================

func TestBulkAssign_AllClear_CreatesEveryShift(t *testing.T) {
	// GIVEN: 3 employees with empty rosters
	// WHEN: Assigning a 2-day range
	// THEN: 6 shifts are created, no conflicts

	assigner, _ := newAssigner(t)

	result, err := assigner.Assign(context.Background(), roster.BulkAssignInput{
		SiteID:      "site-1",
		JobID:       "job-1",
		EmployeeIDs: []staff.EmployeeID{"emp-1", "emp-2", "emp-3"},
		From:        day(10),
		To:          day(11),
		DailyStart:  8 * time.Hour,
		DailyEnd:    16 * time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, 6, result.Created)
	assert.Empty(t, result.Conflicts)
}

func TestBulkAssign_OneEmployeeOverlaps_PartialSuccess(t *testing.T) {
	// GIVEN: emp-2 already has a shift overlapping the window on day 10
	// WHEN: Bulk-assigning all 3 employees for day 10
	// THEN: 2 shifts are created and exactly 1 conflict names emp-2

	assigner, store := newAssigner(t)
	require.NoError(t, store.CreateShift(context.Background(), roster.Shift{
		ID:         "existing",
		EmployeeID: "emp-2",
		SiteID:     "site-1",
		Start:      day(10).Add(10 * time.Hour),
		End:        day(10).Add(14 * time.Hour),
		Status:     roster.ShiftScheduled,
	}))

	result, err := assigner.Assign(context.Background(), roster.BulkAssignInput{
		SiteID:      "site-1",
		JobID:       "job-1",
		EmployeeIDs: []staff.EmployeeID{"emp-1", "emp-2", "emp-3"},
		From:        day(10),
		To:          day(10),
		DailyStart:  8 * time.Hour,
		DailyEnd:    16 * time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, staff.EmployeeID("emp-2"), result.Conflicts[0].EmployeeID)
	assert.Equal(t, "Employee emp-2", result.Conflicts[0].Name)
	assert.Contains(t, result.Conflicts[0].Reason, "overlaps")
}

func TestBulkAssign_UnknownEmployee_ReportedNotFatal(t *testing.T) {
	assigner, _ := newAssigner(t)

	result, err := assigner.Assign(context.Background(), roster.BulkAssignInput{
		SiteID:      "site-1",
		JobID:       "job-1",
		EmployeeIDs: []staff.EmployeeID{"emp-1", "ghost"},
		From:        day(10),
		To:          day(10),
		DailyStart:  8 * time.Hour,
		DailyEnd:    16 * time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, staff.EmployeeID("ghost"), result.Conflicts[0].EmployeeID)
	assert.Equal(t, "employee not found", result.Conflicts[0].Reason)
}

func TestBulkAssign_OvernightWindow_RollsEndToNextDay(t *testing.T) {
	// GIVEN: A 22:00-06:00 daily window
	// THEN: The created shift ends the following day

	assigner, store := newAssigner(t)

	result, err := assigner.Assign(context.Background(), roster.BulkAssignInput{
		SiteID:      "site-1",
		JobID:       "job-1",
		EmployeeIDs: []staff.EmployeeID{"emp-1"},
		From:        day(10),
		To:          day(10),
		DailyStart:  22 * time.Hour,
		DailyEnd:    6 * time.Hour,
	})

	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	shifts, err := store.ListShiftsByEmployee(context.Background(), "emp-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, day(10).Add(22*time.Hour), shifts[0].Start)
	assert.Equal(t, day(11).Add(6*time.Hour), shifts[0].End)
}

func TestBulkAssign_UnknownSite_Fails(t *testing.T) {
	assigner, _ := newAssigner(t)

	_, err := assigner.Assign(context.Background(), roster.BulkAssignInput{
		SiteID:      "nowhere",
		EmployeeIDs: []staff.EmployeeID{"emp-1"},
		From:        day(10),
		To:          day(10),
		DailyStart:  8 * time.Hour,
		DailyEnd:    16 * time.Hour,
	})

	assert.ErrorIs(t, err, roster.ErrSiteNotFound)
}

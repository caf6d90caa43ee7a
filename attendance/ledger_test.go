package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
	"github.com/fieldforce/payroll-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	siteCenter = geo.Point{Lat: 9.0108, Lng: 38.7613}
	shiftStart = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	shiftEnd   = time.Date(2025, time.March, 10, 16, 0, 0, 0, time.UTC)
)

// metersNorth returns a point approximately n meters north of the site center.
func metersNorth(n float64) geo.Point {
	return geo.Point{Lat: siteCenter.Lat + n/111195.0, Lng: siteCenter.Lng}
}

func newTestLedger(t *testing.T) (*attendance.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.PutSite(roster.Site{ID: "site-1", Name: "Depot", Location: siteCenter, RadiusMeters: 100})
	store.PutEmployee(staff.Employee{ID: "emp-1", Name: "Abel", HourlyRate: decimal.NewFromInt(50), Active: true})
	require.NoError(t, store.CreateShift(context.Background(), roster.Shift{
		ID:         "shift-1",
		EmployeeID: "emp-1",
		SiteID:     "site-1",
		Start:      shiftStart,
		End:        shiftEnd,
		Status:     roster.ShiftScheduled,
	}))

	ledger := attendance.NewLedger(store, store, store)
	return ledger, store
}

func clockAt(ledger *attendance.Ledger, t time.Time) {
	ledger.Now = func() time.Time { return t }
}

// =============================================================================
// CLOCK-IN TESTS
// =============================================================================

func TestClockIn_InsideFence_VerifiedAndOpen(t *testing.T) {
	// GIVEN: Employee 50m from a site with a 100m fence
	// WHEN: Clocking in at shift start
	// THEN: Verified record, not late, pair is OPEN

	ledger, store := newTestLedger(t)
	clockAt(ledger, shiftStart)

	res, err := ledger.ClockIn(context.Background(), attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: metersNorth(50),
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Record.Verified)
	assert.False(t, res.Record.Late)
	assert.InDelta(t, 50, res.DistanceMeters, 1)

	_, open, err := store.FindOpenRecord(context.Background(), "emp-1", "shift-1")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestClockIn_OutsideFence_UnverifiedRecordPersisted(t *testing.T) {
	// GIVEN: Employee 150m away, fence radius 100m
	// WHEN: Clocking in
	// THEN: OK=false with distance ~150, an unverified record is persisted,
	//       and the pair is NOT open

	ledger, store := newTestLedger(t)
	clockAt(ledger, shiftStart)

	res, err := ledger.ClockIn(context.Background(), attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: metersNorth(150),
	})

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.InDelta(t, 150, res.DistanceMeters, 1)
	assert.False(t, res.Record.Verified)

	recs, err := store.ListRecordsByEmployee(context.Background(), "emp-1", shiftStart.Add(-time.Hour), shiftEnd)
	require.NoError(t, err)
	require.Len(t, recs, 1, "rejected attempt must still be audited")
	assert.False(t, recs[0].Verified)
	assert.Nil(t, recs[0].ClockOutAt)

	_, open, err := store.FindOpenRecord(context.Background(), "emp-1", "shift-1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestClockIn_RetryAfterMovingInside_Succeeds(t *testing.T) {
	// End-to-end scenario: fail at 150m, move to 50m, retry succeeds.

	ledger, store := newTestLedger(t)
	clockAt(ledger, shiftStart)
	ctx := context.Background()

	first, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: metersNorth(150),
	})
	require.NoError(t, err)
	require.False(t, first.OK)

	second, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: metersNorth(50),
	})
	require.NoError(t, err)
	assert.True(t, second.OK)
	assert.True(t, second.Record.Verified)

	recs, err := store.ListRecordsByEmployee(ctx, "emp-1", shiftStart.Add(-time.Hour), shiftEnd)
	require.NoError(t, err)
	assert.Len(t, recs, 2, "both the rejected and the verified attempt are recorded")
}

func TestClockIn_Duplicate_Rejected(t *testing.T) {
	ledger, _ := newTestLedger(t)
	clockAt(ledger, shiftStart)
	ctx := context.Background()

	_, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	require.NoError(t, err)

	_, err = ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestClockIn_LateBoundary(t *testing.T) {
	// Exactly 30 minutes after start is on time; one second more is late.

	cases := []struct {
		name string
		at   time.Time
		late bool
	}{
		{"exactly at grace boundary", shiftStart.Add(30 * time.Minute), false},
		{"one second past grace", shiftStart.Add(30*time.Minute + time.Second), true},
		{"early clock-in allowed", shiftStart.Add(-45 * time.Minute), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t)
			clockAt(ledger, tc.at)

			res, err := ledger.ClockIn(context.Background(), attendance.ClockInInput{
				EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
			})
			require.NoError(t, err)
			require.True(t, res.OK)
			assert.Equal(t, tc.late, res.Record.Late)
		})
	}
}

func TestClockIn_WrongEmployee_Rejected(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.PutEmployee(staff.Employee{ID: "emp-2", Name: "Sara", Active: true})
	clockAt(ledger, shiftStart)

	_, err := ledger.ClockIn(context.Background(), attendance.ClockInInput{
		EmployeeID: "emp-2", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrShiftMismatch)
}

func TestClockIn_InvalidCoordinates_Rejected(t *testing.T) {
	ledger, store := newTestLedger(t)
	clockAt(ledger, shiftStart)

	_, err := ledger.ClockIn(context.Background(), attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: geo.Point{Lat: 91, Lng: 0},
	})
	assert.ErrorIs(t, err, attendance.ErrInvalidCoordinates)

	recs, err := store.ListRecordsByEmployee(context.Background(), "emp-1", shiftStart.Add(-time.Hour), shiftEnd)
	require.NoError(t, err)
	assert.Empty(t, recs, "validation failures persist nothing")
}

// =============================================================================
// CLOCK-OUT TESTS
// =============================================================================

func TestClockOut_WithoutClockIn_Fails(t *testing.T) {
	ledger, _ := newTestLedger(t)
	clockAt(ledger, shiftEnd)

	_, err := ledger.ClockOut(context.Background(), attendance.ClockOutInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrNoOpenRecord)
}

func TestClockOut_AfterFailedClockIn_StillFails(t *testing.T) {
	// A rejected geofence attempt never opens the pair.

	ledger, _ := newTestLedger(t)
	clockAt(ledger, shiftStart)
	ctx := context.Background()

	res, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: metersNorth(150),
	})
	require.NoError(t, err)
	require.False(t, res.OK)

	_, err = ledger.ClockOut(ctx, attendance.ClockOutInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrNoOpenRecord)
}

func TestClockOut_ClosesRecordAndCompletesShift(t *testing.T) {
	// GIVEN: A verified clock-in at 08:00
	// WHEN: Clocking out at 17:30
	// THEN: Record closes with 9.5 worked hours, shift becomes COMPLETED

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	clockAt(ledger, shiftStart)
	_, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	require.NoError(t, err)

	clockAt(ledger, shiftStart.Add(9*time.Hour+30*time.Minute))
	res, err := ledger.ClockOut(ctx, attendance.ClockOutInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.WorkedHours.Equal(decimal.NewFromFloat(9.5)))
	require.NotNil(t, res.Record.ClockOutAt)

	shift, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, roster.ShiftCompleted, shift.Status)

	// Pair is CLOSED: a second clock-out fails.
	_, err = ledger.ClockOut(ctx, attendance.ClockOutInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrNoOpenRecord)
}

func TestClockIn_AfterClockOut_Rejected(t *testing.T) {
	// GIVEN: A completed shift (clock-in at 08:00, clock-out at 16:00)
	// WHEN: Clocking in again for the same shift
	// THEN: Rejected; the pair keeps exactly one verified record, so the
	//       shift's hours cannot be counted twice

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	clockAt(ledger, shiftStart)
	_, err := ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	require.NoError(t, err)

	clockAt(ledger, shiftEnd)
	_, err = ledger.ClockOut(ctx, attendance.ClockOutInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	require.NoError(t, err)

	_, err = ledger.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
	})
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)

	payable, err := store.ListVerifiedClosed(ctx, "emp-1", shiftStart.Add(-time.Hour), shiftEnd.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, payable, 1, "a clocked-out shift must stay a single payable record")
}

// =============================================================================
// INVARIANT: at most one verified record per (employee, shift)
// =============================================================================

func TestOpenRecordInvariant_UnderConcurrentClockIns(t *testing.T) {
	ledger, store := newTestLedger(t)
	clockAt(ledger, shiftStart)
	ctx := context.Background()

	const attempts = 16
	done := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := ledger.ClockIn(ctx, attendance.ClockInInput{
				EmployeeID: "emp-1", ShiftID: "shift-1", Location: siteCenter,
			})
			done <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if err := <-done; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one clock-in may win")

	recs, err := store.ListRecordsByEmployee(ctx, "emp-1", shiftStart.Add(-time.Hour), shiftEnd)
	require.NoError(t, err)
	open := 0
	for _, r := range recs {
		if r.Open() {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

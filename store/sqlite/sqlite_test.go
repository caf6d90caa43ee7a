package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/payroll"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
	"github.com/fieldforce/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var (
	depot = geo.Point{Lat: 9.0108, Lng: 38.7613}
	march = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
)

func seedShift(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, staff.Employee{
		ID: "emp-1", Name: "Abel", HourlyRate: decimal.NewFromInt(50), Active: true,
	}))
	require.NoError(t, store.SaveSite(ctx, roster.Site{
		ID: "site-1", Name: "Depot", Location: depot, RadiusMeters: 100,
	}))
	require.NoError(t, store.CreateShift(ctx, roster.Shift{
		ID: "shift-1", EmployeeID: "emp-1", SiteID: "site-1",
		Start: march, End: march.Add(8 * time.Hour), Status: roster.ShiftScheduled,
	}))
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestEmployeeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, staff.Employee{
		ID: "emp-1", Name: "Abel", HourlyRate: decimal.RequireFromString("52.75"), Active: true,
	}))
	require.NoError(t, store.SaveEmployee(ctx, staff.Employee{
		ID: "emp-2", Name: "Sara", HourlyRate: decimal.NewFromInt(40), Active: false,
	}))

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Abel", emp.Name)
	assert.True(t, emp.HourlyRate.Equal(decimal.RequireFromString("52.75")), "rate survives as exact decimal")

	active, err := store.ListActiveEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, staff.EmployeeID("emp-1"), active[0].ID)

	_, err = store.GetEmployee(ctx, "ghost")
	assert.ErrorIs(t, err, staff.ErrEmployeeNotFound)
}

func TestShiftRoundTripAndWindowFilter(t *testing.T) {
	store := newTestStore(t)
	seedShift(t, store)
	ctx := context.Background()

	shift, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, march, shift.Start)
	assert.Equal(t, roster.ShiftScheduled, shift.Status)

	inWindow, err := store.ListShiftsByEmployee(ctx, "emp-1", march.Add(-time.Hour), march.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, inWindow, 1)

	outside, err := store.ListShiftsByEmployee(ctx, "emp-1",
		march.AddDate(0, 1, 0), march.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Empty(t, outside)

	require.NoError(t, store.CancelShift(ctx, "shift-1"))
	all, err := store.ListShiftsByEmployee(ctx, "emp-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, all, "cancelled shifts are excluded")
}

func TestAttendanceVerifiedRecordIndex(t *testing.T) {
	// The partial unique index is the storage-level backstop for the
	// one-verified-record-per-pair invariant, open or closed.

	store := newTestStore(t)
	seedShift(t, store)
	ctx := context.Background()

	open := attendance.Record{
		ID: "rec-1", ShiftID: "shift-1", EmployeeID: "emp-1",
		ClockInAt: march, ClockInLocation: depot, Verified: true,
		Method: attendance.MethodGPS,
	}
	require.NoError(t, store.CreateRecord(ctx, open))

	dup := open
	dup.ID = "rec-2"
	assert.ErrorIs(t, store.CreateRecord(ctx, dup), attendance.ErrAlreadyClockedIn)

	// Unverified attempts are never blocked by the index.
	rejected := open
	rejected.ID = "rec-3"
	rejected.Verified = false
	assert.NoError(t, store.CreateRecord(ctx, rejected))

	// Closing the record does NOT free the pair: CLOSED is terminal.
	_, err := store.CloseRecord(ctx, "rec-1", march.Add(8*time.Hour), depot)
	require.NoError(t, err)
	reopened := open
	reopened.ID = "rec-4"
	assert.ErrorIs(t, store.CreateRecord(ctx, reopened), attendance.ErrAlreadyClockedOut)

	got, found, err := store.FindVerifiedRecord(ctx, "emp-1", "shift-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, attendance.RecordID("rec-1"), got.ID)
	require.NotNil(t, got.ClockOutAt)
}

func TestCloseRecord(t *testing.T) {
	store := newTestStore(t)
	seedShift(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, attendance.Record{
		ID: "rec-1", ShiftID: "shift-1", EmployeeID: "emp-1",
		ClockInAt: march, ClockInLocation: depot, Verified: true, Late: true,
		Method: attendance.MethodGPS,
	}))

	out := march.Add(9 * time.Hour)
	rec, err := store.CloseRecord(ctx, "rec-1", out, depot)
	require.NoError(t, err)
	require.NotNil(t, rec.ClockOutAt)
	assert.Equal(t, out, *rec.ClockOutAt)
	assert.True(t, rec.Late, "late flag survives the close")

	_, err = store.CloseRecord(ctx, "rec-1", out, depot)
	assert.ErrorIs(t, err, attendance.ErrNoOpenRecord)

	_, err = store.CloseRecord(ctx, "ghost", out, depot)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)

	payable, err := store.ListVerifiedClosed(ctx, "emp-1", march.Add(-time.Hour), out.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, payable, 1)
}

// =============================================================================
// PERIOD CLAIM TESTS
// =============================================================================

func TestClaimPeriod_ConcurrentOneWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePeriod(ctx, payroll.Period{
		ID: "p-1", Start: march, End: march.AddDate(0, 1, 0), Status: payroll.PeriodDraft,
	}))

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.ClaimPeriod(ctx, "p-1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, payroll.ErrPeriodNotDraft)
		}
	}
	assert.Equal(t, 1, winners)

	p, err := store.GetPeriod(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodProcessing, p.Status)
}

func TestPeriodLifecycleTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePeriod(ctx, payroll.Period{
		ID: "p-1", Start: march, End: march.AddDate(0, 1, 0), Status: payroll.PeriodDraft,
	}))

	// Approve straight from DRAFT is rejected.
	assert.ErrorIs(t, store.ApprovePeriod(ctx, "p-1"), payroll.ErrPeriodNotApprovable)

	_, err := store.ClaimPeriod(ctx, "p-1")
	require.NoError(t, err)
	require.NoError(t, store.CompletePeriod(ctx, "p-1", march.AddDate(0, 1, 1)))
	require.NoError(t, store.ApprovePeriod(ctx, "p-1"))

	// Delete only removes drafts.
	assert.ErrorIs(t, store.DeletePeriod(ctx, "p-1"), payroll.ErrPeriodNotDraft)

	_, err = store.ClaimPeriod(ctx, "ghost")
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
}

// =============================================================================
// PAYSLIP AND ADJUSTMENT TESTS
// =============================================================================

func TestPayslipReplaceAndFinalize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	slip := payroll.Payslip{
		ID: "slip-1", PeriodID: "p-1", EmployeeID: "emp-1",
		RegularHours: decimal.NewFromInt(8), HourlyRate: decimal.NewFromInt(50),
		Basic: decimal.NewFromInt(400), Gross: decimal.NewFromInt(500),
		Net: decimal.RequireFromString("459.625"),
		Status: payroll.PayslipPending, GeneratedAt: march,
	}
	require.NoError(t, store.ReplacePayslip(ctx, slip))

	// Regeneration replaces the existing row.
	slip.ID = "slip-2"
	slip.Net = decimal.NewFromInt(470)
	require.NoError(t, store.ReplacePayslip(ctx, slip))

	slips, err := store.ListPayslipsByPeriod(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.Equal(t, payroll.PayslipID("slip-2"), slips[0].ID)
	assert.True(t, slips[0].Net.Equal(decimal.NewFromInt(470)))

	require.NoError(t, store.FinalizePayslips(ctx, "p-1"))
	slip.ID = "slip-3"
	assert.ErrorIs(t, store.ReplacePayslip(ctx, slip), payroll.ErrPayslipFinalized)
}

func TestAdjustmentLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	adj := payroll.Adjustment{
		ID: "adj-1", EmployeeID: "emp-1", Kind: payroll.KindPenalty,
		Amount: decimal.NewFromInt(25), Date: march, Reason: "damaged radio",
		Status: payroll.AdjustmentPending,
	}
	require.NoError(t, store.CreateAdjustment(ctx, adj))

	pending, err := store.ListPendingAdjustments(ctx, "emp-1", march.Add(-time.Hour), march.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, store.MarkAdjustmentsApplied(ctx, []payroll.AdjustmentID{"adj-1"}))
	got, err := store.GetAdjustment(ctx, "adj-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.AdjustmentApplied, got.Status)

	// Applied adjustments cannot be cancelled.
	assert.ErrorIs(t, store.CancelAdjustment(ctx, "adj-1"), payroll.ErrAdjustmentNotPending)
	assert.ErrorIs(t, store.CancelAdjustment(ctx, "ghost"), payroll.ErrAdjustmentNotFound)
}

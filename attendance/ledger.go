/*
ledger.go - The clock-in/clock-out state machine

PURPOSE:
  The Ledger is the only writer of attendance records. It enforces:
  1. Ownership: you can only clock into your own shift
  2. Single verified record per (employee, shift): a duplicate clock-in
     is rejected while the pair is OPEN, and rejected again after
     clock-out because no transition leaves CLOSED
  3. Geofence verification on clock-in (rejected attempts are still
     persisted, unverified, with the distance reported back)
  4. Lateness: late iff clock-in is strictly more than 30 minutes after
     shift start; no lower bound, so arbitrarily early clock-in is allowed

CLOCK-OUT:
  Requires an OPEN record. The reported coordinate is recorded but NOT
  re-validated against the geofence; only clock-in is gated. Clock-out
  marks the shift COMPLETED.

  There is no automatic clock-out: a shift the employee never clocks out
  of simply contributes zero payable hours.

CONCURRENCY:
  Transitions are serialized per (employee, shift) pair via striped
  mutexes. Global serialization is deliberately avoided: concurrent
  clock-ins for different pairs do not contend.

BUSINESS REJECTIONS vs ERRORS:
  A geofence miss is an expected outcome, returned as OK=false with a
  persisted unverified record - not an error. Validation failures
  (bad coordinates, wrong shift, duplicate clock-in) are errors and
  persist nothing new.

SEE ALSO:
  - record.go: Record model and invariants
  - geo/fence.go: The verification boundary
*/
package attendance

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
)

// LateGrace is how long after shift start a clock-in stays on time.
// Strictly more than this is late; exactly at the boundary is not.
const LateGrace = 30 * time.Minute

const lockStripes = 64

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Records Repository
	Shifts  roster.ShiftRepository
	Sites   roster.SiteRepository

	// Now is the clock source; tests substitute a fixed time.
	Now func() time.Time

	locks [lockStripes]sync.Mutex
}

func NewLedger(records Repository, shifts roster.ShiftRepository, sites roster.SiteRepository) *Ledger {
	return &Ledger{
		Records: records,
		Shifts:  shifts,
		Sites:   sites,
		Now:     time.Now,
	}
}

// pairLock returns the stripe serializing one (employee, shift) pair.
func (l *Ledger) pairLock(employeeID staff.EmployeeID, shiftID roster.ShiftID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(employeeID))
	h.Write([]byte{0})
	h.Write([]byte(shiftID))
	return &l.locks[h.Sum32()%lockStripes]
}

// =============================================================================
// CLOCK-IN
// =============================================================================

type ClockInInput struct {
	EmployeeID staff.EmployeeID
	ShiftID    roster.ShiftID
	Location   geo.Point
	Note       string
}

type ClockInResult struct {
	OK             bool
	Message        string
	DistanceMeters float64
	Record         Record
}

// ClockIn runs the NONE -> OPEN transition. A geofence miss returns
// OK=false with the persisted unverified record; it is not an error.
func (l *Ledger) ClockIn(ctx context.Context, in ClockInInput) (ClockInResult, error) {
	if !in.Location.Valid() {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", ErrInvalidCoordinates)
	}

	shift, err := l.Shifts.GetShift(ctx, in.ShiftID)
	if err != nil {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", err)
	}
	if shift.EmployeeID != in.EmployeeID {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", ErrShiftMismatch)
	}

	site, err := l.Sites.GetSite(ctx, shift.SiteID)
	if err != nil {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", err)
	}

	mu := l.pairLock(in.EmployeeID, in.ShiftID)
	mu.Lock()
	defer mu.Unlock()

	existing, found, err := l.Records.FindVerifiedRecord(ctx, in.EmployeeID, in.ShiftID)
	if err != nil {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", err)
	}
	if found {
		if existing.Open() {
			return ClockInResult{}, fmt.Errorf("clock-in: %w", ErrAlreadyClockedIn)
		}
		return ClockInResult{}, fmt.Errorf("clock-in: %w", ErrAlreadyClockedOut)
	}

	now := l.Now()
	check := site.Fence().Check(in.Location)

	rec := Record{
		ID:              RecordID(ulid.Make().String()),
		ShiftID:         in.ShiftID,
		EmployeeID:      in.EmployeeID,
		ClockInAt:       now,
		ClockInLocation: in.Location,
		Method:          MethodGPS,
		Note:            in.Note,
	}

	if !check.Within {
		// Audited-but-rejected attempt: persisted unverified, never opened.
		if err := l.Records.CreateRecord(ctx, rec); err != nil {
			return ClockInResult{}, fmt.Errorf("clock-in: %w", err)
		}
		return ClockInResult{
			OK:             false,
			Message:        fmt.Sprintf("outside site geofence: %.0fm away, allowed %.0fm", check.DistanceMeters, site.RadiusMeters),
			DistanceMeters: check.DistanceMeters,
			Record:         rec,
		}, nil
	}

	rec.Verified = true
	rec.Late = now.After(shift.Start.Add(LateGrace))

	if err := l.Records.CreateRecord(ctx, rec); err != nil {
		return ClockInResult{}, fmt.Errorf("clock-in: %w", err)
	}

	msg := "clocked in"
	if rec.Late {
		msg = "clocked in (late)"
	}
	return ClockInResult{
		OK:             true,
		Message:        msg,
		DistanceMeters: check.DistanceMeters,
		Record:         rec,
	}, nil
}

// =============================================================================
// CLOCK-OUT
// =============================================================================

type ClockOutInput struct {
	EmployeeID staff.EmployeeID
	ShiftID    roster.ShiftID
	Location   geo.Point
}

type ClockOutResult struct {
	OK          bool
	Message     string
	Record      Record
	WorkedHours decimal.Decimal
}

// ClockOut runs the OPEN -> CLOSED transition and marks the shift
// COMPLETED. The coordinate is recorded without geofence re-validation.
func (l *Ledger) ClockOut(ctx context.Context, in ClockOutInput) (ClockOutResult, error) {
	if !in.Location.Valid() {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", ErrInvalidCoordinates)
	}

	shift, err := l.Shifts.GetShift(ctx, in.ShiftID)
	if err != nil {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", err)
	}
	if shift.EmployeeID != in.EmployeeID {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", ErrShiftMismatch)
	}

	mu := l.pairLock(in.EmployeeID, in.ShiftID)
	mu.Lock()
	defer mu.Unlock()

	open, found, err := l.Records.FindOpenRecord(ctx, in.EmployeeID, in.ShiftID)
	if err != nil {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", err)
	}
	if !found {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", ErrNoOpenRecord)
	}

	closed, err := l.Records.CloseRecord(ctx, open.ID, l.Now(), in.Location)
	if err != nil {
		return ClockOutResult{}, fmt.Errorf("clock-out: %w", err)
	}

	if err := l.Shifts.CompleteShift(ctx, shift.ID); err != nil {
		return ClockOutResult{}, fmt.Errorf("clock-out: complete shift: %w", err)
	}

	return ClockOutResult{
		OK:          true,
		Message:     "clocked out",
		Record:      closed,
		WorkedHours: closed.WorkedHours(),
	}, nil
}

/*
Package attendance owns clock-in/clock-out records and the state machine
that creates them.

PURPOSE:
  An AttendanceRecord is the audited trail of one clock-in attempt.
  Successful attempts are verified and later closed by a clock-out;
  rejected attempts (outside the geofence) are still persisted,
  unverified and never closed. Payroll reads only verified, closed
  records.

KEY CONCEPTS IN THIS FILE (record.go):
  - Record:     One clock-in attempt, open until clocked out
  - Repository: Persistence boundary for records

CRITICAL INVARIANT:
  At most one VERIFIED record, open or closed, may exist per
  (employee, shift) pair. The Ledger serializes transitions per pair to
  uphold this; the SQLite store backs it with a partial unique index.

STATES per (employee, shift):
  NONE -> OPEN   (verified clock-in)
  OPEN -> CLOSED (clock-out; shift becomes COMPLETED)
  No transition leaves CLOSED: once the pair is clocked out, further
  clock-ins are rejected. A failed geofence attempt records an
  unverified row without entering OPEN.

SEE ALSO:
  - ledger.go: The clock-in/clock-out state machine
  - payroll/engine.go: Consumes verified, closed records
*/
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
)

type RecordID string

// MethodGPS tags records verified by geofenced GPS coordinates.
const MethodGPS = "gps"

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInvalidCoordinates is returned for out-of-range or NaN coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrShiftMismatch is returned when the shift doesn't belong to the employee.
	ErrShiftMismatch = errors.New("shift does not belong to employee")

	// ErrAlreadyClockedIn is returned when an OPEN record already exists
	// for the (employee, shift) pair.
	ErrAlreadyClockedIn = errors.New("already clocked in for this shift")

	// ErrAlreadyClockedOut is returned when the pair is CLOSED: the shift
	// has been worked and clocked out, so no further clock-in is allowed.
	ErrAlreadyClockedOut = errors.New("shift already clocked out")

	// ErrNoOpenRecord is returned by clock-out when there is no active clock-in.
	ErrNoOpenRecord = errors.New("no active clock-in for this shift")

	// ErrRecordNotFound is returned when a referenced record doesn't exist.
	ErrRecordNotFound = errors.New("attendance record not found")
)

// =============================================================================
// RECORD - One clock-in attempt
// =============================================================================

type Record struct {
	ID         RecordID
	ShiftID    roster.ShiftID
	EmployeeID staff.EmployeeID

	ClockInAt       time.Time
	ClockInLocation geo.Point

	// Set on clock-out. nil while the record is open (or forever, for
	// unverified attempts and missed clock-outs).
	ClockOutAt       *time.Time
	ClockOutLocation *geo.Point

	// Verified means the clock-in location fell within the site geofence.
	Verified bool

	// Late means the clock-in happened strictly more than 30 minutes
	// after the shift start.
	Late bool

	Method string
	Note   string
}

// Open reports whether the record is awaiting a clock-out. Only verified
// records are ever open; a rejected attempt is closed-by-construction.
func (r Record) Open() bool {
	return r.Verified && r.ClockOutAt == nil
}

// Closed reports whether both clock-in and clock-out are recorded.
func (r Record) Closed() bool {
	return r.ClockOutAt != nil
}

// WorkedHours returns the clocked duration in hours, zero while open.
func (r Record) WorkedHours() decimal.Decimal {
	if r.ClockOutAt == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(r.ClockOutAt.Sub(r.ClockInAt).Hours())
}

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository persists attendance records. Records are append-then-close:
// creation at clock-in, a single close at clock-out, never deleted.
type Repository interface {
	// CreateRecord persists a new record (verified or not).
	CreateRecord(ctx context.Context, rec Record) error

	// FindOpenRecord returns the OPEN record for the pair, if any.
	FindOpenRecord(ctx context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (Record, bool, error)

	// FindVerifiedRecord returns the verified record for the pair, open
	// or closed, if any. At most one can exist.
	FindVerifiedRecord(ctx context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (Record, bool, error)

	// CloseRecord stamps the clock-out on an open record and returns the
	// closed record. Returns ErrRecordNotFound for unknown IDs.
	CloseRecord(ctx context.Context, id RecordID, at time.Time, loc geo.Point) (Record, error)

	// ListVerifiedClosed returns verified records whose clock-in AND
	// clock-out both fall within [from, to], ordered by clock-in time.
	ListVerifiedClosed(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]Record, error)

	// ListRecordsByEmployee returns all of the employee's records with a
	// clock-in inside [from, to], verified or not, ordered by clock-in time.
	ListRecordsByEmployee(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]Record, error)
}

/*
Package roster provides the shift model, the shift-conflict detector, and
the bulk assignment flow.

PURPOSE:
  The roster is where shifts come from. Bulk assignment expands a date
  range into one shift per employee per day, gates each candidate through
  the conflict detector, and persists the survivors. Shifts are never
  deleted - only cancelled - so the conflict detector always sees the
  full non-cancelled history.

KEY CONCEPTS IN THIS FILE (shift.go):
  - Shift:  An (employee, site, job, start, end) assignment with lifecycle
  - Site:   A work location with its geofence parameters (owned externally)
  - ShiftRepository: Persistence boundary, substitutable for testing

LIFECYCLE:
  SCHEDULED -> COMPLETED  (on successful clock-out)
  SCHEDULED -> CANCELLED  (roster-side removal; the only removal path)

SEE ALSO:
  - conflict.go: Overlap detection over an employee's intervals
  - assign.go:   Bulk assignment with partial-success semantics
  - attendance/ledger.go: Marks shifts COMPLETED on clock-out
*/
package roster

import (
	"context"
	"errors"
	"time"

	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/staff"
)

type ShiftID string
type SiteID string
type JobID string

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrShiftNotFound is returned when a referenced shift doesn't exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrSiteNotFound is returned when a referenced site doesn't exist.
	ErrSiteNotFound = errors.New("site not found")

	// ErrShiftConflict is returned when a candidate interval overlaps an
	// existing non-cancelled shift.
	ErrShiftConflict = errors.New("shift conflicts with an existing assignment")

	// ErrShiftCompleted is returned when trying to cancel a completed shift.
	ErrShiftCompleted = errors.New("completed shift cannot be cancelled")
)

// =============================================================================
// SHIFT - A scheduled work assignment
// =============================================================================

type ShiftStatus string

const (
	ShiftScheduled ShiftStatus = "SCHEDULED"
	ShiftCompleted ShiftStatus = "COMPLETED"
	ShiftCancelled ShiftStatus = "CANCELLED"
)

type Shift struct {
	ID         ShiftID
	EmployeeID staff.EmployeeID
	SiteID     SiteID
	JobID      JobID
	Start      time.Time
	End        time.Time
	Status     ShiftStatus
}

// Interval returns the shift's time window.
func (s Shift) Interval() (start, end time.Time) {
	return s.Start, s.End
}

// =============================================================================
// SITE - Work location with geofence parameters (owned externally)
// =============================================================================

type Site struct {
	ID           SiteID
	Name         string
	Location     geo.Point
	RadiusMeters float64
}

// Fence returns the site's verification boundary.
func (s Site) Fence() geo.Fence {
	return geo.Fence{Center: s.Location, RadiusMeters: s.RadiusMeters}
}

// =============================================================================
// REPOSITORIES
// =============================================================================

// ShiftRepository persists shifts. Shifts are append-then-transition:
// no deletes, only the SCHEDULED -> COMPLETED/CANCELLED transitions.
type ShiftRepository interface {
	// CreateShift persists a new SCHEDULED shift.
	CreateShift(ctx context.Context, shift Shift) error

	// GetShift returns the shift, or ErrShiftNotFound.
	GetShift(ctx context.Context, id ShiftID) (Shift, error)

	// ListShiftsByEmployee returns the employee's non-cancelled shifts,
	// ordered by start time. A zero from/to means no bound on that side.
	ListShiftsByEmployee(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]Shift, error)

	// CompleteShift marks a shift COMPLETED. Idempotent on already-completed shifts.
	CompleteShift(ctx context.Context, id ShiftID) error

	// CancelShift marks a SCHEDULED shift CANCELLED.
	// Returns ErrShiftCompleted for completed shifts.
	CancelShift(ctx context.Context, id ShiftID) error
}

// SiteRepository provides site lookups. Sites are owned by the client
// management collaborator; this engine only reads them.
type SiteRepository interface {
	// GetSite returns the site, or ErrSiteNotFound.
	GetSite(ctx context.Context, id SiteID) (Site, error)
}

/*
period.go - Payroll period model and lifecycle states

PURPOSE:
  A period is the date window a payroll run aggregates over. Its status
  is the mutual-exclusion point for generation:

    DRAFT -> PROCESSING -> COMPLETED -> APPROVED (terminal)

  The DRAFT -> PROCESSING transition is claimed atomically in the store
  (conditional update), so concurrent generate() calls on one period have
  exactly one winner. There is no CANCELLED state: deleting a DRAFT
  period with no payslips is the only removal path.

SEE ALSO:
  - controller.go: Drives the lifecycle
  - store/sqlite:  Conditional-update claim
*/
package payroll

import (
	"context"
	"errors"
	"time"
)

type PeriodID string

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrPeriodNotFound is returned when a referenced period doesn't exist.
	ErrPeriodNotFound = errors.New("payroll period not found")

	// ErrInvalidPeriod is returned when end does not come after start.
	ErrInvalidPeriod = errors.New("invalid period: end must be after start")

	// ErrPeriodNotDraft is returned by generate() when the period was
	// already claimed, completed, or approved. The caller lost the race
	// or is re-running a finished period.
	ErrPeriodNotDraft = errors.New("period already processing or processed")

	// ErrPeriodNotApprovable is returned by approve() unless the period
	// is PROCESSING or COMPLETED.
	ErrPeriodNotApprovable = errors.New("period cannot be approved in its current state")

	// ErrPeriodHasPayslips is returned when deleting a period that
	// already has payslips.
	ErrPeriodHasPayslips = errors.New("period has payslips and cannot be deleted")
)

// =============================================================================
// PERIOD
// =============================================================================

type PeriodStatus string

const (
	PeriodDraft      PeriodStatus = "DRAFT"
	PeriodProcessing PeriodStatus = "PROCESSING"
	PeriodCompleted  PeriodStatus = "COMPLETED"
	PeriodApproved   PeriodStatus = "APPROVED"
)

type Period struct {
	ID     PeriodID
	Start  time.Time
	End    time.Time
	Status PeriodStatus

	// ProcessedAt is stamped when generation completes.
	ProcessedAt *time.Time
}

// Contains reports whether t falls within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// =============================================================================
// REPOSITORY
// =============================================================================

type PeriodRepository interface {
	// CreatePeriod persists a new DRAFT period.
	CreatePeriod(ctx context.Context, p Period) error

	// GetPeriod returns the period, or ErrPeriodNotFound.
	GetPeriod(ctx context.Context, id PeriodID) (Period, error)

	// ListPeriods returns all periods ordered by start date.
	ListPeriods(ctx context.Context) ([]Period, error)

	// ClaimPeriod atomically transitions DRAFT -> PROCESSING and returns
	// the claimed period. Any other current status yields
	// ErrPeriodNotDraft. This is the generation mutual-exclusion point.
	ClaimPeriod(ctx context.Context, id PeriodID) (Period, error)

	// CompletePeriod transitions PROCESSING -> COMPLETED and stamps the
	// processed time.
	CompletePeriod(ctx context.Context, id PeriodID, processedAt time.Time) error

	// ApprovePeriod transitions PROCESSING or COMPLETED -> APPROVED.
	// Any other status yields ErrPeriodNotApprovable.
	ApprovePeriod(ctx context.Context, id PeriodID) error

	// DeletePeriod removes a DRAFT period. Other statuses yield
	// ErrPeriodNotDraft.
	DeletePeriod(ctx context.Context, id PeriodID) error
}

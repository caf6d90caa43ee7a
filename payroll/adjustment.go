/*
adjustment.go - Penalties, bonuses, and other one-off payslip lines

PURPOSE:
  An Adjustment is a dated, one-off amount attached to an employee:
  a disciplinary penalty, a bonus, an unreturned-asset deduction, or a
  loan repayment installment. Pending adjustments dated within a payroll
  period are folded into that period's payslip during generation and then
  marked APPLIED.

LIFECYCLE:
  PENDING -> APPLIED    (folded into a payslip; immutable afterwards)
  PENDING -> CANCELLED  (operator removal; the only removal path)

  Only PENDING adjustments may be cancelled. Applied ones are part of a
  computed payslip and never change.

SEE ALSO:
  - engine.go: Folds pending adjustments into the payslip
*/
package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/staff"
)

type AdjustmentID string

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrAdjustmentNotFound is returned when a referenced adjustment doesn't exist.
	ErrAdjustmentNotFound = errors.New("adjustment not found")

	// ErrAdjustmentNotPending is returned when cancelling a non-PENDING adjustment.
	ErrAdjustmentNotPending = errors.New("only pending adjustments can be cancelled")
)

// =============================================================================
// ADJUSTMENT
// =============================================================================

type AdjustmentKind string

const (
	KindPenalty        AdjustmentKind = "penalty"
	KindBonus          AdjustmentKind = "bonus"
	KindAssetDeduction AdjustmentKind = "asset_deduction"
	KindLoanRepayment  AdjustmentKind = "loan_repayment"
)

type AdjustmentStatus string

const (
	AdjustmentPending   AdjustmentStatus = "PENDING"
	AdjustmentApplied   AdjustmentStatus = "APPLIED"
	AdjustmentCancelled AdjustmentStatus = "CANCELLED"
)

type Adjustment struct {
	ID         AdjustmentID
	EmployeeID staff.EmployeeID
	Kind       AdjustmentKind
	Amount     decimal.Decimal
	Date       time.Time
	Reason     string
	Status     AdjustmentStatus
}

// =============================================================================
// REPOSITORY
// =============================================================================

type AdjustmentRepository interface {
	// CreateAdjustment persists a new PENDING adjustment.
	CreateAdjustment(ctx context.Context, adj Adjustment) error

	// GetAdjustment returns the adjustment, or ErrAdjustmentNotFound.
	GetAdjustment(ctx context.Context, id AdjustmentID) (Adjustment, error)

	// ListPendingAdjustments returns the employee's PENDING adjustments
	// dated within [from, to].
	ListPendingAdjustments(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]Adjustment, error)

	// MarkAdjustmentsApplied transitions the given PENDING adjustments to
	// APPLIED. Non-pending IDs in the list are left untouched.
	MarkAdjustmentsApplied(ctx context.Context, ids []AdjustmentID) error

	// CancelAdjustment transitions a PENDING adjustment to CANCELLED.
	// Returns ErrAdjustmentNotPending otherwise.
	CancelAdjustment(ctx context.Context, id AdjustmentID) error
}

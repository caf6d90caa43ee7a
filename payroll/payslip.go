/*
payslip.go - The computed compensation breakdown

PURPOSE:
  One payslip per (period, employee). Every monetary line of the
  computation is kept, not just the net, so the breakdown is auditable
  without recomputing.

REPLACEMENT:
  Regenerating a period replaces prior payslips - except finalized ones,
  which are frozen by period approval and reported as per-employee errors
  instead.

SEE ALSO:
  - engine.go: Produces payslips
  - period.go: Period lifecycle that freezes them
*/
package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/staff"
)

type PayslipID string

// ErrPayslipFinalized is returned when regeneration would replace a
// payslip frozen by period approval.
var ErrPayslipFinalized = errors.New("payslip is finalized and cannot be replaced")

type PayslipStatus string

const (
	PayslipPending   PayslipStatus = "PENDING"
	PayslipFinalized PayslipStatus = "FINALIZED"
)

// =============================================================================
// PAYSLIP
// =============================================================================

type Payslip struct {
	ID         PayslipID
	PeriodID   PeriodID
	EmployeeID staff.EmployeeID

	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	HourlyRate    decimal.Decimal

	Basic              decimal.Decimal // regular hours x rate
	Overtime           decimal.Decimal // overtime hours x rate x multiplier
	TransportAllowance decimal.Decimal // fixed, untaxed
	Gross              decimal.Decimal // basic + overtime + transport
	Taxable            decimal.Decimal // gross - transport (+ bonuses when taxable policy)
	IncomeTax          decimal.Decimal
	Pension            decimal.Decimal // gross x pension rate
	CostSharing        decimal.Decimal
	Penalties          decimal.Decimal
	AssetDeductions    decimal.Decimal
	LoanRepayment      decimal.Decimal
	Bonuses            decimal.Decimal // separate earnings line, see BonusPolicy
	Net                decimal.Decimal

	Status      PayslipStatus
	GeneratedAt time.Time
}

// =============================================================================
// REPOSITORY
// =============================================================================

type PayslipRepository interface {
	// ReplacePayslip upserts the payslip for (period, employee).
	// Returns ErrPayslipFinalized if the existing one is frozen.
	ReplacePayslip(ctx context.Context, slip Payslip) error

	// ListPayslipsByPeriod returns the period's payslips.
	ListPayslipsByPeriod(ctx context.Context, periodID PeriodID) ([]Payslip, error)

	// FinalizePayslips freezes every payslip in the period.
	FinalizePayslips(ctx context.Context, periodID PeriodID) error
}

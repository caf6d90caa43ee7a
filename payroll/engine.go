/*
engine.go - Per-employee payslip computation

PURPOSE:
  Turns one employee's verified attendance within a period into a payslip,
  given an explicit Config. The computation is a pure function of its
  inputs except for the final persistence step; collaborators are
  interfaces so tests substitute in-memory fakes.

COMPUTATION (statutory scheme):
  1. Select verified records fully inside [period.Start, period.End]
  2. Split each record's hours at the 8h threshold into regular/overtime
  3. basic = regular x rate; overtime = ot x rate x 1.5
  4. gross = basic + overtime + transport allowance (untaxed)
  5. taxable = gross - transport; progressive tax over the bracket table
  6. pension = gross x 7%; cost sharing fixed
  7. Pending penalties / asset deductions / loan repayments subtract,
     pending bonuses add (post-tax by default, see BonusPolicy)
  8. Folded adjustments transition PENDING -> APPLIED

SEE ALSO:
  - tax.go:        IncomeTax
  - controller.go: Batch orchestration with partial-failure isolation
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/staff"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// AttendanceSource is the slice of the attendance store the engine reads.
// attendance.Repository satisfies it.
type AttendanceSource interface {
	ListVerifiedClosed(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]attendance.Record, error)
}

// RateProvider supplies the hourly rate for an employee. Rate configuration
// is owned externally; the engine never hardcodes rates.
type RateProvider interface {
	HourlyRate(ctx context.Context, employeeID staff.EmployeeID) (decimal.Decimal, error)
}

// DirectoryRates adapts a staff.Directory into a RateProvider.
type DirectoryRates struct {
	Directory staff.Directory
}

func (d DirectoryRates) HourlyRate(ctx context.Context, employeeID staff.EmployeeID) (decimal.Decimal, error) {
	emp, err := d.Directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return decimal.Zero, err
	}
	return emp.HourlyRate, nil
}

// =============================================================================
// HOURS SPLIT
// =============================================================================

// SplitHours splits one record's worked hours at the regular-shift
// threshold: hours up to the threshold are regular, the remainder is
// overtime.
func SplitHours(worked, threshold decimal.Decimal) (regular, overtime decimal.Decimal) {
	if worked.LessThanOrEqual(threshold) {
		return worked, decimal.Zero
	}
	return threshold, worked.Sub(threshold)
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Attendance  AttendanceSource
	Rates       RateProvider
	Adjustments AdjustmentRepository
	Payslips    PayslipRepository

	// Now is the clock source; tests substitute a fixed time.
	Now func() time.Time
}

func NewEngine(att AttendanceSource, rates RateProvider, adj AdjustmentRepository, slips PayslipRepository) *Engine {
	return &Engine{
		Attendance:  att,
		Rates:       rates,
		Adjustments: adj,
		Payslips:    slips,
		Now:         time.Now,
	}
}

// ComputePayslip computes, persists, and returns the employee's payslip
// for the period, folding in pending adjustments.
func (e *Engine) ComputePayslip(ctx context.Context, emp staff.Employee, period Period, cfg Config) (Payslip, error) {
	records, err := e.Attendance.ListVerifiedClosed(ctx, emp.ID, period.Start, period.End)
	if err != nil {
		return Payslip{}, fmt.Errorf("compute payslip %s: %w", emp.ID, err)
	}

	rate, err := e.Rates.HourlyRate(ctx, emp.ID)
	if err != nil {
		return Payslip{}, fmt.Errorf("compute payslip %s: %w", emp.ID, err)
	}

	regularTotal := decimal.Zero
	overtimeTotal := decimal.Zero
	for _, rec := range records {
		// Payable iff the whole record falls inside the period.
		if !period.Contains(rec.ClockInAt) || rec.ClockOutAt == nil || !period.Contains(*rec.ClockOutAt) {
			continue
		}
		regular, overtime := SplitHours(rec.WorkedHours(), cfg.RegularHoursPerRecord)
		regularTotal = regularTotal.Add(regular)
		overtimeTotal = overtimeTotal.Add(overtime)
	}

	basic := regularTotal.Mul(rate)
	overtime := overtimeTotal.Mul(rate).Mul(cfg.OvertimeMultiplier)
	gross := basic.Add(overtime).Add(cfg.TransportAllowance)
	taxable := gross.Sub(cfg.TransportAllowance)

	adjustments, err := e.Adjustments.ListPendingAdjustments(ctx, emp.ID, period.Start, period.End)
	if err != nil {
		return Payslip{}, fmt.Errorf("compute payslip %s: %w", emp.ID, err)
	}

	penalties := decimal.Zero
	assetDeductions := decimal.Zero
	loanRepayment := decimal.Zero
	bonuses := decimal.Zero
	appliedIDs := make([]AdjustmentID, 0, len(adjustments))
	for _, adj := range adjustments {
		switch adj.Kind {
		case KindPenalty:
			penalties = penalties.Add(adj.Amount)
		case KindAssetDeduction:
			assetDeductions = assetDeductions.Add(adj.Amount)
		case KindLoanRepayment:
			loanRepayment = loanRepayment.Add(adj.Amount)
		case KindBonus:
			bonuses = bonuses.Add(adj.Amount)
		default:
			continue
		}
		appliedIDs = append(appliedIDs, adj.ID)
	}

	if cfg.BonusPolicy == BonusTaxable {
		taxable = taxable.Add(bonuses)
	}

	tax := IncomeTax(taxable, cfg.Brackets)
	pension := gross.Mul(cfg.PensionRate)

	net := gross.
		Sub(tax).
		Sub(pension).
		Sub(cfg.CostSharing).
		Sub(penalties).
		Sub(assetDeductions).
		Sub(loanRepayment).
		Add(bonuses)

	slip := Payslip{
		ID:                 PayslipID(ulid.Make().String()),
		PeriodID:           period.ID,
		EmployeeID:         emp.ID,
		RegularHours:       regularTotal,
		OvertimeHours:      overtimeTotal,
		HourlyRate:         rate,
		Basic:              basic,
		Overtime:           overtime,
		TransportAllowance: cfg.TransportAllowance,
		Gross:              gross,
		Taxable:            taxable,
		IncomeTax:          tax,
		Pension:            pension,
		CostSharing:        cfg.CostSharing,
		Penalties:          penalties,
		AssetDeductions:    assetDeductions,
		LoanRepayment:      loanRepayment,
		Bonuses:            bonuses,
		Net:                net,
		Status:             PayslipPending,
		GeneratedAt:        e.Now(),
	}

	if err := e.Payslips.ReplacePayslip(ctx, slip); err != nil {
		return Payslip{}, fmt.Errorf("compute payslip %s: %w", emp.ID, err)
	}

	if len(appliedIDs) > 0 {
		if err := e.Adjustments.MarkAdjustmentsApplied(ctx, appliedIDs); err != nil {
			return Payslip{}, fmt.Errorf("compute payslip %s: mark adjustments: %w", emp.ID, err)
		}
	}

	return slip, nil
}

/*
controller.go - Payroll period lifecycle controller

PURPOSE:
  Wraps engine invocations with the period state machine:

    generate: DRAFT -claim-> PROCESSING -> compute all -> COMPLETED
    approve:  PROCESSING | COMPLETED -> APPROVED (terminal)

  The claim is an atomic conditional status update in the store, so
  concurrent generate() calls on one period have exactly one winner; the
  loser receives ErrPeriodNotDraft, never a silent no-op or a duplicate
  payslip set. generate() is non-idempotent once the claim succeeds.

PARTIAL-FAILURE ISOLATION:
  Per-employee computation fans out in parallel (errgroup, bounded).
  One employee's failure is collected into the error list and never
  aborts siblings; the period still completes with partial coverage and
  the error list is surfaced to the operator.

SEE ALSO:
  - engine.go: Per-employee computation
  - period.go: Lifecycle states and repository contract
*/
package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fieldforce/payroll-engine/staff"
)

const defaultConcurrency = 8

// =============================================================================
// RESULTS
// =============================================================================

// EmployeeError names one employee whose payslip could not be computed.
type EmployeeError struct {
	EmployeeID staff.EmployeeID
	Name       string
	Err        string
}

type GenerateResult struct {
	PeriodID  PeriodID
	Generated int
	Errors    []EmployeeError
}

// =============================================================================
// CONTROLLER
// =============================================================================

type Controller struct {
	Periods   PeriodRepository
	Payslips  PayslipRepository
	Engine    *Engine
	Employees staff.Directory

	// Concurrency bounds the per-employee fan-out. Zero means the default.
	Concurrency int

	// Now is the clock source; tests substitute a fixed time.
	Now func() time.Time
}

func NewController(periods PeriodRepository, payslips PayslipRepository, engine *Engine, employees staff.Directory) *Controller {
	return &Controller{
		Periods:   periods,
		Payslips:  payslips,
		Engine:    engine,
		Employees: employees,
		Now:       time.Now,
	}
}

// CreatePeriod persists a new DRAFT period after validating end > start.
func (c *Controller) CreatePeriod(ctx context.Context, start, end time.Time) (Period, error) {
	if !end.After(start) {
		return Period{}, ErrInvalidPeriod
	}
	p := Period{
		ID:     PeriodID(ulid.Make().String()),
		Start:  start,
		End:    end,
		Status: PeriodDraft,
	}
	if err := c.Periods.CreatePeriod(ctx, p); err != nil {
		return Period{}, fmt.Errorf("create period: %w", err)
	}
	return p, nil
}

// DeletePeriod removes a DRAFT period that has no payslips yet.
func (c *Controller) DeletePeriod(ctx context.Context, id PeriodID) error {
	slips, err := c.Payslips.ListPayslipsByPeriod(ctx, id)
	if err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	if len(slips) > 0 {
		return ErrPeriodHasPayslips
	}
	return c.Periods.DeletePeriod(ctx, id)
}

// Generate claims the period, computes a payslip for every active
// employee, and completes the period. Per-employee failures are collected
// in the result, never fatal to the batch.
func (c *Controller) Generate(ctx context.Context, id PeriodID, cfg Config) (GenerateResult, error) {
	period, err := c.Periods.ClaimPeriod(ctx, id)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate: %w", err)
	}

	employees, err := c.Employees.ListActiveEmployees(ctx)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate: list employees: %w", err)
	}

	limit := c.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	result := GenerateResult{PeriodID: id}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, emp := range employees {
		emp := emp
		g.Go(func() error {
			_, err := c.Engine.ComputePayslip(gctx, emp, period, cfg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, EmployeeError{
					EmployeeID: emp.ID,
					Name:       emp.Name,
					Err:        err.Error(),
				})
				return nil
			}
			result.Generated++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("generate: %w", err)
	}

	if err := c.Periods.CompletePeriod(ctx, id, c.Now()); err != nil {
		return result, fmt.Errorf("generate: complete period: %w", err)
	}

	return result, nil
}

// Approve transitions a PROCESSING or COMPLETED period to APPROVED and
// freezes its payslips. No payslip mutation is permitted afterwards.
func (c *Controller) Approve(ctx context.Context, id PeriodID) error {
	if err := c.Periods.ApprovePeriod(ctx, id); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	if err := c.Payslips.FinalizePayslips(ctx, id); err != nil {
		return fmt.Errorf("approve: finalize payslips: %w", err)
	}
	return nil
}

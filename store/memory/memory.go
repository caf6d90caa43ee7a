/*
Package memory provides an in-memory implementation of every repository
interface in the module.

PURPOSE:
  Used by tests and by dev-mode runs that don't want a database file.
  One Store implements staff.Directory, roster.ShiftRepository,
  roster.SiteRepository, attendance.Repository, and the payroll
  repositories, mirroring the SQLite store's surface exactly.

CONCURRENCY:
  A single RWMutex guards all maps. Reads return copies so callers never
  alias internal state. The period claim and the open-record check happen
  under the write lock, giving the same atomicity the SQLite store gets
  from conditional updates and its partial unique index.

SEE ALSO:
  - store/sqlite: The production implementation of the same interfaces
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/payroll"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
)

type slipKey struct {
	Period   payroll.PeriodID
	Employee staff.EmployeeID
}

type Store struct {
	mu          sync.RWMutex
	employees   map[staff.EmployeeID]staff.Employee
	sites       map[roster.SiteID]roster.Site
	shifts      map[roster.ShiftID]roster.Shift
	records     map[attendance.RecordID]attendance.Record
	adjustments map[payroll.AdjustmentID]payroll.Adjustment
	periods     map[payroll.PeriodID]payroll.Period
	payslips    map[slipKey]payroll.Payslip
}

func New() *Store {
	return &Store{
		employees:   make(map[staff.EmployeeID]staff.Employee),
		sites:       make(map[roster.SiteID]roster.Site),
		shifts:      make(map[roster.ShiftID]roster.Shift),
		records:     make(map[attendance.RecordID]attendance.Record),
		adjustments: make(map[payroll.AdjustmentID]payroll.Adjustment),
		periods:     make(map[payroll.PeriodID]payroll.Period),
		payslips:    make(map[slipKey]payroll.Payslip),
	}
}

// =============================================================================
// SEEDING - Employee and site data is owned externally; tests and dev
// mode seed it directly.
// =============================================================================

func (s *Store) PutEmployee(e staff.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) PutSite(site roster.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = site
}

// =============================================================================
// staff.Directory
// =============================================================================

func (s *Store) GetEmployee(_ context.Context, id staff.EmployeeID) (staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return staff.Employee{}, staff.ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *Store) ListActiveEmployees(_ context.Context) ([]staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []staff.Employee
	for _, emp := range s.employees {
		if emp.Active {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// roster.SiteRepository
// =============================================================================

func (s *Store) GetSite(_ context.Context, id roster.SiteID) (roster.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return roster.Site{}, roster.ErrSiteNotFound
	}
	return site, nil
}

// =============================================================================
// roster.ShiftRepository
// =============================================================================

func (s *Store) CreateShift(_ context.Context, shift roster.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[shift.ID] = shift
	return nil
}

func (s *Store) GetShift(_ context.Context, id roster.ShiftID) (roster.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shift, ok := s.shifts[id]
	if !ok {
		return roster.Shift{}, roster.ErrShiftNotFound
	}
	return shift, nil
}

func (s *Store) ListShiftsByEmployee(_ context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]roster.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []roster.Shift
	for _, shift := range s.shifts {
		if shift.EmployeeID != employeeID || shift.Status == roster.ShiftCancelled {
			continue
		}
		if !from.IsZero() && shift.End.Before(from) {
			continue
		}
		if !to.IsZero() && shift.Start.After(to) {
			continue
		}
		result = append(result, shift)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (s *Store) CompleteShift(_ context.Context, id roster.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return roster.ErrShiftNotFound
	}
	if shift.Status == roster.ShiftCancelled {
		return roster.ErrShiftNotFound
	}
	shift.Status = roster.ShiftCompleted
	s.shifts[id] = shift
	return nil
}

func (s *Store) CancelShift(_ context.Context, id roster.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return roster.ErrShiftNotFound
	}
	if shift.Status == roster.ShiftCompleted {
		return roster.ErrShiftCompleted
	}
	shift.Status = roster.ShiftCancelled
	s.shifts[id] = shift
	return nil
}

// =============================================================================
// attendance.Repository
// =============================================================================

func (s *Store) CreateRecord(_ context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same guarantee as the SQLite partial unique index: a second
	// verified record for the pair, open or closed, is rejected at the
	// storage layer too.
	if rec.Verified {
		for _, existing := range s.records {
			if existing.EmployeeID == rec.EmployeeID && existing.ShiftID == rec.ShiftID && existing.Verified {
				if existing.Open() {
					return attendance.ErrAlreadyClockedIn
				}
				return attendance.ErrAlreadyClockedOut
			}
		}
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *Store) FindOpenRecord(_ context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && rec.ShiftID == shiftID && rec.Open() {
			return rec, true, nil
		}
	}
	return attendance.Record{}, false, nil
}

func (s *Store) FindVerifiedRecord(_ context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && rec.ShiftID == shiftID && rec.Verified {
			return rec, true, nil
		}
	}
	return attendance.Record{}, false, nil
}

func (s *Store) CloseRecord(_ context.Context, id attendance.RecordID, at time.Time, loc geo.Point) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if rec.ClockOutAt != nil {
		return attendance.Record{}, attendance.ErrNoOpenRecord
	}
	out := at
	outLoc := loc
	rec.ClockOutAt = &out
	rec.ClockOutLocation = &outLoc
	s.records[id] = rec
	return rec, nil
}

func (s *Store) ListVerifiedClosed(_ context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []attendance.Record
	for _, rec := range s.records {
		if rec.EmployeeID != employeeID || !rec.Verified || !rec.Closed() {
			continue
		}
		if rec.ClockInAt.Before(from) || rec.ClockOutAt.After(to) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClockInAt.Before(result[j].ClockInAt) })
	return result, nil
}

func (s *Store) ListRecordsByEmployee(_ context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []attendance.Record
	for _, rec := range s.records {
		if rec.EmployeeID != employeeID {
			continue
		}
		if rec.ClockInAt.Before(from) || rec.ClockInAt.After(to) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClockInAt.Before(result[j].ClockInAt) })
	return result, nil
}

// =============================================================================
// payroll.AdjustmentRepository
// =============================================================================

func (s *Store) CreateAdjustment(_ context.Context, adj payroll.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments[adj.ID] = adj
	return nil
}

func (s *Store) GetAdjustment(_ context.Context, id payroll.AdjustmentID) (payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adj, ok := s.adjustments[id]
	if !ok {
		return payroll.Adjustment{}, payroll.ErrAdjustmentNotFound
	}
	return adj, nil
}

func (s *Store) ListPendingAdjustments(_ context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []payroll.Adjustment
	for _, adj := range s.adjustments {
		if adj.EmployeeID != employeeID || adj.Status != payroll.AdjustmentPending {
			continue
		}
		if adj.Date.Before(from) || adj.Date.After(to) {
			continue
		}
		result = append(result, adj)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *Store) MarkAdjustmentsApplied(_ context.Context, ids []payroll.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		adj, ok := s.adjustments[id]
		if !ok || adj.Status != payroll.AdjustmentPending {
			continue
		}
		adj.Status = payroll.AdjustmentApplied
		s.adjustments[id] = adj
	}
	return nil
}

func (s *Store) CancelAdjustment(_ context.Context, id payroll.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	adj, ok := s.adjustments[id]
	if !ok {
		return payroll.ErrAdjustmentNotFound
	}
	if adj.Status != payroll.AdjustmentPending {
		return payroll.ErrAdjustmentNotPending
	}
	adj.Status = payroll.AdjustmentCancelled
	s.adjustments[id] = adj
	return nil
}

// =============================================================================
// payroll.PeriodRepository
// =============================================================================

func (s *Store) CreatePeriod(_ context.Context, p payroll.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[p.ID] = p
	return nil
}

func (s *Store) GetPeriod(_ context.Context, id payroll.PeriodID) (payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[id]
	if !ok {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	return p, nil
}

func (s *Store) ListPeriods(_ context.Context) ([]payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []payroll.Period
	for _, p := range s.periods {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

// ClaimPeriod is the generation mutual-exclusion point: checked and
// transitioned under the write lock, so exactly one caller wins.
func (s *Store) ClaimPeriod(_ context.Context, id payroll.PeriodID) (payroll.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	if p.Status != payroll.PeriodDraft {
		return payroll.Period{}, payroll.ErrPeriodNotDraft
	}
	p.Status = payroll.PeriodProcessing
	s.periods[id] = p
	return p, nil
}

func (s *Store) CompletePeriod(_ context.Context, id payroll.PeriodID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return payroll.ErrPeriodNotFound
	}
	if p.Status != payroll.PeriodProcessing {
		return payroll.ErrPeriodNotDraft
	}
	at := processedAt
	p.Status = payroll.PeriodCompleted
	p.ProcessedAt = &at
	s.periods[id] = p
	return nil
}

func (s *Store) ApprovePeriod(_ context.Context, id payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return payroll.ErrPeriodNotFound
	}
	if p.Status != payroll.PeriodProcessing && p.Status != payroll.PeriodCompleted {
		return payroll.ErrPeriodNotApprovable
	}
	p.Status = payroll.PeriodApproved
	s.periods[id] = p
	return nil
}

func (s *Store) DeletePeriod(_ context.Context, id payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return payroll.ErrPeriodNotFound
	}
	if p.Status != payroll.PeriodDraft {
		return payroll.ErrPeriodNotDraft
	}
	delete(s.periods, id)
	return nil
}

// =============================================================================
// payroll.PayslipRepository
// =============================================================================

func (s *Store) ReplacePayslip(_ context.Context, slip payroll.Payslip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := slipKey{Period: slip.PeriodID, Employee: slip.EmployeeID}
	if existing, ok := s.payslips[k]; ok && existing.Status == payroll.PayslipFinalized {
		return payroll.ErrPayslipFinalized
	}
	s.payslips[k] = slip
	return nil
}

func (s *Store) ListPayslipsByPeriod(_ context.Context, periodID payroll.PeriodID) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []payroll.Payslip
	for k, slip := range s.payslips {
		if k.Period == periodID {
			result = append(result, slip)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

func (s *Store) FinalizePayslips(_ context.Context, periodID payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, slip := range s.payslips {
		if k.Period != periodID {
			continue
		}
		slip.Status = payroll.PayslipFinalized
		s.payslips[k] = slip
	}
	return nil
}

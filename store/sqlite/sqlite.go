/*
Package sqlite provides a SQLite-backed implementation of every repository
interface in the module.

PURPOSE:
  One Store implements staff.Directory, roster.ShiftRepository,
  roster.SiteRepository, attendance.Repository, and the payroll
  repositories. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  employees:          Staff records synced from the HR system
  sites:              Work locations with geofence parameters
  shifts:             Roster assignments (SCHEDULED/COMPLETED/CANCELLED)
  attendance_records: Every clock-in attempt, verified or not
  payroll_periods:    Period lifecycle state
  payslips:           One per (period, employee)
  adjustments:        Penalties, bonuses, asset and loan deductions

INVARIANT ENFORCEMENT:
  - idx_verified_attendance: partial unique index allowing at most one
    verified record per (employee, shift), open or closed. This covers
    both halves of the state machine: no duplicate clock-in while OPEN,
    and no re-clock-in once the pair is CLOSED. The attendance ledger
    serializes per pair in process; this index is the storage-level
    backstop. Unverified (rejected) attempts are not constrained.
  - Period claim: DRAFT -> PROCESSING via a conditional UPDATE checking
    RowsAffected, so concurrent generation has exactly one winner.

TIME AND MONEY:
  Timestamps are stored as UTC Unix nanoseconds (INTEGER) so range
  comparisons are exact. Monetary and hour values are stored as decimal
  strings (TEXT), never floats.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/memory: In-memory implementation of the same interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/payroll"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
)

// Store implements all repository interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		radius_m REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_shifts_employee_start
		ON shifts(employee_id, start_at);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		clock_in_at INTEGER NOT NULL,
		clock_in_lat REAL NOT NULL,
		clock_in_lng REAL NOT NULL,
		clock_out_at INTEGER,
		clock_out_lat REAL,
		clock_out_lng REAL,
		verified INTEGER NOT NULL,
		late INTEGER NOT NULL,
		method TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_employee_in
		ON attendance_records(employee_id, clock_in_at);

	-- CRITICAL: at most one verified record per (employee, shift),
	-- open or closed. Supersedes the narrower open-only index.
	DROP INDEX IF EXISTS idx_open_attendance;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_verified_attendance
		ON attendance_records(employee_id, shift_id)
		WHERE verified = 1;

	CREATE TABLE IF NOT EXISTS payroll_periods (
		id TEXT PRIMARY KEY,
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		processed_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS payslips (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		basic TEXT NOT NULL,
		overtime TEXT NOT NULL,
		transport_allowance TEXT NOT NULL,
		gross TEXT NOT NULL,
		taxable TEXT NOT NULL,
		income_tax TEXT NOT NULL,
		pension TEXT NOT NULL,
		cost_sharing TEXT NOT NULL,
		penalties TEXT NOT NULL,
		asset_deductions TEXT NOT NULL,
		loan_repayment TEXT NOT NULL,
		bonuses TEXT NOT NULL,
		net TEXT NOT NULL,
		status TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		UNIQUE(period_id, employee_id)
	);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		date_at INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_adjustments_employee_date
		ON adjustments(employee_id, date_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func nanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner lets scan helpers accept both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// staff.Directory
// =============================================================================

// SaveEmployee upserts an employee. Staff data is owned by the external HR
// system; this is the seeding/sync entry point.
func (s *Store) SaveEmployee(ctx context.Context, e staff.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, hourly_rate, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			hourly_rate = excluded.hourly_rate, active = excluded.active`,
		string(e.ID), e.Name, e.HourlyRate.String(), boolInt(e.Active))
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id staff.EmployeeID) (staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, hourly_rate, active FROM employees WHERE id = ?`, string(id))
	return scanEmployee(row)
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, hourly_rate, active FROM employees WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []staff.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, emp)
	}
	return result, rows.Err()
}

func scanEmployee(row rowScanner) (staff.Employee, error) {
	var e staff.Employee
	var rate string
	var active int
	if err := row.Scan((*string)(&e.ID), &e.Name, &rate, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.Employee{}, staff.ErrEmployeeNotFound
		}
		return staff.Employee{}, err
	}
	e.HourlyRate = parseDec(rate)
	e.Active = active != 0
	return e, nil
}

// =============================================================================
// roster.SiteRepository
// =============================================================================

// SaveSite upserts a site. Site data is owned by the client-management
// system; this is the seeding/sync entry point.
func (s *Store) SaveSite(ctx context.Context, site roster.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, name, lat, lng, radius_m) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, lat = excluded.lat,
			lng = excluded.lng, radius_m = excluded.radius_m`,
		string(site.ID), site.Name, site.Location.Lat, site.Location.Lng, site.RadiusMeters)
	return err
}

func (s *Store) GetSite(ctx context.Context, id roster.SiteID) (roster.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var site roster.Site
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng, radius_m FROM sites WHERE id = ?`, string(id)).
		Scan((*string)(&site.ID), &site.Name, &site.Location.Lat, &site.Location.Lng, &site.RadiusMeters)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Site{}, roster.ErrSiteNotFound
	}
	if err != nil {
		return roster.Site{}, err
	}
	return site, nil
}

// =============================================================================
// roster.ShiftRepository
// =============================================================================

func (s *Store) CreateShift(ctx context.Context, shift roster.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, employee_id, site_id, job_id, start_at, end_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(shift.ID), string(shift.EmployeeID), string(shift.SiteID), string(shift.JobID),
		nanos(shift.Start), nanos(shift.End), string(shift.Status))
	return err
}

func (s *Store) GetShift(ctx context.Context, id roster.ShiftID) (roster.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, site_id, job_id, start_at, end_at, status
		FROM shifts WHERE id = ?`, string(id))
	return scanShift(row)
}

// ListShiftsByEmployee returns non-cancelled shifts intersecting [from, to].
// Zero times mean unbounded on that side.
func (s *Store) ListShiftsByEmployee(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]roster.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, employee_id, site_id, job_id, start_at, end_at, status
		FROM shifts WHERE employee_id = ? AND status != ?`
	args := []any{string(employeeID), string(roster.ShiftCancelled)}
	if !from.IsZero() {
		query += ` AND end_at >= ?`
		args = append(args, nanos(from))
	}
	if !to.IsZero() {
		query += ` AND start_at <= ?`
		args = append(args, nanos(to))
	}
	query += ` ORDER BY start_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []roster.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, shift)
	}
	return result, rows.Err()
}

func (s *Store) CompleteShift(ctx context.Context, id roster.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET status = ? WHERE id = ? AND status != ?`,
		string(roster.ShiftCompleted), string(id), string(roster.ShiftCancelled))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrShiftNotFound
	}
	return nil
}

func (s *Store) CancelShift(ctx context.Context, id roster.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET status = ? WHERE id = ? AND status = ?`,
		string(roster.ShiftCancelled), string(id), string(roster.ShiftScheduled))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Distinguish missing from already-completed.
	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = ?`, string(id)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.ErrShiftNotFound
	}
	if err != nil {
		return err
	}
	if status == string(roster.ShiftCompleted) {
		return roster.ErrShiftCompleted
	}
	return nil
}

func scanShift(row rowScanner) (roster.Shift, error) {
	var shift roster.Shift
	var start, end int64
	err := row.Scan((*string)(&shift.ID), (*string)(&shift.EmployeeID), (*string)(&shift.SiteID),
		(*string)(&shift.JobID), &start, &end, (*string)(&shift.Status))
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Shift{}, roster.ErrShiftNotFound
	}
	if err != nil {
		return roster.Shift{}, err
	}
	shift.Start = fromNanos(start)
	shift.End = fromNanos(end)
	return shift, nil
}

// =============================================================================
// attendance.Repository
// =============================================================================

const recordSelect = `
	SELECT id, shift_id, employee_id, clock_in_at, clock_in_lat, clock_in_lng,
	       clock_out_at, clock_out_lat, clock_out_lng, verified, late, method, note
	FROM attendance_records`

func (s *Store) CreateRecord(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var outAt, outLat, outLng any
	if rec.ClockOutAt != nil {
		outAt = nanos(*rec.ClockOutAt)
	}
	if rec.ClockOutLocation != nil {
		outLat = rec.ClockOutLocation.Lat
		outLng = rec.ClockOutLocation.Lng
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, shift_id, employee_id, clock_in_at, clock_in_lat, clock_in_lng,
			 clock_out_at, clock_out_lat, clock_out_lng, verified, late, method, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.ShiftID), string(rec.EmployeeID),
		nanos(rec.ClockInAt), rec.ClockInLocation.Lat, rec.ClockInLocation.Lng,
		outAt, outLat, outLng, boolInt(rec.Verified), boolInt(rec.Late), rec.Method, rec.Note)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// idx_verified_attendance fired: the pair already has a verified
		// record. Closed means the shift was already worked and clocked out.
		var closed int
		if qerr := s.db.QueryRowContext(ctx, `
			SELECT clock_out_at IS NOT NULL FROM attendance_records
			WHERE employee_id = ? AND shift_id = ? AND verified = 1`,
			string(rec.EmployeeID), string(rec.ShiftID)).Scan(&closed); qerr == nil && closed == 1 {
			return attendance.ErrAlreadyClockedOut
		}
		return attendance.ErrAlreadyClockedIn
	}
	return err
}

func (s *Store) FindOpenRecord(ctx context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, recordSelect+`
		WHERE employee_id = ? AND shift_id = ? AND verified = 1 AND clock_out_at IS NULL`,
		string(employeeID), string(shiftID))
	rec, err := scanRecord(row)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, false, nil
	}
	if err != nil {
		return attendance.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) FindVerifiedRecord(ctx context.Context, employeeID staff.EmployeeID, shiftID roster.ShiftID) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, recordSelect+`
		WHERE employee_id = ? AND shift_id = ? AND verified = 1`,
		string(employeeID), string(shiftID))
	rec, err := scanRecord(row)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, false, nil
	}
	if err != nil {
		return attendance.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) CloseRecord(ctx context.Context, id attendance.RecordID, at time.Time, loc geo.Point) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_records SET clock_out_at = ?, clock_out_lat = ?, clock_out_lng = ?
		WHERE id = ? AND clock_out_at IS NULL`,
		nanos(at), loc.Lat, loc.Lng, string(id))
	if err != nil {
		return attendance.Record{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM attendance_records WHERE id = ?`, string(id)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		if err != nil {
			return attendance.Record{}, err
		}
		return attendance.Record{}, attendance.ErrNoOpenRecord
	}

	row := s.db.QueryRowContext(ctx, recordSelect+` WHERE id = ?`, string(id))
	return scanRecord(row)
}

func (s *Store) ListVerifiedClosed(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, recordSelect+`
		WHERE employee_id = ? AND verified = 1 AND clock_out_at IS NOT NULL
		  AND clock_in_at >= ? AND clock_out_at <= ?
		ORDER BY clock_in_at`,
		string(employeeID), nanos(from), nanos(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListRecordsByEmployee(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, recordSelect+`
		WHERE employee_id = ? AND clock_in_at >= ? AND clock_in_at <= ?
		ORDER BY clock_in_at`,
		string(employeeID), nanos(from), nanos(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecord(row rowScanner) (attendance.Record, error) {
	var rec attendance.Record
	var inAt int64
	var outAt sql.NullInt64
	var outLat, outLng sql.NullFloat64
	var verified, late int
	err := row.Scan((*string)(&rec.ID), (*string)(&rec.ShiftID), (*string)(&rec.EmployeeID),
		&inAt, &rec.ClockInLocation.Lat, &rec.ClockInLocation.Lng,
		&outAt, &outLat, &outLng, &verified, &late, &rec.Method, &rec.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if err != nil {
		return attendance.Record{}, err
	}
	rec.ClockInAt = fromNanos(inAt)
	if outAt.Valid {
		t := fromNanos(outAt.Int64)
		rec.ClockOutAt = &t
	}
	if outLat.Valid && outLng.Valid {
		rec.ClockOutLocation = &geo.Point{Lat: outLat.Float64, Lng: outLng.Float64}
	}
	rec.Verified = verified != 0
	rec.Late = late != 0
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]attendance.Record, error) {
	var result []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// =============================================================================
// payroll.PeriodRepository
// =============================================================================

func (s *Store) CreatePeriod(ctx context.Context, p payroll.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var processed any
	if p.ProcessedAt != nil {
		processed = nanos(*p.ProcessedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_periods (id, start_at, end_at, status, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.ID), nanos(p.Start), nanos(p.End), string(p.Status), processed)
	return err
}

func (s *Store) GetPeriod(ctx context.Context, id payroll.PeriodID) (payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPeriod(ctx, id)
}

func (s *Store) getPeriod(ctx context.Context, id payroll.PeriodID) (payroll.Period, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_at, end_at, status, processed_at FROM payroll_periods WHERE id = ?`,
		string(id))
	return scanPeriod(row)
}

func (s *Store) ListPeriods(ctx context.Context) ([]payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_at, end_at, status, processed_at FROM payroll_periods ORDER BY start_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payroll.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ClaimPeriod atomically transitions DRAFT -> PROCESSING. The conditional
// UPDATE is the mutual-exclusion point: exactly one caller sees a row change.
func (s *Store) ClaimPeriod(ctx context.Context, id payroll.PeriodID) (payroll.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE payroll_periods SET status = ? WHERE id = ? AND status = ?`,
		string(payroll.PeriodProcessing), string(id), string(payroll.PeriodDraft))
	if err != nil {
		return payroll.Period{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getPeriod(ctx, id); err != nil {
			return payroll.Period{}, err
		}
		return payroll.Period{}, payroll.ErrPeriodNotDraft
	}
	return s.getPeriod(ctx, id)
}

func (s *Store) CompletePeriod(ctx context.Context, id payroll.PeriodID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE payroll_periods SET status = ?, processed_at = ? WHERE id = ? AND status = ?`,
		string(payroll.PeriodCompleted), nanos(processedAt), string(id), string(payroll.PeriodProcessing))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getPeriod(ctx, id); err != nil {
			return err
		}
		return payroll.ErrPeriodNotDraft
	}
	return nil
}

func (s *Store) ApprovePeriod(ctx context.Context, id payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE payroll_periods SET status = ? WHERE id = ? AND status IN (?, ?)`,
		string(payroll.PeriodApproved), string(id),
		string(payroll.PeriodProcessing), string(payroll.PeriodCompleted))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getPeriod(ctx, id); err != nil {
			return err
		}
		return payroll.ErrPeriodNotApprovable
	}
	return nil
}

func (s *Store) DeletePeriod(ctx context.Context, id payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payroll_periods WHERE id = ? AND status = ?`,
		string(id), string(payroll.PeriodDraft))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getPeriod(ctx, id); err != nil {
			return err
		}
		return payroll.ErrPeriodNotDraft
	}
	return nil
}

func scanPeriod(row rowScanner) (payroll.Period, error) {
	var p payroll.Period
	var start, end int64
	var processed sql.NullInt64
	err := row.Scan((*string)(&p.ID), &start, &end, (*string)(&p.Status), &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	if err != nil {
		return payroll.Period{}, err
	}
	p.Start = fromNanos(start)
	p.End = fromNanos(end)
	if processed.Valid {
		t := fromNanos(processed.Int64)
		p.ProcessedAt = &t
	}
	return p, nil
}

// =============================================================================
// payroll.PayslipRepository
// =============================================================================

func (s *Store) ReplacePayslip(ctx context.Context, slip payroll.Payslip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM payslips WHERE period_id = ? AND employee_id = ?`,
		string(slip.PeriodID), string(slip.EmployeeID)).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil && status == string(payroll.PayslipFinalized) {
		return payroll.ErrPayslipFinalized
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payslips
			(id, period_id, employee_id, regular_hours, overtime_hours, hourly_rate,
			 basic, overtime, transport_allowance, gross, taxable, income_tax,
			 pension, cost_sharing, penalties, asset_deductions, loan_repayment,
			 bonuses, net, status, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_id, employee_id) DO UPDATE SET
			id = excluded.id,
			regular_hours = excluded.regular_hours,
			overtime_hours = excluded.overtime_hours,
			hourly_rate = excluded.hourly_rate,
			basic = excluded.basic,
			overtime = excluded.overtime,
			transport_allowance = excluded.transport_allowance,
			gross = excluded.gross,
			taxable = excluded.taxable,
			income_tax = excluded.income_tax,
			pension = excluded.pension,
			cost_sharing = excluded.cost_sharing,
			penalties = excluded.penalties,
			asset_deductions = excluded.asset_deductions,
			loan_repayment = excluded.loan_repayment,
			bonuses = excluded.bonuses,
			net = excluded.net,
			status = excluded.status,
			generated_at = excluded.generated_at`,
		string(slip.ID), string(slip.PeriodID), string(slip.EmployeeID),
		slip.RegularHours.String(), slip.OvertimeHours.String(), slip.HourlyRate.String(),
		slip.Basic.String(), slip.Overtime.String(), slip.TransportAllowance.String(),
		slip.Gross.String(), slip.Taxable.String(), slip.IncomeTax.String(),
		slip.Pension.String(), slip.CostSharing.String(), slip.Penalties.String(),
		slip.AssetDeductions.String(), slip.LoanRepayment.String(),
		slip.Bonuses.String(), slip.Net.String(), string(slip.Status), nanos(slip.GeneratedAt))
	return err
}

func (s *Store) ListPayslipsByPeriod(ctx context.Context, periodID payroll.PeriodID) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_id, employee_id, regular_hours, overtime_hours, hourly_rate,
		       basic, overtime, transport_allowance, gross, taxable, income_tax,
		       pension, cost_sharing, penalties, asset_deductions, loan_repayment,
		       bonuses, net, status, generated_at
		FROM payslips WHERE period_id = ? ORDER BY employee_id`, string(periodID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payroll.Payslip
	for rows.Next() {
		var slip payroll.Payslip
		cols := make([]string, 16)
		var generatedAt int64
		err := rows.Scan((*string)(&slip.ID), (*string)(&slip.PeriodID), (*string)(&slip.EmployeeID),
			&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7],
			&cols[8], &cols[9], &cols[10], &cols[11], &cols[12], &cols[13], &cols[14], &cols[15],
			(*string)(&slip.Status), &generatedAt)
		if err != nil {
			return nil, err
		}
		slip.RegularHours = parseDec(cols[0])
		slip.OvertimeHours = parseDec(cols[1])
		slip.HourlyRate = parseDec(cols[2])
		slip.Basic = parseDec(cols[3])
		slip.Overtime = parseDec(cols[4])
		slip.TransportAllowance = parseDec(cols[5])
		slip.Gross = parseDec(cols[6])
		slip.Taxable = parseDec(cols[7])
		slip.IncomeTax = parseDec(cols[8])
		slip.Pension = parseDec(cols[9])
		slip.CostSharing = parseDec(cols[10])
		slip.Penalties = parseDec(cols[11])
		slip.AssetDeductions = parseDec(cols[12])
		slip.LoanRepayment = parseDec(cols[13])
		slip.Bonuses = parseDec(cols[14])
		slip.Net = parseDec(cols[15])
		slip.GeneratedAt = fromNanos(generatedAt)
		result = append(result, slip)
	}
	return result, rows.Err()
}

func (s *Store) FinalizePayslips(ctx context.Context, periodID payroll.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE payslips SET status = ? WHERE period_id = ?`,
		string(payroll.PayslipFinalized), string(periodID))
	return err
}

// =============================================================================
// payroll.AdjustmentRepository
// =============================================================================

func (s *Store) CreateAdjustment(ctx context.Context, adj payroll.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (id, employee_id, kind, amount, date_at, reason, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(adj.ID), string(adj.EmployeeID), string(adj.Kind),
		adj.Amount.String(), nanos(adj.Date), adj.Reason, string(adj.Status))
	return err
}

func (s *Store) GetAdjustment(ctx context.Context, id payroll.AdjustmentID) (payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, kind, amount, date_at, reason, status
		FROM adjustments WHERE id = ?`, string(id))
	return scanAdjustment(row)
}

func (s *Store) ListPendingAdjustments(ctx context.Context, employeeID staff.EmployeeID, from, to time.Time) ([]payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, kind, amount, date_at, reason, status
		FROM adjustments
		WHERE employee_id = ? AND status = ? AND date_at >= ? AND date_at <= ?
		ORDER BY date_at`,
		string(employeeID), string(payroll.AdjustmentPending), nanos(from), nanos(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payroll.Adjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, adj)
	}
	return result, rows.Err()
}

func (s *Store) MarkAdjustmentsApplied(ctx context.Context, ids []payroll.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		_, err := s.db.ExecContext(ctx,
			`UPDATE adjustments SET status = ? WHERE id = ? AND status = ?`,
			string(payroll.AdjustmentApplied), string(id), string(payroll.AdjustmentPending))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CancelAdjustment(ctx context.Context, id payroll.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE adjustments SET status = ? WHERE id = ? AND status = ?`,
		string(payroll.AdjustmentCancelled), string(id), string(payroll.AdjustmentPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM adjustments WHERE id = ?`, string(id)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.ErrAdjustmentNotFound
		}
		if err != nil {
			return err
		}
		return payroll.ErrAdjustmentNotPending
	}
	return nil
}

func scanAdjustment(row rowScanner) (payroll.Adjustment, error) {
	var adj payroll.Adjustment
	var amount string
	var date int64
	err := row.Scan((*string)(&adj.ID), (*string)(&adj.EmployeeID), (*string)(&adj.Kind),
		&amount, &date, &adj.Reason, (*string)(&adj.Status))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Adjustment{}, payroll.ErrAdjustmentNotFound
	}
	if err != nil {
		return payroll.Adjustment{}, err
	}
	adj.Amount = parseDec(amount)
	adj.Date = fromNanos(date)
	return adj, nil
}

/*
handlers.go - HTTP API handlers for the attendance and payroll engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/clock-in        GPS clock-in attempt
    POST   /api/attendance/clock-out       Close the open record
    GET    /api/employees/{id}/attendance  Attendance history

  Roster:
    POST   /api/roster/bulk-assign         Assign a group to a site
    GET    /api/employees/{id}/shifts      Employee roster

  Payroll:
    GET    /api/payroll/periods            List periods
    POST   /api/payroll/periods            Create DRAFT period
    DELETE /api/payroll/periods/{id}       Delete empty draft
    POST   /api/payroll/periods/{id}/generate
    POST   /api/payroll/periods/{id}/approve
    GET    /api/payroll/periods/{id}/payslips

  Adjustments:
    POST   /api/adjustments                Record penalty/bonus/deduction
    DELETE /api/adjustments/{id}           Cancel while PENDING

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, assigner, controller)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: State conflicts (duplicate clock-in, non-draft period, ...)
  - 500: Internal errors
  A geofence miss is NOT an error: it returns 200 with success=false,
  because the rejected attempt is itself a recorded outcome.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/geo"
	"github.com/fieldforce/payroll-engine/payroll"
	"github.com/fieldforce/payroll-engine/roster"
	"github.com/fieldforce/payroll-engine/staff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence surface the handlers need. Both store/memory and
// store/sqlite satisfy it.
type Store interface {
	staff.Directory
	roster.ShiftRepository
	roster.SiteRepository
	attendance.Repository
	payroll.PeriodRepository
	payroll.PayslipRepository
	payroll.AdjustmentRepository
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Ledger     *attendance.Ledger
	Assigner   *roster.BulkAssigner
	Controller *payroll.Controller

	// Config applied to every generation run, loaded at startup.
	Config payroll.Config
}

// NewHandler wires the domain services around the given store.
func NewHandler(store Store, cfg payroll.Config) *Handler {
	engine := payroll.NewEngine(store, payroll.DirectoryRates{Directory: store}, store, store)
	return &Handler{
		Store:      store,
		Ledger:     attendance.NewLedger(store, store, store),
		Assigner:   &roster.BulkAssigner{Shifts: store, Sites: store, Employees: store},
		Controller: payroll.NewController(store, store, engine, store),
		Config:     cfg,
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ClockIn handles a GPS clock-in attempt.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.ShiftID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and shift_id are required", nil)
		return
	}

	result, err := h.Ledger.ClockIn(r.Context(), attendance.ClockInInput{
		EmployeeID: staff.EmployeeID(req.EmployeeID),
		ShiftID:    roster.ShiftID(req.ShiftID),
		Location:   geo.Point{Lat: req.Lat, Lng: req.Lng},
		Note:       req.Note,
	})
	if err != nil {
		writeDomainError(w, "Clock-in failed", err)
		return
	}

	rec := toRecordDTO(result.Record)
	writeJSON(w, http.StatusOK, ClockResultDTO{
		Success:        result.OK,
		Message:        result.Message,
		DistanceMeters: result.DistanceMeters,
		Record:         &rec,
	})
}

// ClockOut closes the open record for the (employee, shift) pair.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.ShiftID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and shift_id are required", nil)
		return
	}

	result, err := h.Ledger.ClockOut(r.Context(), attendance.ClockOutInput{
		EmployeeID: staff.EmployeeID(req.EmployeeID),
		ShiftID:    roster.ShiftID(req.ShiftID),
		Location:   geo.Point{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		writeDomainError(w, "Clock-out failed", err)
		return
	}

	rec := toRecordDTO(result.Record)
	writeJSON(w, http.StatusOK, ClockResultDTO{
		Success:     result.OK,
		Message:     result.Message,
		WorkedHours: result.WorkedHours.String(),
		Record:      &rec,
	})
}

// ListAttendance returns an employee's attendance history.
// Optional from/to query params (RFC3339) bound the window; the default is
// the last 31 days.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	employeeID := staff.EmployeeID(chi.URLParam(r, "id"))

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -31)
	var err error
	if from, err = parseTimeParam(r, "from", from); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from parameter (use RFC3339)", err)
		return
	}
	if to, err = parseTimeParam(r, "to", to); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to parameter (use RFC3339)", err)
		return
	}

	records, err := h.Store.ListRecordsByEmployee(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// BulkAssign assigns a group of employees to a site over a date range.
func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "date_to must not precede date_from", nil)
		return
	}
	dailyStart, err := parseClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time (use HH:MM)", err)
		return
	}
	dailyEnd, err := parseClock(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time (use HH:MM)", err)
		return
	}

	employeeIDs := make([]staff.EmployeeID, len(req.EmployeeIDs))
	for i, id := range req.EmployeeIDs {
		employeeIDs[i] = staff.EmployeeID(id)
	}

	result, err := h.Assigner.Assign(r.Context(), roster.BulkAssignInput{
		SiteID:      roster.SiteID(req.SiteID),
		JobID:       roster.JobID(req.JobID),
		EmployeeIDs: employeeIDs,
		From:        from,
		To:          to,
		DailyStart:  dailyStart,
		DailyEnd:    dailyEnd,
	})
	if err != nil {
		writeDomainError(w, "Bulk assignment failed", err)
		return
	}

	dto := BulkAssignResultDTO{Created: result.Created, Conflicts: []ConflictDTO{}}
	for _, c := range result.Conflicts {
		dto.Conflicts = append(dto.Conflicts, ConflictDTO{
			EmployeeID: string(c.EmployeeID),
			Name:       c.Name,
			Date:       c.Date.Format("2006-01-02"),
			Reason:     c.Reason,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListShifts returns an employee's roster. Optional from/to bounds.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	employeeID := staff.EmployeeID(chi.URLParam(r, "id"))

	from, err := parseTimeParam(r, "from", time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from parameter (use RFC3339)", err)
		return
	}
	to, err := parseTimeParam(r, "to", time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to parameter (use RFC3339)", err)
		return
	}

	shifts, err := h.Store.ListShiftsByEmployee(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// ListPeriods returns all payroll periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePeriod creates a DRAFT payroll period.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use RFC3339)", err)
		return
	}

	period, err := h.Controller.CreatePeriod(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(period))
}

// DeletePeriod removes an empty DRAFT period.
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id := payroll.PeriodID(chi.URLParam(r, "id"))
	if err := h.Controller.DeletePeriod(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GeneratePayroll runs payslip generation for a period.
func (h *Handler) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	id := payroll.PeriodID(chi.URLParam(r, "id"))

	result, err := h.Controller.Generate(r.Context(), id, h.Config)
	if err != nil {
		writeDomainError(w, "Payroll generation failed", err)
		return
	}

	dto := GenerateResultDTO{
		PeriodID:  string(result.PeriodID),
		Generated: result.Generated,
		Errors:    []EmployeeErrorDTO{},
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, EmployeeErrorDTO{
			EmployeeID: string(e.EmployeeID),
			Name:       e.Name,
			Error:      e.Err,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ApprovePeriod approves a processed period and freezes its payslips.
func (h *Handler) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	id := payroll.PeriodID(chi.URLParam(r, "id"))
	if err := h.Controller.Approve(r.Context(), id); err != nil {
		writeDomainError(w, "Approval failed", err)
		return
	}

	period, err := h.Store.GetPeriod(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(period))
}

// ListPayslips returns the payslips of a period.
func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	id := payroll.PeriodID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetPeriod(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get period", err)
		return
	}

	slips, err := h.Store.ListPayslipsByPeriod(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payslips", err)
		return
	}

	dtos := make([]PayslipDTO, len(slips))
	for i, slip := range slips {
		dtos[i] = toPayslipDTO(slip)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADJUSTMENT HANDLERS
// =============================================================================

// CreateAdjustment records a pending penalty, bonus, or deduction.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := payroll.AdjustmentKind(req.Kind)
	switch kind {
	case payroll.KindPenalty, payroll.KindBonus, payroll.KindAssetDeduction, payroll.KindLoanRepayment:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown kind %q", req.Kind), nil)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative decimal string", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	if _, err := h.Store.GetEmployee(r.Context(), staff.EmployeeID(req.EmployeeID)); err != nil {
		writeDomainError(w, "Failed to resolve employee", err)
		return
	}

	adj := payroll.Adjustment{
		ID:         payroll.AdjustmentID(ulid.Make().String()),
		EmployeeID: staff.EmployeeID(req.EmployeeID),
		Kind:       kind,
		Amount:     amount,
		Date:       date,
		Reason:     req.Reason,
		Status:     payroll.AdjustmentPending,
	}
	if err := h.Store.CreateAdjustment(r.Context(), adj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(adj))
}

// CancelAdjustment cancels a PENDING adjustment.
func (h *Handler) CancelAdjustment(w http.ResponseWriter, r *http.Request) {
	id := payroll.AdjustmentID(chi.URLParam(r, "id"))
	if err := h.Store.CancelAdjustment(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to cancel adjustment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTimeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// parseClock parses "HH:MM" into a duration since midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// writeDomainError maps sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, staff.ErrEmployeeNotFound),
		errors.Is(err, roster.ErrShiftNotFound),
		errors.Is(err, roster.ErrSiteNotFound),
		errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, payroll.ErrPeriodNotFound),
		errors.Is(err, payroll.ErrAdjustmentNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, attendance.ErrInvalidCoordinates),
		errors.Is(err, attendance.ErrShiftMismatch),
		errors.Is(err, payroll.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrNoOpenRecord),
		errors.Is(err, roster.ErrShiftConflict),
		errors.Is(err, roster.ErrShiftCompleted),
		errors.Is(err, payroll.ErrPeriodNotDraft),
		errors.Is(err, payroll.ErrPeriodNotApprovable),
		errors.Is(err, payroll.ErrPeriodHasPayslips),
		errors.Is(err, payroll.ErrPayslipFinalized),
		errors.Is(err, payroll.ErrAdjustmentNotPending):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

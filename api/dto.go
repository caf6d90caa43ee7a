/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Attendance:
    ClockRequest, ClockResultDTO, RecordDTO

  Roster:
    BulkAssignRequest, BulkAssignResultDTO, ShiftDTO

  Payroll:
    CreatePeriodRequest, PeriodDTO, GenerateResultDTO, PayslipDTO

  Adjustments:
    CreateAdjustmentRequest, AdjustmentDTO

MONEY:
  Monetary fields are serialized as decimal strings ("559.625"), never
  floats. Clients parse them with their own decimal types.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

import (
	"time"

	"github.com/fieldforce/payroll-engine/attendance"
	"github.com/fieldforce/payroll-engine/payroll"
	"github.com/fieldforce/payroll-engine/roster"
)

// =============================================================================
// ATTENDANCE TYPES
// =============================================================================

// ClockRequest is the body for clock-in and clock-out.
type ClockRequest struct {
	EmployeeID string  `json:"employee_id"`
	ShiftID    string  `json:"shift_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Note       string  `json:"note,omitempty"`
}

// ClockResultDTO reports the outcome of a clock attempt. A geofence miss is
// a recorded outcome, not an HTTP error: Success=false with the distance.
type ClockResultDTO struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message,omitempty"`
	DistanceMeters float64    `json:"distance_meters,omitempty"`
	WorkedHours    string     `json:"worked_hours,omitempty"`
	Record         *RecordDTO `json:"record,omitempty"`
}

// RecordDTO represents an attendance record in API responses.
type RecordDTO struct {
	ID         string   `json:"id"`
	ShiftID    string   `json:"shift_id"`
	EmployeeID string   `json:"employee_id"`
	ClockInAt  string   `json:"clock_in_at"`
	ClockOutAt *string  `json:"clock_out_at,omitempty"`
	Verified   bool     `json:"verified"`
	Late       bool     `json:"late"`
	Method     string   `json:"method"`
	Note       string   `json:"note,omitempty"`
}

func toRecordDTO(rec attendance.Record) RecordDTO {
	dto := RecordDTO{
		ID:         string(rec.ID),
		ShiftID:    string(rec.ShiftID),
		EmployeeID: string(rec.EmployeeID),
		ClockInAt:  rec.ClockInAt.Format(time.RFC3339),
		Verified:   rec.Verified,
		Late:       rec.Late,
		Method:     rec.Method,
		Note:       rec.Note,
	}
	if rec.ClockOutAt != nil {
		out := rec.ClockOutAt.Format(time.RFC3339)
		dto.ClockOutAt = &out
	}
	return dto
}

// =============================================================================
// ROSTER TYPES
// =============================================================================

// BulkAssignRequest assigns a group of employees to a site for a date range.
// Times are daily wall-clock offsets; an end before the start means an
// overnight window.
type BulkAssignRequest struct {
	SiteID      string   `json:"site_id"`
	JobID       string   `json:"job_id"`
	EmployeeIDs []string `json:"employee_ids"`
	DateFrom    string   `json:"date_from"`   // YYYY-MM-DD
	DateTo      string   `json:"date_to"`     // YYYY-MM-DD
	StartTime   string   `json:"start_time"`  // HH:MM
	EndTime     string   `json:"end_time"`    // HH:MM
}

// ConflictDTO names one employee-day that could not be assigned.
type ConflictDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name,omitempty"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

// BulkAssignResultDTO is the partial-success report for a bulk assignment.
type BulkAssignResultDTO struct {
	Created   int           `json:"created"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

// ShiftDTO represents a shift in API responses.
type ShiftDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	SiteID     string `json:"site_id"`
	JobID      string `json:"job_id,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
}

func toShiftDTO(s roster.Shift) ShiftDTO {
	return ShiftDTO{
		ID:         string(s.ID),
		EmployeeID: string(s.EmployeeID),
		SiteID:     string(s.SiteID),
		JobID:      string(s.JobID),
		Start:      s.Start.Format(time.RFC3339),
		End:        s.End.Format(time.RFC3339),
		Status:     string(s.Status),
	}
}

// =============================================================================
// PAYROLL TYPES
// =============================================================================

// CreatePeriodRequest creates a DRAFT payroll period.
type CreatePeriodRequest struct {
	Start string `json:"start"` // RFC3339
	End   string `json:"end"`   // RFC3339
}

// PeriodDTO represents a payroll period in API responses.
type PeriodDTO struct {
	ID          string  `json:"id"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Status      string  `json:"status"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func toPeriodDTO(p payroll.Period) PeriodDTO {
	dto := PeriodDTO{
		ID:     string(p.ID),
		Start:  p.Start.Format(time.RFC3339),
		End:    p.End.Format(time.RFC3339),
		Status: string(p.Status),
	}
	if p.ProcessedAt != nil {
		at := p.ProcessedAt.Format(time.RFC3339)
		dto.ProcessedAt = &at
	}
	return dto
}

// EmployeeErrorDTO names one employee whose payslip could not be computed.
type EmployeeErrorDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name,omitempty"`
	Error      string `json:"error"`
}

// GenerateResultDTO is the outcome of a payroll generation run.
type GenerateResultDTO struct {
	PeriodID  string             `json:"period_id"`
	Generated int                `json:"generated"`
	Errors    []EmployeeErrorDTO `json:"errors"`
}

// PayslipDTO represents a payslip in API responses. All amounts are decimal
// strings.
type PayslipDTO struct {
	ID                 string `json:"id"`
	PeriodID           string `json:"period_id"`
	EmployeeID         string `json:"employee_id"`
	RegularHours       string `json:"regular_hours"`
	OvertimeHours      string `json:"overtime_hours"`
	HourlyRate         string `json:"hourly_rate"`
	Basic              string `json:"basic"`
	Overtime           string `json:"overtime"`
	TransportAllowance string `json:"transport_allowance"`
	Gross              string `json:"gross"`
	Taxable            string `json:"taxable"`
	IncomeTax          string `json:"income_tax"`
	Pension            string `json:"pension"`
	CostSharing        string `json:"cost_sharing"`
	Penalties          string `json:"penalties"`
	AssetDeductions    string `json:"asset_deductions"`
	LoanRepayment      string `json:"loan_repayment"`
	Bonuses            string `json:"bonuses"`
	Net                string `json:"net"`
	Status             string `json:"status"`
	GeneratedAt        string `json:"generated_at"`
}

func toPayslipDTO(slip payroll.Payslip) PayslipDTO {
	return PayslipDTO{
		ID:                 string(slip.ID),
		PeriodID:           string(slip.PeriodID),
		EmployeeID:         string(slip.EmployeeID),
		RegularHours:       slip.RegularHours.String(),
		OvertimeHours:      slip.OvertimeHours.String(),
		HourlyRate:         slip.HourlyRate.String(),
		Basic:              slip.Basic.String(),
		Overtime:           slip.Overtime.String(),
		TransportAllowance: slip.TransportAllowance.String(),
		Gross:              slip.Gross.String(),
		Taxable:            slip.Taxable.String(),
		IncomeTax:          slip.IncomeTax.String(),
		Pension:            slip.Pension.String(),
		CostSharing:        slip.CostSharing.String(),
		Penalties:          slip.Penalties.String(),
		AssetDeductions:    slip.AssetDeductions.String(),
		LoanRepayment:      slip.LoanRepayment.String(),
		Bonuses:            slip.Bonuses.String(),
		Net:                slip.Net.String(),
		Status:             string(slip.Status),
		GeneratedAt:        slip.GeneratedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ADJUSTMENT TYPES
// =============================================================================

// CreateAdjustmentRequest records a penalty, bonus, or deduction.
type CreateAdjustmentRequest struct {
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`   // penalty, bonus, asset_deduction, loan_repayment
	Amount     string `json:"amount"` // decimal string
	Date       string `json:"date"`   // YYYY-MM-DD
	Reason     string `json:"reason,omitempty"`
}

// AdjustmentDTO represents an adjustment in API responses.
type AdjustmentDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Reason     string `json:"reason,omitempty"`
	Status     string `json:"status"`
}

func toAdjustmentDTO(adj payroll.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:         string(adj.ID),
		EmployeeID: string(adj.EmployeeID),
		Kind:       string(adj.Kind),
		Amount:     adj.Amount.String(),
		Date:       adj.Date.Format("2006-01-02"),
		Reason:     adj.Reason,
		Status:     string(adj.Status),
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

/*
Package staff defines the employee read surface consumed by the engine.

PURPOSE:
  Employee CRUD belongs to an external collaborator (the HR/client
  management system). This package only declares what the attendance and
  payroll components need to read: who an employee is, whether they are
  active, and their hourly rate.

DESIGN PRINCIPLES:
  1. Read-only boundary: the engine never creates or mutates employees
  2. Type-safe IDs: EmployeeID prevents mixing identifiers across domains
  3. Substitutable: Directory is an interface so tests use in-memory fakes

SEE ALSO:
  - payroll/engine.go: Uses Directory for the active cohort and rates
  - store/memory, store/sqlite: Directory implementations
*/
package staff

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type EmployeeID string

// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
var ErrEmployeeNotFound = errors.New("employee not found")

// Employee is the slice of the external employee record this engine reads.
type Employee struct {
	ID         EmployeeID
	Name       string
	HourlyRate decimal.Decimal
	Active     bool
}

// Directory provides employee lookups. Method names are prefixed so one
// store type can implement every repository interface in this module.
type Directory interface {
	// GetEmployee returns the employee, or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)

	// ListActiveEmployees returns all currently active employees.
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
}

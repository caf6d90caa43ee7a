/*
config.go - Payroll computation configuration

PURPOSE:
  All tunables of a payroll run in one explicit value, injected into the
  engine at call time. No ambient global state: two runs with the same
  config and the same attendance data produce the same payslips.

BONUS POLICY:
  Whether pending bonuses flow through taxable income or are added after
  tax is a statutory question the source system left open. It is a config
  knob here; the default (post-tax) keeps bonuses as a separate additive
  line that is never double-taxed.

SEE ALSO:
  - tax.go:    Bracket table defaults
  - engine.go: Consumes Config per computation
  - factory/config.go: Loads Config from YAML
*/
package payroll

import "github.com/shopspring/decimal"

// BonusPolicy decides how pending bonuses enter the payslip.
type BonusPolicy string

const (
	// BonusPostTax adds bonuses after tax as a separate earnings line.
	BonusPostTax BonusPolicy = "post_tax"

	// BonusTaxable folds bonuses into taxable income before the bracket table.
	BonusTaxable BonusPolicy = "taxable"
)

type Config struct {
	// TransportAllowance is a fixed, untaxed addition to gross pay.
	TransportAllowance decimal.Decimal

	// CostSharing is a fixed statutory deduction.
	CostSharing decimal.Decimal

	// PensionRate is applied to gross pay (statutory flat rate).
	PensionRate decimal.Decimal

	// OvertimeMultiplier scales the hourly rate for overtime hours.
	OvertimeMultiplier decimal.Decimal

	// RegularHoursPerRecord is the per-record threshold splitting regular
	// from overtime hours.
	RegularHoursPerRecord decimal.Decimal

	BonusPolicy BonusPolicy

	Brackets []TaxBracket
}

// DefaultConfig returns the statutory defaults.
func DefaultConfig() Config {
	return Config{
		TransportAllowance:    decimal.Zero,
		CostSharing:           decimal.Zero,
		PensionRate:           dec("0.07"),
		OvertimeMultiplier:    dec("1.5"),
		RegularHoursPerRecord: dec("8"),
		BonusPolicy:           BonusPostTax,
		Brackets:              DefaultBrackets(),
	}
}

/*
tax.go - Progressive income tax over a configurable bracket table

PURPOSE:
  Computes monthly income tax from taxable pay. The bracket table is the
  single authoritative representation: each bracket carries an exclusive
  lower bound, an inclusive upper bound (nil = open-ended top bracket),
  a marginal rate, and a deduction constant.

  tax = taxable * rate - deduction

  The deduction constant makes each bracket's formula continuous with the
  previous one, so boundary values compute identically from either side:
  600 -> 0, 1650 -> 105, 10900 -> 2315.

DEFAULTS:
  DefaultBrackets() ships the statutory monthly table. Deployments with a
  different statute override it via the factory config file; the shipped
  table is simply the default value of the configurable form.

SEE ALSO:
  - config.go:  Config carries the bracket table into the engine
  - factory/config.go: YAML override of the table
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// TAX BRACKET
// =============================================================================

// TaxBracket applies when taxable > Min and taxable <= Max.
type TaxBracket struct {
	// Min is the exclusive lower bound of the bracket.
	Min decimal.Decimal

	// Max is the inclusive upper bound. nil means open-ended.
	Max *decimal.Decimal

	// Rate is the flat rate applied to the whole taxable amount.
	Rate decimal.Decimal

	// Deduction is subtracted after the rate, keeping brackets continuous.
	Deduction decimal.Decimal
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("payroll: bad bracket constant " + s)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// DefaultBrackets returns the statutory monthly bracket table.
func DefaultBrackets() []TaxBracket {
	return []TaxBracket{
		{Min: dec("0"), Max: decPtr("600"), Rate: dec("0"), Deduction: dec("0")},
		{Min: dec("600"), Max: decPtr("1650"), Rate: dec("0.10"), Deduction: dec("60")},
		{Min: dec("1650"), Max: decPtr("3200"), Rate: dec("0.15"), Deduction: dec("142.5")},
		{Min: dec("3200"), Max: decPtr("5250"), Rate: dec("0.20"), Deduction: dec("302.5")},
		{Min: dec("5250"), Max: decPtr("7800"), Rate: dec("0.25"), Deduction: dec("565")},
		{Min: dec("7800"), Max: decPtr("10900"), Rate: dec("0.30"), Deduction: dec("955")},
		{Min: dec("10900"), Max: nil, Rate: dec("0.35"), Deduction: dec("1500")},
	}
}

// =============================================================================
// TAX COMPUTATION
// =============================================================================

// IncomeTax computes tax over the bracket table. Non-positive taxable
// income, or income matching no bracket, is taxed at zero. Tax never
// goes negative.
func IncomeTax(taxable decimal.Decimal, brackets []TaxBracket) decimal.Decimal {
	if taxable.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	for _, b := range brackets {
		if !taxable.GreaterThan(b.Min) {
			continue
		}
		if b.Max != nil && taxable.GreaterThan(*b.Max) {
			continue
		}
		tax := taxable.Mul(b.Rate).Sub(b.Deduction)
		if tax.IsNegative() {
			return decimal.Zero
		}
		return tax
	}
	return decimal.Zero
}

/*
Package factory provides YAML to Go payroll configuration conversion.

PURPOSE:
  Converts YAML payroll definitions into payroll.Config objects. This
  enables payroll tuning without code changes - finance can adjust
  allowances, rates, and tax brackets in YAML, and the factory creates
  the proper Go structs.

WHY YAML?
  - Non-developers can modify payroll parameters
  - Version control for statutory changes (tax tables change yearly)
  - One file per deployment environment

YAML SCHEMA:
  transport_allowance: 100
  cost_sharing: 10
  pension_rate: 0.07
  overtime_multiplier: 1.5
  regular_hours: 8
  bonus_policy: post_tax
  tax_brackets:
    - min: 0
      max: 600
      rate: 0
      deduction: 0
    - min: 600
      max: 1650
      rate: 0.10
      deduction: 60
    - min: 10900          # omit max for the open-ended top bracket
      rate: 0.35
      deduction: 1500

KEY FEATURES:
  - Validates bracket ordering and contiguity
  - Falls back to statutory defaults for omitted fields
  - All amounts parsed as exact decimals, never floats

USAGE:
  cfg, err := factory.Load("./config/payroll.yaml")
  if err != nil {
      log.Fatal(err)
  }
  result, err := controller.Generate(ctx, periodID, cfg)

SEE ALSO:
  - payroll/config.go: Config type definition and defaults
  - payroll/tax.go: Bracket semantics
*/
package factory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fieldforce/payroll-engine/payroll"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// ConfigYAML is the YAML representation of a payroll configuration.
// Amounts are decoded as strings so precision is never lost to float64.
type ConfigYAML struct {
	TransportAllowance string        `yaml:"transport_allowance,omitempty"`
	CostSharing        string        `yaml:"cost_sharing,omitempty"`
	PensionRate        string        `yaml:"pension_rate,omitempty"`
	OvertimeMultiplier string        `yaml:"overtime_multiplier,omitempty"`
	RegularHours       string        `yaml:"regular_hours,omitempty"`
	BonusPolicy        string        `yaml:"bonus_policy,omitempty"`
	TaxBrackets        []BracketYAML `yaml:"tax_brackets,omitempty"`
}

// BracketYAML represents one progressive tax bracket. Max is omitted on the
// open-ended top bracket.
type BracketYAML struct {
	Min       string  `yaml:"min"`
	Max       *string `yaml:"max,omitempty"`
	Rate      string  `yaml:"rate"`
	Deduction string  `yaml:"deduction"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads a payroll configuration from a YAML file. Omitted fields keep
// their statutory defaults from payroll.DefaultConfig().
func Load(path string) (payroll.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return payroll.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a payroll.Config.
func Parse(data []byte) (payroll.Config, error) {
	var cy ConfigYAML
	if err := yaml.Unmarshal(data, &cy); err != nil {
		return payroll.Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return FromYAML(cy)
}

// FromYAML converts ConfigYAML to payroll.Config, validating as it goes.
func FromYAML(cy ConfigYAML) (payroll.Config, error) {
	cfg := payroll.DefaultConfig()

	var err error
	if cfg.TransportAllowance, err = overrideDec(cy.TransportAllowance, cfg.TransportAllowance, "transport_allowance"); err != nil {
		return payroll.Config{}, err
	}
	if cfg.CostSharing, err = overrideDec(cy.CostSharing, cfg.CostSharing, "cost_sharing"); err != nil {
		return payroll.Config{}, err
	}
	if cfg.PensionRate, err = overrideDec(cy.PensionRate, cfg.PensionRate, "pension_rate"); err != nil {
		return payroll.Config{}, err
	}
	if cfg.OvertimeMultiplier, err = overrideDec(cy.OvertimeMultiplier, cfg.OvertimeMultiplier, "overtime_multiplier"); err != nil {
		return payroll.Config{}, err
	}
	if cfg.RegularHoursPerRecord, err = overrideDec(cy.RegularHours, cfg.RegularHoursPerRecord, "regular_hours"); err != nil {
		return payroll.Config{}, err
	}

	switch cy.BonusPolicy {
	case "":
		// keep default
	case string(payroll.BonusPostTax):
		cfg.BonusPolicy = payroll.BonusPostTax
	case string(payroll.BonusTaxable):
		cfg.BonusPolicy = payroll.BonusTaxable
	default:
		return payroll.Config{}, fmt.Errorf("unknown bonus_policy: %q", cy.BonusPolicy)
	}

	if cfg.PensionRate.IsNegative() || cfg.PensionRate.GreaterThan(decimal.NewFromInt(1)) {
		return payroll.Config{}, fmt.Errorf("pension_rate must be within [0, 1], got %s", cfg.PensionRate)
	}
	if cfg.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		return payroll.Config{}, fmt.Errorf("overtime_multiplier must be >= 1, got %s", cfg.OvertimeMultiplier)
	}

	if len(cy.TaxBrackets) > 0 {
		brackets, err := parseBrackets(cy.TaxBrackets)
		if err != nil {
			return payroll.Config{}, err
		}
		cfg.Brackets = brackets
	}

	return cfg, nil
}

func overrideDec(raw string, fallback decimal.Decimal, field string) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return d, nil
}

func parseBrackets(in []BracketYAML) ([]payroll.TaxBracket, error) {
	brackets := make([]payroll.TaxBracket, 0, len(in))
	for i, bj := range in {
		min, err := decimal.NewFromString(bj.Min)
		if err != nil {
			return nil, fmt.Errorf("bracket %d: invalid min: %w", i, err)
		}
		rate, err := decimal.NewFromString(bj.Rate)
		if err != nil {
			return nil, fmt.Errorf("bracket %d: invalid rate: %w", i, err)
		}
		deduction, err := decimal.NewFromString(bj.Deduction)
		if err != nil {
			return nil, fmt.Errorf("bracket %d: invalid deduction: %w", i, err)
		}

		b := payroll.TaxBracket{Min: min, Rate: rate, Deduction: deduction}
		if bj.Max != nil {
			max, err := decimal.NewFromString(*bj.Max)
			if err != nil {
				return nil, fmt.Errorf("bracket %d: invalid max: %w", i, err)
			}
			if !max.GreaterThan(min) {
				return nil, fmt.Errorf("bracket %d: max %s must exceed min %s", i, max, min)
			}
			b.Max = &max
		} else if i != len(in)-1 {
			return nil, fmt.Errorf("bracket %d: only the last bracket may omit max", i)
		}
		brackets = append(brackets, b)
	}

	// Brackets must tile the income line: each min equals the previous max.
	for i := 1; i < len(brackets); i++ {
		prev := brackets[i-1]
		if prev.Max == nil || !brackets[i].Min.Equal(*prev.Max) {
			return nil, fmt.Errorf("bracket %d: min %s does not continue from previous max", i, brackets[i].Min)
		}
	}
	if len(brackets) > 0 && !brackets[0].Min.IsZero() {
		return nil, fmt.Errorf("first bracket must start at 0, got %s", brackets[0].Min)
	}

	return brackets, nil
}

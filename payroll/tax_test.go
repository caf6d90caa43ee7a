package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fieldforce/payroll-engine/payroll"
)

func TestIncomeTax_StatutoryBrackets(t *testing.T) {
	// Bracket boundary continuity must hold exactly at each threshold.

	cases := []struct {
		taxable string
		want    string
	}{
		{"0", "0"},
		{"-100", "0"},
		{"300", "0"},
		{"600", "0"},       // top of the zero bracket
		{"601", "0.1"},     // first unit into the 10% bracket
		{"1650", "105"},    // 10% bracket boundary
		{"1651", "105.15"}, // first unit into the 15% bracket
		{"3200", "337.5"},
		{"3201", "337.7"},
		{"5250", "747.5"},
		{"7800", "1385"},
		{"10900", "2315"}, // top of the 30% bracket
		{"10901", "2315.35"},
		{"20000", "5500"},
	}

	brackets := payroll.DefaultBrackets()
	for _, tc := range cases {
		taxable, _ := decimal.NewFromString(tc.taxable)
		want, _ := decimal.NewFromString(tc.want)

		got := payroll.IncomeTax(taxable, brackets)
		if !got.Equal(want) {
			t.Errorf("IncomeTax(%s) = %s, want %s", tc.taxable, got, tc.want)
		}
	}
}

func TestSplitHours(t *testing.T) {
	eight := decimal.NewFromInt(8)

	cases := []struct {
		worked       string
		wantRegular  string
		wantOvertime string
	}{
		{"0", "0", "0"},
		{"4.25", "4.25", "0"},
		{"8", "8", "0"},   // exactly at threshold: all regular
		{"9.5", "8", "1.5"},
		{"12", "8", "4"},
	}

	for _, tc := range cases {
		worked, _ := decimal.NewFromString(tc.worked)
		wantReg, _ := decimal.NewFromString(tc.wantRegular)
		wantOT, _ := decimal.NewFromString(tc.wantOvertime)

		regular, overtime := payroll.SplitHours(worked, eight)
		if !regular.Equal(wantReg) || !overtime.Equal(wantOT) {
			t.Errorf("SplitHours(%s) = (%s, %s), want (%s, %s)",
				tc.worked, regular, overtime, tc.wantRegular, tc.wantOvertime)
		}
	}
}

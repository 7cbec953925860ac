// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Decimal arithmetic (division,
// percentages) goes through shopspring/decimal so nothing is rounded before
// aggregation; rounding to whole currency units happens only in Display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(1<<63 - 1)
)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents, grouping separators and zero amounts are rejected.
//
// Examples:
//
//	ParseDecimalToCents("500000")  -> 50000000, nil
//	ParseDecimalToCents("12,34")   -> 1234, nil
//	ParseDecimalToCents("12.345")  -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return 0, ErrInvalidAmount
		}
	}
	if s == "." {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromUnits builds a Money from whole currency units.
func MoneyFromUnits(units int64) Money {
	return Money{Cents: units * 100}
}

// Decimal returns the exact amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the exact amount with two decimals, e.g. "1500.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Units rounds to the nearest whole currency unit.
func (m Money) Units() int64 {
	return m.Decimal().Round(0).IntPart()
}

// Display formats the amount rounded to whole units with dot grouping,
// e.g. "Rp 1.500.001" or "-Rp 20.000".
func (m Money) Display() string {
	units := m.Units()
	neg := units < 0
	if neg {
		units = -units
	}
	digits := decimal.NewFromInt(units).String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents keeps every amount well inside int64 even after summing a large ledger.
const maxCents = int64(1) << 53

// maxCentsDigits is the number of integer digits in maxCents.
const maxCentsDigits = 16

// ParseAmount converts a decimal string to cents with half-up rounding.
//
// It accepts plain (12.34), exponent (1.5e2) and comma-decimal (12,34) forms.
// The value must be finite and strictly positive after rounding to cents.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (half-up)
//	ParseAmount("0.004")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d)
}

func centsFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	cents, ok := roundCents(d)
	if !ok || cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// roundCents rounds d half away from zero to whole cents. ok is false when
// |d| exceeds maxCents. The magnitude is checked on exponent and digit count
// before any rescale.
func roundCents(d decimal.Decimal) (cents int64, ok bool) {
	if d.Sign() == 0 {
		return 0, true
	}
	// |d|*100 lies in [10^(digits-1), 10^digits).
	digits := int64(d.NumDigits()) + int64(d.Exponent()) + 2
	if digits > maxCentsDigits {
		return 0, false
	}
	if digits < 0 {
		return 0, true
	}
	rounded := d.Shift(2).Round(0)
	if rounded.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, false
	}
	return rounded.IntPart(), true
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two fractional digits, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON reads a JSON number or numeric string, rounding to cents.
// Unlike ParseAmount it accepts zero and negative values.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	cents, ok := roundCents(d)
	if !ok {
		return ErrInvalidAmount
	}
	m.Cents = cents
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Mean divides m by n and rounds half away from zero to the cent.
// A non-positive n yields zero.
func (m Money) Mean(n int) Money {
	if n <= 0 {
		return Money{}
	}
	q := decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(int64(n))).Round(0)
	return Money{Cents: q.IntPart()}
}

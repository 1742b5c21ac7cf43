package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in KES minor units (cents). Using an integer keeps every
// stored figure exact; decimal arithmetic only happens while applying rates.
type Money int64

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal converts a major-unit decimal (e.g. 1250.50) into Money.
// Values with more than two fractional digits, or too large to hold in
// int64 cents, are rejected.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	cents := d.Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("amount %s is out of range", d.String())
	}
	return Money(cents.IntPart()), nil
}

// ParseMoney parses a major-unit string such as "100000" or "87000.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d)
}

// KES builds Money from whole shillings. It panics if the amount does not
// fit in int64 cents.
func KES(shillings int64) Money {
	if shillings > math.MaxInt64/100 || shillings < math.MinInt64/100 {
		panic(fmt.Sprintf("models: KES(%d) overflows", shillings))
	}
	return Money(shillings * 100)
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders Money as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

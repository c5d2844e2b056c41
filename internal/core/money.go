// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so that sums never drift. Parsing,
// formatting and ratio computations go through shopspring/decimal.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a signed amount with two-decimal fixed-point precision.
type Money struct {
	Cents int64
}

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// strictly positive values are accepted.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents (rounds up)
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromDecimal rounds d half-up to two fractional digits.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Mul(hundred)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(1<<53)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// NewMoney builds Money from whole units and cents, e.g. NewMoney(12, 34) is 12.34.
func NewMoney(units, cents int64) Money {
	return Money{Cents: units*100 + cents}
}

// Validate reports whether m is a valid positive amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Cmp returns -1, 0 or +1 comparing m with o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	}
	return 0
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String returns the plain two-decimal representation ("850.00").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format returns the display representation ("$850.00", "-$20.00").
func (m Money) Format() string {
	if m.Cents < 0 {
		return "-$" + Money{Cents: -m.Cents}.String()
	}
	return "$" + m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both JSON strings ("12.34") and numbers (12.34).
// Sign is preserved; positivity is checked by the owning entity's Validate.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

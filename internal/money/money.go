// Package money implements fixed-point amounts with two decimal places.
//
// A Money value is a count of cents. Conversions from decimals round half away
// from zero, so every computation that leaves the decimal domain is deterministic.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents.
type Money int64

var ErrInvalidAmount = errors.New("invalid amount")

// Zero is the zero amount.
const Zero Money = 0

func FromCents(cents int64) Money { return Money(cents) }

// FromDecimal rounds d to cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

// Parse reads a decimal string such as "12.5" or "-3.05". More than two
// significant fractional digits is an error rather than a silent rounding.
func Parse(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, raw)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(raw string) Money {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -2) }

func (m Money) Add(other Money) Money { return m + other }

func (m Money) Sub(other Money) Money { return m - other }

// Times multiplies by an integer quantity.
func (m Money) Times(qty int64) Money { return m * Money(qty) }

// Percent returns round(m × pct / 100).
func (m Money) Percent(pct decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(pct).Shift(-2))
}

// MulRate returns round(m × rate), rate being a fraction such as 0.20.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(rate))
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsNegative() bool { return m < 0 }

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m < 0 {
		return 0
	}
	return m
}

func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

func (m Money) String() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		*m = 0
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as a NUMERIC literal.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v * 100)
	case float64:
		*m = FromDecimal(decimal.NewFromFloat(v))
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidAmount, string(v))
		}
		*m = FromDecimal(d)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidAmount, v)
		}
		*m = FromDecimal(d)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, src)
	}
	return nil
}

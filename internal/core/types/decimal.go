// Package types holds the numeric types of the ledger: exact Money and
// fixed-point Quantity.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/apperror"
)

// Money is an exact decimal amount. Stored values are rounded with
// RoundCost or RoundAmount.
type Money = decimal.Decimal

const (
	// CostPlaces is the precision of persisted unit costs and averages.
	CostPlaces int32 = 6
	// AmountPlaces is the precision of persisted totals and account amounts.
	AmountPlaces int32 = 4
)

// MustMoney parses s and panics on error. Constants and tests only.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundCost rounds a unit cost to CostPlaces.
func RoundCost(m Money) Money { return m.Round(CostPlaces) }

// RoundAmount rounds a total to AmountPlaces.
func RoundAmount(m Money) Money { return m.Round(AmountPlaces) }

// Quantity is a fixed-point quantity with 3 decimal places (scale = 1e3).
//
// Stock is kept in consumption units (grams, millilitres, pieces), so three
// fractional digits are enough and repeated ledger recomputation stays exact:
// - Matches Postgres NUMERIC(18,3) semantics without floating point errors
// - Stored as BIGINT in DB (scaled integer)
// - JSON remains a number with up to 3 decimals
type Quantity int64

const (
	QuantityScale  int64 = 1_000
	QuantityPlaces int32 = 3
)

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

// NewQuantity builds a Quantity from a whole number of units.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

const maxFractionDigits = 64

var (
	maxScaled = decimal.NewFromInt(math.MaxInt64)
	minScaled = maxScaled.Neg()
)

// NewQuantityFromDecimal rounds d half away from zero to 3 decimal places.
// Values outside ±MaxInt64 thousandths fail with INVALID_QUANTITY.
func NewQuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	// Rounding rescales the coefficient to 10^-3, so extreme exponents are
	// refused before they can allocate huge integers.
	if d.IsZero() {
		return 0, nil
	}
	if exp := d.Exponent(); exp > 18 || exp < -maxFractionDigits {
		return 0, apperror.NewInvalidQuantity("range", fmt.Sprintf("%se%d", d.Coefficient(), exp), "quantity is out of range")
	}
	scaled := d.Round(QuantityPlaces).Shift(QuantityPlaces)
	if scaled.GreaterThan(maxScaled) || scaled.LessThan(minScaled) {
		return 0, apperror.NewInvalidQuantity("range", d.String(), "quantity is out of range")
	}
	return Quantity(scaled.IntPart()), nil
}

// MustQuantity parses s, panics on error. Use only for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

// Decimal returns the exact decimal value of q.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -QuantityPlaces) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String returns a decimal string with 3 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%03d", intPart, frac)
	}
	return fmt.Sprintf("%d.%03d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 3 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (3 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a decimal string, exponent notation included. Digits
// beyond the third fractional place are rounded half away from zero.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	return NewQuantityFromDecimal(d)
}

/*
types.go - Domain-agnostic primitives of the freight engine

PURPOSE:
  Calendar dates, weekday sets, inclusive periods, money amounts and the
  error taxonomy shared by the recurrence, billing, quote and booking
  packages. Nothing in here knows about shipments or invoices.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: a decimal value with an ISO currency code
  - Currency: the code itself (USD, EUR, ...)

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Explicit division: Div reports ErrDivisionByZero instead of panicking
  3. Value semantics: every operation returns a new Amount

USAGE:
  rate := generic.NewAmountFromInt(1500, generic.USD)
  total := rate.MulInt(12) // 18000 USD

SEE ALSO:
  - time.go: Date, WeekdaySet and the date cursor
  - errors.go: sentinel and structured errors
*/

// Package generic provides the domain-agnostic primitives of the freight engine.
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Money with currency
// =============================================================================

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	CAD Currency = "CAD"
)

// DefaultCurrency is used when a configuration omits the currency.
const DefaultCurrency = USD

type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency Currency        `json:"currency"`
}

func NewAmount(value float64, currency Currency) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewAmountFromInt(value int64, currency Currency) Amount {
	return Amount{Value: decimal.NewFromInt(value), Currency: currency}
}

// ParseAmount reads a decimal string such as "1500.25".
func ParseAmount(value string, currency Currency) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return Amount{Value: d, Currency: currency}, nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) MulInt(n int) Amount          { return a.Mul(decimal.NewFromInt(int64(n))) }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) && a.Currency == b.Currency }

// Div divides by s. The divisor is checked before dividing.
func (a Amount) Div(s decimal.Decimal) (Amount, error) {
	if s.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{Value: a.Value.Div(s), Currency: a.Currency}, nil
}

// Round rounds to cents.
func (a Amount) Round() Amount { return Amount{Value: a.Value.Round(2), Currency: a.Currency} }

func (a Amount) String() string { return a.Value.StringFixed(2) + " " + string(a.Currency) }

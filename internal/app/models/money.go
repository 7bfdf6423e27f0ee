package models

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
)

// Money is an amount in a single ISO-4217 currency. Arithmetic across
// currencies requires explicit conversion through an exchange-rate table.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewMoney validates the currency code and returns a Money value.
func NewMoney(amount float64, code string) (Money, error) {
	if _, err := currency.ParseISO(code); err != nil {
		return Money{}, fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return Money{Amount: amount, Currency: code}, nil
}

// MustMoney is a construction helper for literals in defaults and tests.
func MustMoney(amount float64, code string) Money {
	m, err := NewMoney(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// ValidCurrencyCode reports whether code is a known ISO-4217 code.
func ValidCurrencyCode(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.IsZero() {
		return other, nil
	}
	if other.IsZero() {
		return m, nil
	}
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("cannot add %s to %s without conversion", other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m minus other in the same currency, floored at zero.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency && !m.IsZero() && !other.IsZero() {
		return Money{}, fmt.Errorf("cannot subtract %s from %s without conversion", other.Currency, m.Currency)
	}
	amount := m.Amount - other.Amount
	if amount < 0 {
		amount = 0
	}
	return Money{Amount: amount, Currency: m.Currency}, nil
}

// ConvertTo exchanges the amount into the target currency at the given
// rate, expressed in target units per source unit.
func (m Money) ConvertTo(code string, rate float64) (Money, error) {
	if !ValidCurrencyCode(code) {
		return Money{}, fmt.Errorf("invalid currency code %q", code)
	}
	if rate <= 0 {
		return Money{}, fmt.Errorf("invalid exchange rate %g", rate)
	}
	return Money{Amount: roundCents(m.Amount * rate), Currency: code}, nil
}

// MulFloat scales the amount, rounding to cents.
func (m Money) MulFloat(f float64) Money {
	return Money{Amount: roundCents(m.Amount * f), Currency: m.Currency}
}

// IsZero reports whether the value is the zero Money (no currency set).
func (m Money) IsZero() bool {
	return m.Currency == "" && m.Amount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

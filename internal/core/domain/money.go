package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount + ISO-4217 currency pair. Amounts are held at
// two decimal places; construction rounds half-up and rejects negatives.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney validates and normalizes a money value. Amounts with more than two
// decimal places are rounded half-up; the currency is uppercased.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.Exponent() < -2 {
		amount = amount.Round(2)
	}
	if amount.Sign() < 0 {
		return Money{}, fmt.Errorf("amount must be non-negative")
	}
	normalized, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: normalized}, nil
}

// NewMoneyFromString parses a decimal string amount.
func NewMoneyFromString(amount string, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(d, currency)
}

// ZeroMoney returns a zero value in the given currency.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

// Add returns the sum. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.validateCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns the difference. Currencies must match and the result cannot go
// negative.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.validateCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.Amount.Sub(other.Amount)
	if result.Sign() < 0 {
		return Money{}, fmt.Errorf("amount must be non-negative")
	}
	return Money{Amount: result, Currency: m.Currency}, nil
}

// GreaterThan reports whether m exceeds other. Comparison across currencies
// is a programming error and reports false alongside the error.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.validateCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThan(other.Amount), nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

func (m Money) validateCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	if len(currency) != 3 {
		return "", fmt.Errorf("currency must be a 3-letter ISO code, got %q", currency)
	}
	normalized := make([]byte, 3)
	for i := 0; i < 3; i++ {
		c := currency[i]
		switch {
		case c >= 'a' && c <= 'z':
			normalized[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z':
			normalized[i] = c
		default:
			return "", fmt.Errorf("currency must be a 3-letter ISO code, got %q", currency)
		}
	}
	return string(normalized), nil
}

package domain

import (
	"fmt"

	xerrors "loyalty-service/shared/utils/errors"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents, points).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return xerrors.Validation(xerrors.ErrCurrencyMismatch, "%s vs %s", m.Currency, o.Currency)
	}
	return nil
}

func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs turns a negative amount into its positive magnitude.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Negate()
	}
	return m
}

// NonPositive turns a positive amount into its negative counterpart. Used to
// express an amount released from a blocked reserve.
func (m Money) NonPositive() Money {
	if m.Amount > 0 {
		return m.Negate()
	}
	return m
}

// MultiplyRat returns m * num / den truncated toward zero.
func (m Money) MultiplyRat(num, den int64) (Money, error) {
	if den == 0 {
		return Money{}, fmt.Errorf("multiply %s by %d/0: division by zero", m, num)
	}
	q, _ := decimal.NewFromInt(m.Amount).
		Mul(decimal.NewFromInt(num)).
		QuoRem(decimal.NewFromInt(den), 0)
	return Money{Amount: q.IntPart(), Currency: m.Currency}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

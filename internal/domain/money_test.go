package domain

import (
	"errors"
	"testing"

	xerrors "loyalty-service/shared/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyMultiplyRatTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		amount, num, den, want int64
	}{
		{10, 70, 100, 7},
		{99, 33, 100, 32},
		{-99, 33, 100, -32},
		{7, 1, 3, 2},
		{-7, 1, 3, -2},
		{0, 5, 100, 0},
	}
	for _, tt := range tests {
		got, err := NewMoney(tt.amount, "EUR").MultiplyRat(tt.num, tt.den)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Amount, "%d*%d/%d", tt.amount, tt.num, tt.den)
		assert.Equal(t, "EUR", got.Currency)
	}

	_, err := NewMoney(1, "EUR").MultiplyRat(1, 0)
	assert.Error(t, err)
}

func TestMoneyForbidsCrossCurrency(t *testing.T) {
	_, err := NewMoney(1, "EUR").Add(NewMoney(1, "GBP"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrCurrencyMismatch))

	_, err = NewMoney(1, "EUR").Sub(NewMoney(1, "USD"))
	assert.True(t, errors.Is(err, xerrors.ErrCurrencyMismatch))

	sum, err := NewMoney(3, "EUR").Add(NewMoney(4, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, NewMoney(7, "EUR"), sum)
}

func TestMoneySignHelpers(t *testing.T) {
	assert.Equal(t, int64(5), NewMoney(-5, "EUR").Abs().Amount)
	assert.Equal(t, int64(5), NewMoney(5, "EUR").Abs().Amount)
	assert.Equal(t, int64(-5), NewMoney(5, "EUR").NonPositive().Amount)
	assert.Equal(t, int64(-5), NewMoney(-5, "EUR").NonPositive().Amount)
}

func TestClearingBreakdownValidate(t *testing.T) {
	b := &ClearingBreakdown{ExternalBank: &Account{ID: "bank"}}
	err := b.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrMissingRequiredAccount))
	assert.Contains(t, err.Error(), "platform commission")
	assert.Contains(t, err.Error(), "application user")

	b.PlatformCommission = &Account{ID: "platform"}
	b.ApplicationUser = &Account{ID: "user"}
	assert.NoError(t, b.Validate())
}

func TestExternalTransactionValidate(t *testing.T) {
	ext := &ExternalTransaction{
		ID:             "ext-1",
		Amount:         NewMoney(1000, "GBP"),
		CommissionType: CommissionTypePercent,
		Source:         SourceAwin,
	}
	require.NoError(t, ext.Validate())
	assert.False(t, ext.IsRefund())

	ext.Source = "carrier-pigeon"
	assert.True(t, errors.Is(ext.Validate(), xerrors.ErrUnknownTransactionSource))

	ext.Source = SourceAwin
	ext.CommissionType = "TIERED"
	assert.True(t, errors.Is(ext.Validate(), xerrors.ErrUnknownCommissionType))

	ref := "ext-0"
	ext.RefundedTransactionID = &ref
	assert.True(t, ext.IsRefund())
}

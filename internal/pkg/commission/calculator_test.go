package commission

import (
	"errors"
	"testing"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		typ          domain.CommissionType
		commission   int64
		userShare    int64
		isRefund     bool
		wantPlatform int64
		wantUser     int64
	}{
		{name: "percent", typ: domain.CommissionTypePercent, commission: 10, userShare: 70, wantPlatform: -3, wantUser: -7},
		{name: "percent truncates", typ: domain.CommissionTypePercent, commission: 99, userShare: 33, wantPlatform: -67, wantUser: -32},
		{name: "percent negative commission normalized", typ: domain.CommissionTypePercent, commission: -10, userShare: 70, wantPlatform: -3, wantUser: -7},
		{name: "percent zero share", typ: domain.CommissionTypePercent, commission: 10, userShare: 0, wantPlatform: -10, wantUser: 0},
		{name: "percent full share", typ: domain.CommissionTypePercent, commission: 10, userShare: 100, wantPlatform: 0, wantUser: -10},
		{name: "percent refund inverts", typ: domain.CommissionTypePercent, commission: 10, userShare: 70, isRefund: true, wantPlatform: 3, wantUser: 7},
		{name: "static", typ: domain.CommissionTypeStatic, commission: 10, userShare: 4, wantPlatform: -6, wantUser: -4},
		{name: "static refund inverts", typ: domain.CommissionTypeStatic, commission: 10, userShare: 4, isRefund: true, wantPlatform: 6, wantUser: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := Split(tt.typ, tt.commission, tt.userShare, "GBP", tt.isRefund)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlatform, split.Platform.Amount)
			assert.Equal(t, tt.wantUser, split.User.Amount)
			assert.Equal(t, "GBP", split.Platform.Currency)
		})
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	_, err := Split("BOGUS", 10, 5, "GBP", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownCommissionType))
	assert.True(t, xerrors.IsValidation(err))

	_, err = Split(domain.CommissionTypePercent, 10, 120, "GBP", false)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidTransfer))

	_, err = Split(domain.CommissionTypeStatic, 10, 11, "GBP", false)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidTransfer))
}

func TestUserShareAmount(t *testing.T) {
	amount, err := UserShareAmount(domain.CommissionTypePercent, 10, 70, "GBP")
	require.NoError(t, err)
	assert.Equal(t, int64(7), amount)

	amount, err = UserShareAmount(domain.CommissionTypeStatic, 10, 4, "GBP")
	require.NoError(t, err)
	assert.Equal(t, int64(4), amount)
}

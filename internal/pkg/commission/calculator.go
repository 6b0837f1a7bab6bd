// Package commission splits an external transaction's commission between the
// platform and the end user.
package commission

import (
	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"
)

const percentBase = 100

// Split returns the platform and user portions of commission as deltas
// against a blocked reserve: non-positive normally, non-negative when
// isRefund is set.
//
// PERCENT: user = floor(|commission| * userShare / 100), platform gets the rest.
// STATIC:  user = |userShare|, platform = |commission| - |userShare|.
func Split(
	commissionType domain.CommissionType,
	commission, userShare int64,
	currency string,
	isRefund bool,
) (domain.CommissionSplit, error) {
	base := domain.NewMoney(commission, currency).Abs()
	share := domain.NewMoney(userShare, currency).Abs()

	var user domain.Money
	switch commissionType {
	case domain.CommissionTypePercent:
		if share.Amount > percentBase {
			return domain.CommissionSplit{}, xerrors.Validation(xerrors.ErrInvalidTransfer,
				"user share %d%% exceeds 100%%", share.Amount)
		}
		var err error
		user, err = base.MultiplyRat(share.Amount, percentBase)
		if err != nil {
			return domain.CommissionSplit{}, err
		}
	case domain.CommissionTypeStatic:
		if share.Amount > base.Amount {
			return domain.CommissionSplit{}, xerrors.Validation(xerrors.ErrInvalidTransfer,
				"static user share %d exceeds commission %d", share.Amount, base.Amount)
		}
		user = share
	default:
		return domain.CommissionSplit{}, xerrors.Validation(xerrors.ErrUnknownCommissionType, "%q", commissionType)
	}

	platform, err := base.Sub(user)
	if err != nil {
		return domain.CommissionSplit{}, err
	}

	split := domain.CommissionSplit{
		Platform: platform.NonPositive(),
		User:     user.NonPositive(),
	}
	if isRefund {
		split.Platform = split.Platform.Negate()
		split.User = split.User.Negate()
	}
	return split, nil
}

// UserShareAmount is the non-negative magnitude of the user's portion, the
// amount moved by a user-share transfer.
func UserShareAmount(commissionType domain.CommissionType, commission, userShare int64, currency string) (int64, error) {
	split, err := Split(commissionType, commission, userShare, currency, false)
	if err != nil {
		return 0, err
	}
	return split.User.Abs().Amount, nil
}

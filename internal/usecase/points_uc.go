package usecase

import (
	"context"
	"errors"

	"loyalty-service/internal/domain"
	"loyalty-service/shared/utils/cache"

	"go.uber.org/zap"
)

// PointsEarned sums every amount the account received as a debit leg.
func (u *LedgerUsecase) PointsEarned(ctx context.Context, account *domain.Account) (int64, error) {
	return u.repo.SumDebitAmounts(ctx, account.ID)
}

// PointsCleared is what was earned minus what is still blocked.
func (u *LedgerUsecase) PointsCleared(ctx context.Context, account *domain.Account) (int64, error) {
	earned, err := u.PointsEarned(ctx, account)
	if err != nil {
		return 0, err
	}
	return earned - account.BlockedAmount, nil
}

// AvailableBalance is cleared points minus everything spent as a credit leg.
func (u *LedgerUsecase) AvailableBalance(ctx context.Context, account *domain.Account) (int64, error) {
	cleared, err := u.PointsCleared(ctx, account)
	if err != nil {
		return 0, err
	}
	spent, err := u.repo.SumCreditAmounts(ctx, account.ID)
	if err != nil {
		return 0, err
	}
	return cleared - spent, nil
}

// PointsSummary loads the account and its derived totals, cached until a
// workflow touching the account commits.
func (u *LedgerUsecase) PointsSummary(ctx context.Context, accountID string) (*domain.PointsSummary, error) {
	if u.cache != nil {
		var cached domain.PointsSummary
		err := u.cache.GetJSON(ctx, pointsCacheNS, accountID, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			u.logger.Warn("points cache read failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	account, err := u.repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	earned, err := u.PointsEarned(ctx, account)
	if err != nil {
		return nil, err
	}
	spent, err := u.repo.SumCreditAmounts(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	summary := &domain.PointsSummary{
		AccountID: account.ID,
		Earned:    earned,
		Cleared:   earned - account.BlockedAmount,
		Available: earned - account.BlockedAmount - spent,
		Blocked:   account.BlockedAmount,
	}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, pointsCacheNS, accountID, summary, u.cacheTTL); err != nil {
			u.logger.Warn("points cache write failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}
	return summary, nil
}

func (u *LedgerUsecase) invalidatePoints(ctx context.Context, accountIDs []string) {
	if u.cache == nil || len(accountIDs) == 0 {
		return
	}
	if err := u.cache.Delete(ctx, pointsCacheNS, accountIDs...); err != nil {
		u.logger.Warn("points cache invalidation failed", zap.Strings("account_ids", accountIDs), zap.Error(err))
	}
}

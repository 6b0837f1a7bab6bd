package usecase

import (
	"context"

	"loyalty-service/internal/domain"
	"loyalty-service/internal/pkg/commission"
	"loyalty-service/internal/repository"

	"go.uber.org/zap"
)

// BlockedAmountClearer releases the amounts a purchase reserved on the bank,
// platform commission and user accounts.
type BlockedAmountClearer struct {
	resolver *AccountResolver
	logger   *zap.Logger
}

func NewBlockedAmountClearer(resolver *AccountResolver, logger *zap.Logger) *BlockedAmountClearer {
	return &BlockedAmountClearer{resolver: resolver, logger: logger}
}

// Resolve classifies the legs linked to et. Roles that match no leg stay nil;
// Apply refuses a breakdown with unresolved roles.
func (c *BlockedAmountClearer) Resolve(ctx context.Context, uow repository.UnitOfWork, et *domain.ExternalTransaction) (*domain.ClearingBreakdown, error) {
	split, err := commission.Split(et.CommissionType, et.Commission, et.UserShare, et.Amount.Currency, false)
	if err != nil {
		return nil, err
	}

	legs, err := uow.FindTransactionsByExternalTransaction(ctx, et.ID)
	if err != nil {
		return nil, err
	}

	isRefund := et.IsRefund()
	accounts := map[string]*domain.Account{}
	load := func(id string) (*domain.Account, error) {
		if acc, ok := accounts[id]; ok {
			return acc, nil
		}
		acc, err := c.resolver.Account(ctx, uow, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = acc
		return acc, nil
	}

	b := &domain.ClearingBreakdown{}
	for _, leg := range legs {
		bankSideID, userSideID := leg.CreditAccountID, leg.DebitAccountID
		if isRefund {
			bankSideID, userSideID = userSideID, bankSideID
		}

		switch {
		case c.resolver.IsSystemBank(bankSideID):
			acc, err := load(bankSideID)
			if err != nil {
				return nil, err
			}
			b.ExternalBank = acc
			b.ExternalBankCleared = leg.CreditAmount.Amount
			c.logger.Info("clearing role resolved",
				zap.String("action", "external_bank_account_found"),
				zap.String("account_id", acc.ID),
				zap.Int64("amount", b.ExternalBankCleared),
			)
		case c.resolver.IsPlatformCommission(bankSideID):
			acc, err := load(bankSideID)
			if err != nil {
				return nil, err
			}
			b.PlatformCommission = acc
			b.PlatformCommissionCleared = split.Platform.Amount
			c.logger.Info("clearing role resolved",
				zap.String("action", "platform_commission_account_found"),
				zap.String("account_id", acc.ID),
				zap.Int64("amount", b.PlatformCommissionCleared),
			)
		}

		userSide, err := load(userSideID)
		if err != nil {
			return nil, err
		}
		if c.resolver.IsUserAccount(userSide) {
			b.ApplicationUser = userSide
			b.ApplicationUserCleared = split.User.Amount
			c.logger.Info("clearing role resolved",
				zap.String("action", "application_user_account_found"),
				zap.String("account_id", userSide.ID),
				zap.Int64("amount", b.ApplicationUserCleared),
			)
		}
	}
	return b, nil
}

// Apply adjusts only blocked amounts, and only once all three roles are known.
func (c *BlockedAmountClearer) Apply(ctx context.Context, uow repository.UnitOfWork, b *domain.ClearingBreakdown) error {
	if err := b.Validate(); err != nil {
		return err
	}

	releases := []struct {
		account *domain.Account
		cleared int64
	}{
		{b.ExternalBank, b.ExternalBankCleared},
		{b.PlatformCommission, b.PlatformCommissionCleared},
		{b.ApplicationUser, b.ApplicationUserCleared},
	}
	for _, r := range releases {
		if err := uow.AdjustBalance(ctx, r.account.ID, 0, r.cleared); err != nil {
			return err
		}
		c.logger.Info("blocked amount cleared",
			zap.String("action", "clear_blocked_amount"),
			zap.String("account_id", r.account.ID),
			zap.Int64("amount", r.cleared),
		)
	}
	return nil
}

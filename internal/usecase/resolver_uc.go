package usecase

import (
	"context"
	"errors"
	"time"

	"loyalty-service/internal/config"
	"loyalty-service/internal/domain"
	"loyalty-service/internal/repository"
	"loyalty-service/shared/utils/cache"
	xerrors "loyalty-service/shared/utils/errors"

	"go.uber.org/zap"
)

const (
	transactionTypeCacheNS  = "loyalty:txtype"
	transactionTypeCacheTTL = 10 * time.Minute
)

// AccountResolver maps well-known ledger roles onto concrete accounts and
// catalog rows. Every failure is a validation error.
type AccountResolver struct {
	catalog config.Catalog
	banks   map[string]bool
	cache   *cache.Cache
	logger  *zap.Logger
}

func NewAccountResolver(catalog config.Catalog, c *cache.Cache, logger *zap.Logger) *AccountResolver {
	banks := make(map[string]bool, len(catalog.SourceBanks))
	for _, id := range catalog.SourceBanks {
		banks[id] = true
	}
	return &AccountResolver{catalog: catalog, banks: banks, cache: c, logger: logger}
}

func (r *AccountResolver) SystemBankAccount(ctx context.Context, uow repository.UnitOfWork, source domain.TransactionSource) (*domain.Account, error) {
	id, ok := r.catalog.SourceBanks[source]
	if !ok {
		return nil, xerrors.Validation(xerrors.ErrUnknownTransactionSource, "%q has no bank account", source)
	}
	return r.requireAccount(ctx, uow, id, "system bank")
}

func (r *AccountResolver) PlatformCommissionAccount(ctx context.Context, uow repository.UnitOfWork) (*domain.Account, error) {
	return r.requireAccount(ctx, uow, r.catalog.PlatformCommissionAccount, "platform commission")
}

// UserAccount returns the personal account owned by userID.
func (r *AccountResolver) UserAccount(ctx context.Context, uow repository.UnitOfWork, userID string) (*domain.Account, error) {
	acc, err := uow.FindAccountByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Validation(xerrors.ErrMissingRequiredAccount, "user %s has no account", userID)
		}
		return nil, err
	}
	if acc.TypeID != r.catalog.UserAccountType {
		return nil, xerrors.Validation(xerrors.ErrUnknownAccountType,
			"account %s of user %s has type %s", acc.ID, userID, acc.TypeID)
	}
	return acc, nil
}

func (r *AccountResolver) ProjectAccount(ctx context.Context, uow repository.UnitOfWork, projectID string) (*domain.Account, error) {
	acc, err := uow.FindAccountByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Validation(xerrors.ErrMissingRequiredAccount, "project %s has no account", projectID)
		}
		return nil, err
	}
	return acc, nil
}

func (r *AccountResolver) Account(ctx context.Context, uow repository.UnitOfWork, id string) (*domain.Account, error) {
	return r.requireAccount(ctx, uow, id, "account")
}

// TransactionType resolves a catalog role, reading through the redis cache.
func (r *AccountResolver) TransactionType(ctx context.Context, uow repository.UnitOfWork, role domain.TransactionTypeRole) (*domain.TransactionType, error) {
	id, ok := r.catalog.TransactionTypes[role]
	if !ok || id == "" {
		return nil, xerrors.Validation(xerrors.ErrUnknownTransactionType, "role %q is not configured", role)
	}

	if r.cache != nil {
		var cached domain.TransactionType
		if err := r.cache.GetJSON(ctx, transactionTypeCacheNS, id, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn("transaction type cache read failed", zap.String("type_id", id), zap.Error(err))
		}
	}

	t, err := uow.FindTransactionType(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Validation(xerrors.ErrUnknownTransactionType, "%s", id)
		}
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, transactionTypeCacheNS, id, t, transactionTypeCacheTTL); err != nil {
			r.logger.Warn("transaction type cache write failed", zap.String("type_id", id), zap.Error(err))
		}
	}
	return t, nil
}

func (r *AccountResolver) IsSystemBank(accountID string) bool {
	return r.banks[accountID]
}

func (r *AccountResolver) IsPlatformCommission(accountID string) bool {
	return accountID == r.catalog.PlatformCommissionAccount
}

// IsUserAccount requires both an owning user and the user account type.
func (r *AccountResolver) IsUserAccount(acc *domain.Account) bool {
	return acc != nil && acc.HasUser() && acc.TypeID == r.catalog.UserAccountType
}

// BlocksRefund is false for sources whose refunds never reserved funds.
func (r *AccountResolver) BlocksRefund(source domain.TransactionSource) bool {
	return !r.catalog.NonBlockingRefundSources[source]
}

func (r *AccountResolver) DefaultCurrency() string {
	return r.catalog.DefaultCurrency
}

func (r *AccountResolver) requireAccount(ctx context.Context, uow repository.UnitOfWork, id, role string) (*domain.Account, error) {
	acc, err := uow.FindAccount(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Validation(xerrors.ErrMissingRequiredAccount, "%s account %s", role, id)
		}
		return nil, err
	}
	return acc, nil
}

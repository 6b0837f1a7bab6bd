package service

import (
	"context"
	"fmt"

	"loyalty-service/internal/config"
	"loyalty-service/internal/domain"
	"loyalty-service/internal/repository"

	"go.uber.org/zap"
)

// CatalogSeeder makes sure the configured system accounts, account types and
// transaction types exist before the ledger accepts traffic.
type CatalogSeeder struct {
	repo    repository.CatalogRepository
	catalog config.Catalog
	logger  *zap.Logger
}

func NewCatalogSeeder(repo repository.CatalogRepository, catalog config.Catalog, logger *zap.Logger) *CatalogSeeder {
	return &CatalogSeeder{repo: repo, catalog: catalog, logger: logger}
}

func (s *CatalogSeeder) SeedCatalog(ctx context.Context) error {
	s.logger.Info("seeding ledger catalog")

	res, err := s.repo.Seed(ctx, BuildSeed(s.catalog))
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	s.logger.Info("ledger catalog ready",
		zap.Int("account_types_inserted", res.AccountTypes),
		zap.Int("transaction_types_inserted", res.TransactionTypes),
		zap.Int("accounts_inserted", res.Accounts),
	)
	return nil
}

// BuildSeed derives the rows the catalog refers to. Account types come first
// so system accounts can reference them.
func BuildSeed(c config.Catalog) repository.CatalogSeed {
	seed := repository.CatalogSeed{
		AccountTypes: []domain.AccountType{
			{ID: c.SystemAccountType, Name: "system"},
			{ID: c.UserAccountType, Name: "user"},
		},
	}

	for _, role := range domain.TransactionTypeRoles {
		if id := c.TransactionTypes[role]; id != "" {
			seed.TransactionTypes = append(seed.TransactionTypes, domain.TransactionType{ID: id, Name: string(role)})
		}
	}

	for _, id := range c.BankAccountIDs() {
		seed.Accounts = append(seed.Accounts, domain.Account{ID: id, TypeID: c.SystemAccountType, Currency: c.DefaultCurrency})
	}
	seed.Accounts = append(seed.Accounts, domain.Account{
		ID:       c.PlatformCommissionAccount,
		TypeID:   c.SystemAccountType,
		Currency: c.DefaultCurrency,
	})
	return seed
}

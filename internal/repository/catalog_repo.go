package repository

import (
	"context"
	"fmt"

	"loyalty-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

// CatalogSeed is the set of rows the ledger cannot operate without.
type CatalogSeed struct {
	AccountTypes     []domain.AccountType
	TransactionTypes []domain.TransactionType
	Accounts         []domain.Account
}

// SeedResult counts the rows actually inserted.
type SeedResult struct {
	AccountTypes     int
	TransactionTypes int
	Accounts         int
}

type CatalogRepository interface {
	// Seed inserts missing rows in one transaction and leaves existing rows untouched.
	Seed(ctx context.Context, seed CatalogSeed) (SeedResult, error)
}

type catalogRepo struct {
	db Pool
}

func NewCatalogRepo(db Pool) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) Seed(ctx context.Context, seed CatalogSeed) (SeedResult, error) {
	var res SeedResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range seed.AccountTypes {
		n, err := insertIfMissing(ctx, tx,
			`INSERT INTO account_types (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Name)
		if err != nil {
			return res, fmt.Errorf("account type %s: %w", t.ID, err)
		}
		res.AccountTypes += n
	}

	for _, t := range seed.TransactionTypes {
		n, err := insertIfMissing(ctx, tx,
			`INSERT INTO transaction_types (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Name)
		if err != nil {
			return res, fmt.Errorf("transaction type %s: %w", t.ID, err)
		}
		res.TransactionTypes += n
	}

	for _, a := range seed.Accounts {
		n, err := insertIfMissing(ctx, tx, `
			INSERT INTO accounts (id, type_id, user_id, project_id, balance, blocked_amount, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, 0, $5, NOW(), NOW())
			ON CONFLICT (id) DO NOTHING`,
			a.ID, a.TypeID, a.UserID, a.ProjectID, a.Currency)
		if err != nil {
			return res, fmt.Errorf("account %s: %w", a.ID, err)
		}
		res.Accounts += n
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("failed to commit: %w", err)
	}
	return res, nil
}

func insertIfMissing(ctx context.Context, tx pgx.Tx, query string, args ...any) (int, error) {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

package repository

import (
	"context"
	"fmt"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"
)

const accountColumns = `id, type_id, user_id, project_id, balance, blocked_amount, currency, created_at, updated_at`

const (
	accountByID      = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	accountByOwner   = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at LIMIT 1`
	accountByProject = `SELECT ` + accountColumns + ` FROM accounts WHERE project_id = $1 ORDER BY created_at LIMIT 1`
)

func findAccount(ctx context.Context, q querier, query, key string) (*domain.Account, error) {
	var a domain.Account
	err := q.QueryRow(ctx, query, key).Scan(
		&a.ID,
		&a.TypeID,
		&a.UserID,
		&a.ProjectID,
		&a.Balance,
		&a.BlockedAmount,
		&a.Currency,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "account", key)
	}
	return &a, nil
}

func (u *pgUnitOfWork) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	return findAccount(ctx, u.tx, accountByID, id)
}

func (u *pgUnitOfWork) FindAccountByOwner(ctx context.Context, userID string) (*domain.Account, error) {
	return findAccount(ctx, u.tx, accountByOwner, userID)
}

func (u *pgUnitOfWork) FindAccountByProject(ctx context.Context, projectID string) (*domain.Account, error) {
	return findAccount(ctx, u.tx, accountByProject, projectID)
}

func (u *pgUnitOfWork) FindAccountType(ctx context.Context, id string) (*domain.AccountType, error) {
	var t domain.AccountType
	err := u.tx.QueryRow(ctx, `SELECT id, name FROM account_types WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, notFound(err, "account type", id)
	}
	return &t, nil
}

// AdjustBalance applies both deltas in one statement so concurrent workflows
// never lose an update.
func (u *pgUnitOfWork) AdjustBalance(ctx context.Context, accountID string, balanceDelta, blockedDelta int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1,
		    blocked_amount = blocked_amount + $2,
		    updated_at = NOW()
		WHERE id = $3
	`
	tag, err := u.tx.Exec(ctx, query, balanceDelta, blockedDelta, accountID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for account %s (pg %s): %w", accountID, xerrors.ParsePGErrorCode(err), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, xerrors.ErrNotFound)
	}
	return nil
}

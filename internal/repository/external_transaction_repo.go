package repository

import (
	"context"
	"fmt"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"
)

func findExternalTransaction(ctx context.Context, q querier, id string) (*domain.ExternalTransaction, error) {
	query := `
		SELECT id, amount, currency, commission, commission_type, user_share, source,
		       refunded_transaction_id, impact_project_id, impact_project_transaction,
		       user_id, default_bank_account_id, created_at
		FROM external_transactions
		WHERE id = $1
	`
	var e domain.ExternalTransaction
	err := q.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.Amount.Amount,
		&e.Amount.Currency,
		&e.Commission,
		&e.CommissionType,
		&e.UserShare,
		&e.Source,
		&e.RefundedTransactionID,
		&e.ImpactProjectID,
		&e.ImpactProjectTransaction,
		&e.UserID,
		&e.DefaultBankAccountID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "external transaction", id)
	}
	return &e, nil
}

// SaveExternalTransaction upserts the event. Only the refund reference may
// change after the first insert.
func (u *pgUnitOfWork) SaveExternalTransaction(ctx context.Context, e *domain.ExternalTransaction) error {
	query := `
		INSERT INTO external_transactions (
			id, amount, currency, commission, commission_type, user_share, source,
			refunded_transaction_id, impact_project_id, impact_project_transaction,
			user_id, default_bank_account_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, NOW()))
		ON CONFLICT (id) DO UPDATE
		SET refunded_transaction_id = EXCLUDED.refunded_transaction_id
	`
	var createdAt any
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}
	_, err := u.tx.Exec(ctx, query,
		e.ID,
		e.Amount.Amount,
		e.Amount.Currency,
		e.Commission,
		string(e.CommissionType),
		e.UserShare,
		string(e.Source),
		e.RefundedTransactionID,
		e.ImpactProjectID,
		e.ImpactProjectTransaction,
		e.UserID,
		e.DefaultBankAccountID,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save external transaction %s (pg %s): %w", e.ID, xerrors.ParsePGErrorCode(err), err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `
	id, credit_account_id, debit_account_id, type_id,
	credit_amount, credit_currency, debit_amount, debit_currency,
	date, payout_date, payout_status, external_transaction_id`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.CreditAccountID,
		&t.DebitAccountID,
		&t.TypeID,
		&t.CreditAmount.Amount,
		&t.CreditAmount.Currency,
		&t.DebitAmount.Amount,
		&t.DebitAmount.Currency,
		&t.Date,
		&t.PayoutDate,
		&t.PayoutStatus,
		&t.ExternalTransactionID,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func findTransaction(ctx context.Context, q querier, debitAccountID, typeID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE debit_account_id = $1 AND type_id = $2
		ORDER BY date DESC
		LIMIT 1`

	t, err := scanTransaction(q.QueryRow(ctx, query, debitAccountID, typeID))
	if err != nil {
		return nil, notFound(err, "transaction for debit account", debitAccountID)
	}
	return t, nil
}

func (u *pgUnitOfWork) FindTransaction(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error) {
	return findTransaction(ctx, u.tx, debitAccountID, typeID)
}

func (u *pgUnitOfWork) FindTransactionsByExternalTransaction(ctx context.Context, externalTransactionID string) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_transaction_id = $1
		ORDER BY date, id`

	rows, err := u.tx.Query(ctx, query, externalTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", externalTransactionID, err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func (u *pgUnitOfWork) SaveTransaction(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := u.tx.Exec(ctx, query,
		t.ID,
		t.CreditAccountID,
		t.DebitAccountID,
		t.TypeID,
		t.CreditAmount.Amount,
		t.CreditAmount.Currency,
		t.DebitAmount.Amount,
		t.DebitAmount.Currency,
		t.Date,
		t.PayoutDate,
		t.PayoutStatus,
		t.ExternalTransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s (pg %s): %w", t.ID, xerrors.ParsePGErrorCode(err), err)
	}
	return nil
}

func (u *pgUnitOfWork) FindTransactionType(ctx context.Context, id string) (*domain.TransactionType, error) {
	var t domain.TransactionType
	err := u.tx.QueryRow(ctx, `SELECT id, name FROM transaction_types WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, notFound(err, "transaction type", id)
	}
	return &t, nil
}

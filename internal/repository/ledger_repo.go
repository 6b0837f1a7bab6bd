package repository

import (
	"context"
	"errors"
	"fmt"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the read side of the ledger plus the entry point into a
// unit of work. Every mutation goes through a UnitOfWork.
type LedgerRepository interface {
	Begin(ctx context.Context) (UnitOfWork, error)

	FindAccount(ctx context.Context, id string) (*domain.Account, error)
	FindTransaction(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error)
	FindExternalTransaction(ctx context.Context, id string) (*domain.ExternalTransaction, error)

	// Sums of historical leg amounts where the account sits on the given side.
	SumDebitAmounts(ctx context.Context, accountID string) (int64, error)
	SumCreditAmounts(ctx context.Context, accountID string) (int64, error)

	Ping(ctx context.Context) error
}

// UnitOfWork scopes every write of one workflow to a single database
// transaction. Commit or Rollback must be called exactly once; Rollback after
// Commit is a no-op.
type UnitOfWork interface {
	// Atomic increment-by-delta on the running totals.
	AdjustBalance(ctx context.Context, accountID string, balanceDelta, blockedDelta int64) error

	FindAccount(ctx context.Context, id string) (*domain.Account, error)
	FindAccountByOwner(ctx context.Context, userID string) (*domain.Account, error)
	FindAccountByProject(ctx context.Context, projectID string) (*domain.Account, error)
	FindAccountType(ctx context.Context, id string) (*domain.AccountType, error)
	FindTransactionType(ctx context.Context, id string) (*domain.TransactionType, error)

	FindTransaction(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error)
	FindTransactionsByExternalTransaction(ctx context.Context, externalTransactionID string) ([]*domain.Transaction, error)
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error

	SaveExternalTransaction(ctx context.Context, et *domain.ExternalTransaction) error

	FindProject(ctx context.Context, id string) (*domain.Project, error)
	IncrementProjectUnits(ctx context.Context, projectID string, units decimal.Decimal) error
	FindProjectUserUnits(ctx context.Context, userID, projectID string) (*domain.ProjectUserUnits, error)
	SaveProjectUserUnits(ctx context.Context, u *domain.ProjectUserUnits) error
	IncrementProjectUserUnits(ctx context.Context, id string, units decimal.Decimal) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the repositories use.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var _ Pool = (*pgxpool.Pool)(nil)

type ledgerRepo struct {
	db Pool
}

func NewLedgerRepo(db Pool) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgUnitOfWork{tx: tx}, nil
}

func (r *ledgerRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ledgerRepo) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	return findAccount(ctx, r.db, accountByID, id)
}

func (r *ledgerRepo) FindTransaction(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error) {
	return findTransaction(ctx, r.db, debitAccountID, typeID)
}

func (r *ledgerRepo) FindExternalTransaction(ctx context.Context, id string) (*domain.ExternalTransaction, error) {
	return findExternalTransaction(ctx, r.db, id)
}

func (r *ledgerRepo) SumDebitAmounts(ctx context.Context, accountID string) (int64, error) {
	return sumAmounts(ctx, r.db, `SELECT COALESCE(SUM(debit_amount), 0) FROM transactions WHERE debit_account_id = $1`, accountID)
}

func (r *ledgerRepo) SumCreditAmounts(ctx context.Context, accountID string) (int64, error) {
	return sumAmounts(ctx, r.db, `SELECT COALESCE(SUM(credit_amount), 0) FROM transactions WHERE credit_account_id = $1`, accountID)
}

type pgUnitOfWork struct {
	tx pgx.Tx
}

func (u *pgUnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func sumAmounts(ctx context.Context, q querier, query, accountID string) (int64, error) {
	var total int64
	if err := q.QueryRow(ctx, query, accountID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum amounts for account %s: %w", accountID, err)
	}
	return total, nil
}

// notFound maps pgx.ErrNoRows onto xerrors.ErrNotFound and wraps the rest.
func notFound(err error, what string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, key, xerrors.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %v: %w", what, key, err)
}

package usecase

import (
	"context"
	"time"

	"loyalty-service/internal/domain"
	"loyalty-service/internal/metrics"
	"loyalty-service/internal/repository"
	"loyalty-service/shared/utils/id"

	"go.uber.org/zap"
)

const transactionIDPrefix = "ltx"

// TransferEngine writes one two-leg transaction and its balance effects into
// the caller's unit of work.
type TransferEngine struct {
	converter *ProjectUnitsConverter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

func NewTransferEngine(converter *ProjectUnitsConverter, m *metrics.Metrics, logger *zap.Logger) *TransferEngine {
	return &TransferEngine{
		converter: converter,
		metrics:   m,
		logger:    logger,
		newID:     func() string { return id.GenerateULID(transactionIDPrefix) },
		now:       time.Now,
	}
}

// Deltas returns the signed balance deltas for both legs. A refund moves the
// debit leg down as well, unwinding what the original debit accumulated.
func Deltas(amount int64, isRefund bool) (creditDelta, debitDelta int64) {
	creditDelta = -amount
	debitDelta = amount
	if isRefund {
		debitDelta = -amount
	}
	return creditDelta, debitDelta
}

func (e *TransferEngine) Transfer(ctx context.Context, uow repository.UnitOfWork, req *domain.TransferRequest, shouldBlock bool) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:              e.newID(),
		CreditAccountID: req.CreditAccount.ID,
		DebitAccountID:  req.DebitAccount.ID,
		TypeID:          req.Type.ID,
		CreditAmount:    domain.NewMoney(req.Amount, req.Currency),
		DebitAmount:     domain.NewMoney(req.Amount, req.Currency),
		Date:            e.now(),
		PayoutDate:      req.PayoutDate,
		PayoutStatus:    req.PayoutStatus,
	}
	if req.DateTime != nil {
		tx.Date = *req.DateTime
	}
	if req.ExternalTransaction != nil {
		extID := req.ExternalTransaction.ID
		tx.ExternalTransactionID = &extID
	}

	isRefund := req.IsRefund()
	creditDelta, debitDelta := Deltas(req.Amount, isRefund)

	if err := uow.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := uow.AdjustBalance(ctx, tx.CreditAccountID, creditDelta, blocked(creditDelta, shouldBlock)); err != nil {
		return nil, err
	}
	if err := uow.AdjustBalance(ctx, tx.DebitAccountID, debitDelta, blocked(debitDelta, shouldBlock)); err != nil {
		return nil, err
	}

	if req.DebitAccount.HasProject() {
		if err := e.converter.Convert(ctx, uow, tx, req.CreditAccount, req.DebitAccount); err != nil {
			return nil, err
		}
	}

	e.metrics.CountTransfer(req.Type.Name, isRefund)
	e.logger.Info("transfer written",
		zap.String("action", "transfer_completed"),
		zap.String("transaction_id", tx.ID),
		zap.String("credit_account_id", tx.CreditAccountID),
		zap.String("debit_account_id", tx.DebitAccountID),
		zap.Int64("amount", req.Amount),
		zap.Int64("credit_delta", creditDelta),
		zap.Int64("debit_delta", debitDelta),
		zap.Bool("blocked", shouldBlock),
		zap.Bool("is_refund", isRefund),
	)
	return tx, nil
}

func blocked(delta int64, shouldBlock bool) int64 {
	if shouldBlock {
		return delta
	}
	return 0
}

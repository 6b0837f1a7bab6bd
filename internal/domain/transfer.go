package domain

import (
	"time"

	xerrors "loyalty-service/shared/utils/errors"
)

// TransferRequest describes a single two-leg movement. It lives only for the
// duration of the workflow that built it.
type TransferRequest struct {
	CreditAccount       *Account
	DebitAccount        *Account
	Amount              int64
	Currency            string
	Type                *TransactionType
	ExternalTransaction *ExternalTransaction
	DateTime            *time.Time
	PayoutDate          *time.Time
	PayoutStatus        *string
}

// IsRefund is derived from the originating external transaction.
func (r *TransferRequest) IsRefund() bool {
	return r.ExternalTransaction.IsRefund()
}

func (r *TransferRequest) Validate() error {
	if r.CreditAccount == nil {
		return xerrors.Validation(xerrors.ErrMissingRequiredAccount, "credit account")
	}
	if r.DebitAccount == nil {
		return xerrors.Validation(xerrors.ErrMissingRequiredAccount, "debit account")
	}
	if r.Type == nil {
		return xerrors.Validation(xerrors.ErrUnknownTransactionType, "transfer has no type")
	}
	if r.Amount < 0 {
		return xerrors.Validation(xerrors.ErrInvalidTransfer, "amount must not be negative, got %d", r.Amount)
	}
	if r.Currency == "" {
		return xerrors.Validation(xerrors.ErrInvalidTransfer, "currency is required")
	}
	return nil
}

// CommissionSplit holds the platform and user portions of a commission as
// signed deltas against a blocked reserve.
type CommissionSplit struct {
	Platform Money `json:"platform"`
	User     Money `json:"user"`
}

// ClearingBreakdown is the resolved set of blocked-amount releases for one
// external transaction.
type ClearingBreakdown struct {
	ExternalBank              *Account
	ExternalBankCleared       int64
	PlatformCommission        *Account
	PlatformCommissionCleared int64
	ApplicationUser           *Account
	ApplicationUserCleared    int64
}

// Validate requires every role to be resolved before anything is applied.
func (b *ClearingBreakdown) Validate() error {
	var missing []string
	if b.ExternalBank == nil {
		missing = append(missing, "external bank")
	}
	if b.PlatformCommission == nil {
		missing = append(missing, "platform commission")
	}
	if b.ApplicationUser == nil {
		missing = append(missing, "application user")
	}
	if len(missing) > 0 {
		return xerrors.Validation(xerrors.ErrMissingRequiredAccount, "clearing roles unresolved: %v", missing)
	}
	return nil
}

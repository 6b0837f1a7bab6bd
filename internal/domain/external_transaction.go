package domain

import (
	"strings"
	"time"

	xerrors "loyalty-service/shared/utils/errors"
)

type CommissionType string

const (
	CommissionTypePercent CommissionType = "PERCENT"
	CommissionTypeStatic  CommissionType = "STATIC"
)

func ParseCommissionType(s string) (CommissionType, error) {
	switch CommissionType(strings.ToUpper(s)) {
	case CommissionTypePercent:
		return CommissionTypePercent, nil
	case CommissionTypeStatic:
		return CommissionTypeStatic, nil
	}
	return "", xerrors.Validation(xerrors.ErrUnknownCommissionType, "%q", s)
}

// TransactionSource identifies the channel an external transaction came from.
type TransactionSource string

const (
	SourceFidel   TransactionSource = "fidel"
	SourceAwin    TransactionSource = "awin"
	SourceRakuten TransactionSource = "rakuten"
	SourceShopify TransactionSource = "shopify"
)

var KnownSources = []TransactionSource{SourceFidel, SourceAwin, SourceRakuten, SourceShopify}

func ParseSource(s string) (TransactionSource, error) {
	src := TransactionSource(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownSources {
		if src == known {
			return src, nil
		}
	}
	return "", xerrors.Validation(xerrors.ErrUnknownTransactionSource, "%q", s)
}

// ExternalTransaction is a commerce event reported by a source. It is
// immutable once created except for RefundedTransactionID.
type ExternalTransaction struct {
	ID                       string            `json:"id"`
	Amount                   Money             `json:"amount"`
	Commission               int64             `json:"commission"`
	CommissionType           CommissionType    `json:"commission_type"`
	UserShare                int64             `json:"user_share"`
	Source                   TransactionSource `json:"source"`
	RefundedTransactionID    *string           `json:"refunded_transaction_id,omitempty"`
	ImpactProjectID          *string           `json:"impact_project_id,omitempty"`
	ImpactProjectTransaction bool              `json:"impact_project_transaction"`
	UserID                   *string           `json:"user_id,omitempty"`
	DefaultBankAccountID     *string           `json:"default_bank_account_id,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
}

// IsRefund reports whether the event refunds an earlier external transaction.
func (e *ExternalTransaction) IsRefund() bool {
	return e != nil && e.RefundedTransactionID != nil && *e.RefundedTransactionID != ""
}

func (e *ExternalTransaction) HasUser() bool {
	return e.UserID != nil && *e.UserID != ""
}

// Validate checks the enumerations before any ledger mutation happens.
func (e *ExternalTransaction) Validate() error {
	if e.ID == "" {
		return xerrors.Validation(xerrors.ErrInvalidTransfer, "external transaction id is required")
	}
	if _, err := ParseSource(string(e.Source)); err != nil {
		return err
	}
	if _, err := ParseCommissionType(string(e.CommissionType)); err != nil {
		return err
	}
	if e.Amount.Currency == "" {
		return xerrors.Validation(xerrors.ErrInvalidTransfer, "external transaction %s has no currency", e.ID)
	}
	return nil
}

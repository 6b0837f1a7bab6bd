package domain

import "time"

// Transaction is an immutable ledger entry with exactly one credit and one
// debit leg of equal magnitude.
type Transaction struct {
	ID                    string     `json:"id"`
	CreditAccountID       string     `json:"credit_account_id"`
	DebitAccountID        string     `json:"debit_account_id"`
	TypeID                string     `json:"type_id"`
	CreditAmount          Money      `json:"credit_amount"`
	DebitAmount           Money      `json:"debit_amount"`
	Date                  time.Time  `json:"date"`
	PayoutDate            *time.Time `json:"payout_date,omitempty"`
	PayoutStatus          *string    `json:"payout_status,omitempty"`
	ExternalTransactionID *string    `json:"external_transaction_id,omitempty"`
}

// TransactionType is a row of the transaction type catalog.
type TransactionType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransactionTypeRole names the catalog entries the ledger relies on.
type TransactionTypeRole string

const (
	TransactionTypePurchase TransactionTypeRole = "purchase"
	TransactionTypeRefund   TransactionTypeRole = "refund"
	TransactionTypeDonation TransactionTypeRole = "donation"
)

var TransactionTypeRoles = []TransactionTypeRole{
	TransactionTypePurchase,
	TransactionTypeRefund,
	TransactionTypeDonation,
}

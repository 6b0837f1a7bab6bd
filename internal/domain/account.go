package domain

import "time"

// Account is a loyalty ledger account. Balance and BlockedAmount are running
// totals in minor units and only ever change through atomic deltas.
type Account struct {
	ID            string    `json:"id"`
	TypeID        string    `json:"type_id"`
	UserID        *string   `json:"user_id,omitempty"`
	ProjectID     *string   `json:"project_id,omitempty"`
	Balance       int64     `json:"balance"`
	BlockedAmount int64     `json:"blocked_amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

func (a *Account) HasUser() bool    { return a.UserID != nil && *a.UserID != "" }
func (a *Account) HasProject() bool { return a.ProjectID != nil && *a.ProjectID != "" }

// AccountType is a row of the account type catalog (system bank, user, ...).
type AccountType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PointsSummary is the derived read-side view of an account.
type PointsSummary struct {
	AccountID string `json:"account_id"`
	Earned    int64  `json:"earned"`
	Cleared   int64  `json:"cleared"`
	Available int64  `json:"available"`
	Blocked   int64  `json:"blocked"`
}

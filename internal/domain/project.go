package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project converts spent points into units: UnitPoints points buy UnitAmount units.
type Project struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	UnitPoints       int64           `json:"unit_points"`
	UnitAmount       decimal.Decimal `json:"unit_amount"`
	TotalUnitsAmount decimal.Decimal `json:"total_units_amount"`
}

// ProjectUserUnits accumulates the units a user contributed to a project.
type ProjectUserUnits struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	ProjectID        string          `json:"project_id"`
	TotalUnitsAmount decimal.Decimal `json:"total_units_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

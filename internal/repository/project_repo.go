package repository

import (
	"context"
	"fmt"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/shopspring/decimal"
)

func (u *pgUnitOfWork) FindProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := u.tx.QueryRow(ctx, `
		SELECT id, account_id, unit_points, unit_amount, total_units_amount
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.AccountID, &p.UnitPoints, &p.UnitAmount, &p.TotalUnitsAmount)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

func (u *pgUnitOfWork) IncrementProjectUnits(ctx context.Context, projectID string, units decimal.Decimal) error {
	tag, err := u.tx.Exec(ctx, `
		UPDATE projects
		SET total_units_amount = total_units_amount + $1
		WHERE id = $2
	`, units, projectID)
	if err != nil {
		return fmt.Errorf("failed to increment units for project %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", projectID, xerrors.ErrNotFound)
	}
	return nil
}

func (u *pgUnitOfWork) FindProjectUserUnits(ctx context.Context, userID, projectID string) (*domain.ProjectUserUnits, error) {
	var pu domain.ProjectUserUnits
	err := u.tx.QueryRow(ctx, `
		SELECT id, user_id, project_id, total_units_amount, created_at
		FROM project_user_units
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID).Scan(&pu.ID, &pu.UserID, &pu.ProjectID, &pu.TotalUnitsAmount, &pu.CreatedAt)
	if err != nil {
		return nil, notFound(err, "project user units", userID+"/"+projectID)
	}
	return &pu, nil
}

func (u *pgUnitOfWork) SaveProjectUserUnits(ctx context.Context, pu *domain.ProjectUserUnits) error {
	_, err := u.tx.Exec(ctx, `
		INSERT INTO project_user_units (id, user_id, project_id, total_units_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, pu.ID, pu.UserID, pu.ProjectID, pu.TotalUnitsAmount, pu.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project user units (pg %s): %w", xerrors.ParsePGErrorCode(err), err)
	}
	return nil
}

func (u *pgUnitOfWork) IncrementProjectUserUnits(ctx context.Context, id string, units decimal.Decimal) error {
	tag, err := u.tx.Exec(ctx, `
		UPDATE project_user_units
		SET total_units_amount = total_units_amount + $1
		WHERE id = $2
	`, units, id)
	if err != nil {
		return fmt.Errorf("failed to increment project user units %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project user units %s: %w", id, xerrors.ErrNotFound)
	}
	return nil
}

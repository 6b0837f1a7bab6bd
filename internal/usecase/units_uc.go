package usecase

import (
	"context"
	"errors"
	"time"

	"loyalty-service/internal/domain"
	"loyalty-service/internal/repository"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnitsScale is the number of decimal places kept for unit totals, the scale
// of the NUMERIC(20, 6) units columns.
const UnitsScale = 6

// ProjectUnitsConverter turns points donated to a project account into
// project units and keeps the per-user running totals.
type ProjectUnitsConverter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewProjectUnitsConverter(logger *zap.Logger) *ProjectUnitsConverter {
	return &ProjectUnitsConverter{logger: logger, now: time.Now}
}

// UnitsFor returns amount / unitPoints * unitAmount rounded half away from
// zero to UnitsScale places.
func UnitsFor(amount int64, project *domain.Project) (decimal.Decimal, error) {
	if project.UnitPoints <= 0 {
		return decimal.Zero, xerrors.Validation(xerrors.ErrInvalidProject,
			"project %s has unit points %d", project.ID, project.UnitPoints)
	}
	pointsRate := decimal.NewFromInt(amount).Div(decimal.NewFromInt(project.UnitPoints))
	return pointsRate.Mul(project.UnitAmount).Round(UnitsScale), nil
}

// Convert runs for a transaction whose debit account belongs to a project.
// A zero amount leaves every total untouched.
func (c *ProjectUnitsConverter) Convert(ctx context.Context, uow repository.UnitOfWork, tx *domain.Transaction, credit, debit *domain.Account) error {
	if tx.DebitAmount.IsZero() || !debit.HasProject() {
		return nil
	}

	project, err := uow.FindProject(ctx, *debit.ProjectID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.Validation(xerrors.ErrInvalidProject, "project %s of account %s", *debit.ProjectID, debit.ID)
		}
		return err
	}

	units, err := UnitsFor(tx.DebitAmount.Amount, project)
	if err != nil {
		return err
	}

	if err := uow.IncrementProjectUnits(ctx, project.ID, units); err != nil {
		return err
	}

	if !credit.HasUser() {
		c.logger.Info("project units without contributing user",
			zap.String("action", "project_units_unattributed"),
			zap.String("project_id", project.ID),
			zap.String("credit_account_id", credit.ID),
			zap.String("units", units.String()),
		)
		return nil
	}
	userID := *credit.UserID

	existing, err := uow.FindProjectUserUnits(ctx, userID, project.ID)
	switch {
	case err == nil:
		return uow.IncrementProjectUserUnits(ctx, existing.ID, units)
	case errors.Is(err, xerrors.ErrNotFound):
		return uow.SaveProjectUserUnits(ctx, &domain.ProjectUserUnits{
			ID:               uuid.NewString(),
			UserID:           userID,
			ProjectID:        project.ID,
			TotalUnitsAmount: units,
			CreatedAt:        c.now(),
		})
	default:
		return err
	}
}

package usecase

import (
	"testing"
	"time"

	"loyalty-service/internal/domain"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitsFor(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		unitPoints int64
		unitAmount string
		want       string
	}{
		{"whole units", 100, 50, "2", "4"},
		{"fractional rate", 25, 50, "2", "1"},
		{"fractional unit amount", 30, 20, "0.5", "0.75"},
		{"repeating rate rounded to column scale", 100, 3, "2", "66.666667"},
		{"rounds half away from zero", 1, 2, "0.000001", "0.000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.Project{ID: "p", UnitPoints: tt.unitPoints, UnitAmount: decimal.RequireFromString(tt.unitAmount)}
			got, err := UnitsFor(tt.amount, p)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestUnitsForRejectsZeroUnitPoints(t *testing.T) {
	_, err := UnitsFor(100, &domain.Project{ID: "p", UnitAmount: decimal.NewFromInt(2)})
	assert.ErrorIs(t, err, xerrors.ErrInvalidProject)
}

func TestLastDayOfNextMonth(t *testing.T) {
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC), time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
		{time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 3, 12, 0, 0, 0, time.UTC), time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lastDayOfNextMonth(tt.from), "from %s", tt.from)
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	"loyalty-service/internal/repository"
)

// trackingUnitOfWork remembers which accounts a workflow touched so their
// cached summaries can be dropped once the workflow commits.
type trackingUnitOfWork struct {
	repository.UnitOfWork

	mu      sync.Mutex
	touched map[string]struct{}
}

func track(uow repository.UnitOfWork) *trackingUnitOfWork {
	return &trackingUnitOfWork{UnitOfWork: uow, touched: map[string]struct{}{}}
}

func (t *trackingUnitOfWork) AdjustBalance(ctx context.Context, accountID string, balanceDelta, blockedDelta int64) error {
	if err := t.UnitOfWork.AdjustBalance(ctx, accountID, balanceDelta, blockedDelta); err != nil {
		return err
	}
	t.mu.Lock()
	t.touched[accountID] = struct{}{}
	t.mu.Unlock()
	return nil
}

func (t *trackingUnitOfWork) Touched() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.touched))
	for id := range t.touched {
		ids = append(ids, id)
	}
	return ids
}

// lastDayOfNextMonth keeps the time of day of t.
func lastDayOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	firstOfFollowing := time.Date(y, m+2, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return firstOfFollowing.AddDate(0, 0, -1)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

package events

import (
	"context"
	"fmt"
	"time"
)

// QuotaGuard enforces the per-user ceiling on event creation within a
// rolling window preceding the attempt. Soft-deleted events still
// count: deleting an event does not refund quota.
type QuotaGuard struct {
	limit  int
	window time.Duration
}

func NewQuotaGuard(limit int, window time.Duration) *QuotaGuard {
	return &QuotaGuard{limit: limit, window: window}
}

func (g *QuotaGuard) Limit() int {
	return g.limit
}

// Check returns a QuotaError when the user has already created limit
// or more events inside the window ending at now.
func (g *QuotaGuard) Check(ctx context.Context, repo Repository, userID int64, now time.Time) error {
	count, err := repo.CountCreatedSince(ctx, userID, now.Add(-g.window))
	if err != nil {
		return fmt.Errorf("count events in window: %w", err)
	}
	if count >= g.limit {
		return QuotaError{Count: count, Limit: g.limit}
	}
	return nil
}

package reservation

import (
	"context"
	"fmt"
	"time"

	"florist/internal/core/apperror"
	"florist/pkg/logger"
)

// defaultPendingStatuses are the pre-assembly order states whose holds the
// sweeper may reclaim. Orders at or past assembly either converted their
// reservations already or are about to.
var defaultPendingStatuses = []string{"new", "paid", "accepted"}

// Sweeper releases reservations belonging to orders stuck in a pre-assembly
// state past a configurable age: abandoned carts, never-paid orders. It only
// ever releases holds that were never converted, so quantity_on_hand is
// untouched and the availability invariant holds automatically.
type Sweeper struct {
	manager  *Manager
	repo     Repository
	statuses []string
}

// NewSweeper creates a cleanup sweeper. statuses may be nil to reclaim from
// the default pre-assembly states.
func NewSweeper(manager *Manager, repo Repository, statuses []string) *Sweeper {
	if len(statuses) == 0 {
		statuses = defaultPendingStatuses
	}
	return &Sweeper{manager: manager, repo: repo, statuses: statuses}
}

// Sweep finds stale reservations and releases them per order. In dry-run
// mode it only reports what would be released. A failed release is logged
// and skipped so one bad order does not block the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context, maxAge time.Duration, dryRun bool) (*SweepResult, error) {
	if maxAge <= 0 {
		return nil, apperror.NewValidation("max age must be positive").WithDetail("max_age", maxAge.String())
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	stale, err := s.repo.FindStaleOrders(ctx, cutoff, s.statuses)
	if err != nil {
		return nil, fmt.Errorf("find stale orders: %w", err)
	}

	result := &SweepResult{DryRun: dryRun}
	for _, so := range stale {
		if dryRun {
			result.ReleasedCount += int(so.Reservations)
			result.AffectedOrderIDs = append(result.AffectedOrderIDs, so.OrderID)
			continue
		}

		released, err := s.manager.Release(ctx, so.OrderID)
		if err != nil {
			logger.Error(ctx, "sweep failed to release order, skipping",
				"order_id", so.OrderID, "error", err)
			continue
		}
		result.ReleasedCount += int(released)
		result.AffectedOrderIDs = append(result.AffectedOrderIDs, so.OrderID)
	}

	logger.Info(ctx, "reservation sweep completed",
		"cutoff", cutoff,
		"dry_run", dryRun,
		"orders", len(result.AffectedOrderIDs),
		"released", result.ReleasedCount,
	)

	return result, nil
}

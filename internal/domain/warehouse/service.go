package warehouse

import (
	"context"
	"fmt"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/core/tx"
	"florist/pkg/logger"
)

// ReservedReader reports active holds per warehouse item.
// Satisfied by the reservation repository.
type ReservedReader interface {
	SumReservedByItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]int64, error)
}

// Auditor records change payloads alongside the operation ledger.
type Auditor interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// Service provides warehouse item management.
// It is the only writer of quantity_on_hand besides the reservation
// manager's deduction conversion.
type Service struct {
	repo     Repository
	ops      OperationRepository
	reserved ReservedReader
	txm      tx.LockingManager
	auditor  Auditor // optional
}

// NewService creates a new warehouse service.
func NewService(repo Repository, ops OperationRepository, reserved ReservedReader, txm tx.LockingManager, auditor Auditor) *Service {
	return &Service{
		repo:     repo,
		ops:      ops,
		reserved: reserved,
		txm:      txm,
		auditor:  auditor,
	}
}

// GetByID retrieves a warehouse item.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// List retrieves warehouse items.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	return s.repo.List(ctx, filter)
}

// Create stores a new warehouse item. An initial quantity is recorded as a
// MANUAL_ADJUST operation so the audit trail reconciles from zero.
func (s *Service) Create(ctx context.Context, item *Item) error {
	if item.Name == "" {
		return apperror.NewValidation("item name is required").WithDetail("field", "name")
	}
	if item.QuantityOnHand < 0 {
		return apperror.NewValidation("quantity on hand cannot be negative").WithDetail("field", "quantityOnHand")
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, item); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		if item.QuantityOnHand > 0 {
			op := NewOperation(item.ID, item.QuantityOnHand, ReasonManualAdjust, nil)
			if err := s.ops.Append(ctx, []Operation{op}); err != nil {
				return fmt.Errorf("append operation: %w", err)
			}
		}
		return nil
	})
}

// Adjust applies a manual stock correction (goods receipt, stocktaking,
// write-off). A negative delta may not eat into quantities already held by
// active reservations: available stock after the adjustment must stay
// non-negative.
func (s *Service) Adjust(ctx context.Context, itemID id.ID, delta int64, note string) (*Item, error) {
	if delta == 0 {
		return nil, apperror.NewValidation("delta must be non-zero").WithDetail("field", "delta")
	}

	var adjusted *Item
	err := s.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		items, err := s.repo.GetByIDsForUpdate(ctx, []id.ID{itemID})
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		item, ok := items[itemID]
		if !ok {
			return apperror.NewNotFound("warehouse item", itemID)
		}

		if delta < 0 {
			reserved, err := s.reserved.SumReservedByItems(ctx, []id.ID{itemID})
			if err != nil {
				return fmt.Errorf("sum reserved: %w", err)
			}
			if item.QuantityOnHand+delta < reserved[itemID] {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					"adjustment would break active reservations").
					WithDetail("quantity_on_hand", item.QuantityOnHand).
					WithDetail("reserved", reserved[itemID]).
					WithDetail("delta", delta)
			}
		}

		if err := s.repo.ApplyDelta(ctx, itemID, delta); err != nil {
			return fmt.Errorf("apply delta: %w", err)
		}

		op := NewOperation(itemID, delta, ReasonManualAdjust, nil)
		if err := s.ops.Append(ctx, []Operation{op}); err != nil {
			return fmt.Errorf("append operation: %w", err)
		}

		if s.auditor != nil {
			changes := map[string]any{
				"delta":  delta,
				"before": item.QuantityOnHand,
				"after":  item.QuantityOnHand + delta,
				"note":   note,
			}
			if err := s.auditor.Record(ctx, "warehouse_item", itemID, "adjust", changes); err != nil {
				return fmt.Errorf("audit adjust: %w", err)
			}
		}

		item.QuantityOnHand += delta
		adjusted = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "warehouse item adjusted",
		"item_id", itemID,
		"delta", delta,
		"quantity_on_hand", adjusted.QuantityOnHand,
	)

	return adjusted, nil
}

// Operations returns the audit log for an item.
func (s *Service) Operations(ctx context.Context, itemID id.ID, filter OperationFilter) ([]Operation, error) {
	return s.ops.ListByItem(ctx, itemID, filter)
}

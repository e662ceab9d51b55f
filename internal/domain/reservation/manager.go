package reservation

import (
	"context"
	"fmt"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/core/tx"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/warehouse"
	"florist/pkg/logger"
)

// Manager is the only component allowed to create or remove reservation
// rows. Reserve and ConvertToDeduction serialize concurrent orders on the
// warehouse item rows they touch; everything else is lock-free.
type Manager struct {
	repo       Repository
	items      warehouse.Repository
	ops        warehouse.OperationRepository
	products   product.Repository
	recipes    product.RecipeRepository
	orderLines OrderLineSource
	txm        tx.LockingManager
	auditor    warehouse.Auditor // optional
}

// NewManager creates a reservation manager.
func NewManager(
	repo Repository,
	items warehouse.Repository,
	ops warehouse.OperationRepository,
	products product.Repository,
	recipes product.RecipeRepository,
	orderLines OrderLineSource,
	txm tx.LockingManager,
	auditor warehouse.Auditor,
) *Manager {
	return &Manager{
		repo:       repo,
		items:      items,
		ops:        ops,
		products:   products,
		recipes:    recipes,
		orderLines: orderLines,
		txm:        txm,
		auditor:    auditor,
	}
}

// itemDemand aggregates how much of one warehouse item a request needs and
// which products drive that need (for shortage messages).
type itemDemand struct {
	need     int64
	products []string
}

// expandDemand flattens (product, quantity) lines through their recipes
// into per-warehouse-item demand. Optional recipe entries are skipped: they
// never participate in the oversell check. Duplicate products and shared
// ingredients aggregate.
func (m *Manager) expandDemand(ctx context.Context, items []ItemQuantity) (map[id.ID]*itemDemand, []id.ID, error) {
	productIDs := make([]id.ID, 0, len(items))
	seen := make(map[id.ID]bool, len(items))
	for i, line := range items {
		if id.IsNil(line.ProductID) {
			return nil, nil, apperror.NewValidation("product id is required").WithDetail("line", i)
		}
		if line.Quantity <= 0 {
			return nil, nil, apperror.NewValidation("quantity must be positive").
				WithDetail("line", i).
				WithDetail("product_id", line.ProductID)
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			productIDs = append(productIDs, line.ProductID)
		}
	}

	products, err := m.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	for _, pid := range productIDs {
		if _, ok := products[pid]; !ok {
			return nil, nil, apperror.NewNotFound("product", pid)
		}
	}

	recipes, err := m.recipes.GetByProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load recipes: %w", err)
	}

	demand := make(map[id.ID]*itemDemand)
	for _, line := range items {
		name := products[line.ProductID].Name
		for _, entry := range recipes[line.ProductID] {
			if !entry.IsRequired {
				continue
			}
			d, ok := demand[entry.WarehouseItemID]
			if !ok {
				d = &itemDemand{}
				demand[entry.WarehouseItemID] = d
			}
			d.need += entry.QuantityPerUnit * line.Quantity
			if len(d.products) == 0 || d.products[len(d.products)-1] != name {
				d.products = append(d.products, name)
			}
		}
	}

	itemIDs := make([]id.ID, 0, len(demand))
	for itemID := range demand {
		itemIDs = append(itemIDs, itemID)
	}
	id.Sort(itemIDs)

	return demand, itemIDs, nil
}

// Reserve places holds for an order, all-or-nothing. Within one transaction
// it locks every distinct warehouse item in ascending ID order, re-reads
// availability under the locks, and either writes one reservation row per
// item or aborts with the full shortfall detail and writes nothing.
//
// A concurrent Reserve touching overlapping items queues on the same locks
// (bounded wait); the later one sees the earlier one's committed holds and
// is rejected if stock no longer suffices.
func (m *Manager) Reserve(ctx context.Context, orderID id.ID, items []ItemQuantity) (*Set, error) {
	if id.IsNil(orderID) {
		return nil, apperror.NewValidation("order id is required")
	}
	if len(items) == 0 {
		return nil, apperror.NewValidation("at least one item is required")
	}

	demand, itemIDs, err := m.expandDemand(ctx, items)
	if err != nil {
		return nil, err
	}

	set := &Set{OrderID: orderID}
	if len(itemIDs) == 0 {
		// Products with no required ingredients need no hold.
		return set, nil
	}

	err = m.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		locked, err := m.items.GetByIDsForUpdate(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("lock items: %w", err)
		}

		reserved, err := m.repo.SumReservedByItems(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("sum reserved: %w", err)
		}

		rows := make([]Reservation, 0, len(itemIDs))
		for _, itemID := range itemIDs {
			item, ok := locked[itemID]
			if !ok {
				logger.Error(ctx, "recipe references missing warehouse item",
					"item_id", itemID, "order_id", orderID)
				return apperror.NewInternal(fmt.Errorf("warehouse item %s not found during reserve", itemID))
			}

			d := demand[itemID]
			available := item.QuantityOnHand - reserved[itemID]
			if available < d.need {
				return apperror.NewInsufficientStock(
					itemID.String(), item.Name, d.need, available, d.products)
			}

			rows = append(rows, Reservation{
				ID:               id.New(),
				OrderID:          orderID,
				WarehouseItemID:  itemID,
				ReservedQuantity: d.need,
			})
		}

		if err := m.repo.Create(ctx, rows); err != nil {
			return fmt.Errorf("create reservations: %w", err)
		}

		set.Reservations = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock reserved",
		"order_id", orderID,
		"items", len(set.Reservations),
	)

	return set, nil
}

// Release removes all holds for an order. Idempotent: an order with no
// reservations releases zero rows without error.
func (m *Manager) Release(ctx context.Context, orderID id.ID) (int64, error) {
	if id.IsNil(orderID) {
		return 0, apperror.NewValidation("order id is required")
	}

	count, err := m.repo.DeleteByOrder(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("delete reservations: %w", err)
	}

	if count > 0 {
		logger.Info(ctx, "reservations released", "order_id", orderID, "count", count)
	}

	return count, nil
}

// ConvertToDeduction turns an order's holds into permanent stock deductions:
// per reservation, decrement quantity_on_hand, append a DEDUCTION operation,
// delete the row - one transaction, all or nothing.
//
// An order with no reservations but existing DEDUCTION operations was
// already converted: the call is a no-op. An order with no reservations and
// no deductions predates the reservation phase; stock is deducted straight
// from the recipe expansion (legacy path).
func (m *Manager) ConvertToDeduction(ctx context.Context, orderID id.ID) (*DeductionResult, error) {
	if id.IsNil(orderID) {
		return nil, apperror.NewValidation("order id is required")
	}

	result := &DeductionResult{OrderID: orderID}
	err := m.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		held, err := m.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}

		if len(held) == 0 {
			converted, err := m.ops.HasDeductionsForOrder(ctx, orderID)
			if err != nil {
				return fmt.Errorf("check deductions: %w", err)
			}
			if converted {
				// Already converted; nothing to do.
				return nil
			}
			return m.convertLegacy(ctx, orderID, result)
		}

		// Aggregate per item; legacy data may carry duplicate rows.
		needs := make(map[id.ID]int64, len(held))
		itemIDs := make([]id.ID, 0, len(held))
		for _, r := range held {
			if _, ok := needs[r.WarehouseItemID]; !ok {
				itemIDs = append(itemIDs, r.WarehouseItemID)
			}
			needs[r.WarehouseItemID] += r.ReservedQuantity
		}
		id.Sort(itemIDs)

		locked, err := m.items.GetByIDsForUpdate(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("lock items: %w", err)
		}

		ops := make([]warehouse.Operation, 0, len(itemIDs))
		oid := orderID
		for _, itemID := range itemIDs {
			item, ok := locked[itemID]
			if !ok {
				logger.Error(ctx, "reservation references missing warehouse item",
					"item_id", itemID, "order_id", orderID)
				return apperror.NewInternal(fmt.Errorf("warehouse item %s not found during conversion", itemID))
			}

			q := needs[itemID]
			if item.QuantityOnHand < q {
				// Reserved more than on hand: the no-oversell invariant is
				// broken in stored data. Abort, do not paper over it.
				logger.Error(ctx, "reserved quantity exceeds stock on hand",
					"item_id", itemID, "order_id", orderID,
					"reserved", q, "on_hand", item.QuantityOnHand)
				return apperror.NewInternal(fmt.Errorf("reservation for item %s exceeds quantity on hand", itemID))
			}

			if err := m.items.ApplyDelta(ctx, itemID, -q); err != nil {
				return fmt.Errorf("apply deduction: %w", err)
			}
			ops = append(ops, warehouse.NewOperation(itemID, -q, warehouse.ReasonDeduction, &oid))
			result.Deductions = append(result.Deductions, Deduction{WarehouseItemID: itemID, Quantity: q})
		}

		if err := m.ops.Append(ctx, ops); err != nil {
			return fmt.Errorf("append operations: %w", err)
		}

		if _, err := m.repo.DeleteByOrder(ctx, orderID); err != nil {
			return fmt.Errorf("delete reservations: %w", err)
		}

		return m.auditConversion(ctx, orderID, result)
	})
	if err != nil {
		return nil, err
	}

	if len(result.Deductions) > 0 {
		logger.Info(ctx, "reservations converted to deductions",
			"order_id", orderID,
			"items", len(result.Deductions),
			"legacy", result.Legacy,
		)
	}

	return result, nil
}

// convertLegacy deducts stock for an order that never had reservations.
// Same quantity math as Reserve, committed immediately with no hold phase.
// Runs inside the caller's transaction.
func (m *Manager) convertLegacy(ctx context.Context, orderID id.ID, result *DeductionResult) error {
	lines, err := m.orderLines.GetOrderLines(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	if len(lines) == 0 {
		return apperror.NewReservationNotFound(orderID)
	}

	demand, itemIDs, err := m.expandDemand(ctx, lines)
	if err != nil {
		return err
	}

	result.Legacy = true
	if len(itemIDs) == 0 {
		return nil
	}

	locked, err := m.items.GetByIDsForUpdate(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("lock items: %w", err)
	}

	reserved, err := m.repo.SumReservedByItems(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("sum reserved: %w", err)
	}

	ops := make([]warehouse.Operation, 0, len(itemIDs))
	oid := orderID
	for _, itemID := range itemIDs {
		item, ok := locked[itemID]
		if !ok {
			logger.Error(ctx, "recipe references missing warehouse item",
				"item_id", itemID, "order_id", orderID)
			return apperror.NewInternal(fmt.Errorf("warehouse item %s not found during legacy conversion", itemID))
		}

		d := demand[itemID]
		// Other orders' holds stay untouchable even on the legacy path.
		available := item.QuantityOnHand - reserved[itemID]
		if available < d.need {
			return apperror.NewInsufficientStock(
				itemID.String(), item.Name, d.need, available, d.products)
		}

		if err := m.items.ApplyDelta(ctx, itemID, -d.need); err != nil {
			return fmt.Errorf("apply deduction: %w", err)
		}
		ops = append(ops, warehouse.NewOperation(itemID, -d.need, warehouse.ReasonDeduction, &oid))
		result.Deductions = append(result.Deductions, Deduction{WarehouseItemID: itemID, Quantity: d.need})
	}

	if err := m.ops.Append(ctx, ops); err != nil {
		return fmt.Errorf("append operations: %w", err)
	}

	return m.auditConversion(ctx, orderID, result)
}

func (m *Manager) auditConversion(ctx context.Context, orderID id.ID, result *DeductionResult) error {
	if m.auditor == nil {
		return nil
	}
	changes := map[string]any{
		"deductions": result.Deductions,
		"legacy":     result.Legacy,
	}
	if err := m.auditor.Record(ctx, "order", orderID, "deduct", changes); err != nil {
		return fmt.Errorf("audit conversion: %w", err)
	}
	return nil
}

// Package warehouse provides the stock ledger: warehouse items with on-hand
// quantities and the append-only operation log that audits every change.
package warehouse

import (
	"time"

	"florist/internal/core/id"
)

// Item represents a physical ingredient in stock (roses, ribbon, boxes).
// QuantityOnHand is mutated only by deduction conversion and manual
// adjustment; creating or releasing a reservation never touches it.
type Item struct {
	ID             id.ID     `db:"id" json:"id"`
	ShopID         id.ID     `db:"shop_id" json:"shopId"`
	Name           string    `db:"name" json:"name"`
	QuantityOnHand int64     `db:"quantity_on_hand" json:"quantityOnHand"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// NewItem creates a warehouse item.
func NewItem(shopID id.ID, name string, quantityOnHand int64) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:             id.New(),
		ShopID:         shopID,
		Name:           name,
		QuantityOnHand: quantityOnHand,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// OperationReason classifies a quantity change in the audit log.
type OperationReason string

const (
	// ReasonDeduction - stock consumed by an assembled order
	ReasonDeduction OperationReason = "DEDUCTION"
	// ReasonManualAdjust - stocktaking correction or goods receipt
	ReasonManualAdjust OperationReason = "MANUAL_ADJUST"
)

// Operation is one immutable audit record of a quantity change.
// Rows are only ever appended; the sum of deltas per item reconciles
// against QuantityOnHand changes.
type Operation struct {
	ID              id.ID           `db:"id" json:"id"`
	WarehouseItemID id.ID           `db:"warehouse_item_id" json:"warehouseItemId"`
	Delta           int64           `db:"delta" json:"delta"`
	Reason          OperationReason `db:"reason" json:"reason"`
	OrderID         *id.ID          `db:"order_id" json:"orderId,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// NewOperation creates an audit operation record.
func NewOperation(itemID id.ID, delta int64, reason OperationReason, orderID *id.ID) Operation {
	return Operation{
		ID:              id.New(),
		WarehouseItemID: itemID,
		Delta:           delta,
		Reason:          reason,
		OrderID:         orderID,
		CreatedAt:       time.Now().UTC(),
	}
}

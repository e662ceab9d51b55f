// Package reservation provides the stock reservation engine: holds on
// warehouse stock tied to orders, their conversion into deductions, and the
// cleanup sweep for abandoned holds.
//
// This package is the single writer of reservation rows and (together with
// warehouse.Service manual adjustments) of quantity_on_hand. All mutation
// goes through Manager's transactions; every other component treats stock
// quantities as read-only.
package reservation

import (
	"time"

	"florist/internal/core/id"
)

// Reservation is a hold on warehouse stock for one order, not a deduction.
// Rows are never mutated in place: quantity changes replace the row.
type Reservation struct {
	ID               id.ID     `db:"id" json:"id"`
	OrderID          id.ID     `db:"order_id" json:"orderId"`
	WarehouseItemID  id.ID     `db:"warehouse_item_id" json:"warehouseItemId"`
	ReservedQuantity int64     `db:"reserved_quantity" json:"reservedQuantity"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

// ItemQuantity is one (product, quantity) line of a reserve request.
type ItemQuantity struct {
	ProductID id.ID `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// Set is the outcome of a successful reserve: one row per distinct
// warehouse item the order now holds.
type Set struct {
	OrderID      id.ID         `json:"orderId"`
	Reservations []Reservation `json:"reservations"`
}

// Deduction is one permanent stock decrement produced by conversion.
type Deduction struct {
	WarehouseItemID id.ID `json:"warehouseItemId"`
	Quantity        int64 `json:"quantity"`
}

// DeductionResult reports what a conversion did.
// Legacy is set when the order had no reservations and stock was deducted
// straight from the recipe expansion.
type DeductionResult struct {
	OrderID    id.ID       `json:"orderId"`
	Deductions []Deduction `json:"deductions"`
	Legacy     bool        `json:"legacy"`
}

// StaleOrder is an order still holding reservations past the sweep cutoff.
type StaleOrder struct {
	OrderID      id.ID `db:"order_id" json:"orderId"`
	Reservations int64 `db:"reservations" json:"reservations"`
}

// SweepResult reports a cleanup pass over stale reservations.
type SweepResult struct {
	ReleasedCount    int     `json:"releasedCount"`
	AffectedOrderIDs []id.ID `json:"affectedOrderIds"`
	DryRun           bool    `json:"dryRun"`
}

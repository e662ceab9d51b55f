package reservation

import (
	"context"
	"time"

	"florist/internal/core/id"
)

// Repository defines persistence operations for reservations.
// Only Manager and the sweeper call the mutating methods.
type Repository interface {
	// Create inserts reservation rows. Called inside a reserve/convert
	// transaction only, after the availability re-check under locks.
	Create(ctx context.Context, reservations []Reservation) error

	// GetByOrder returns active reservations for an order.
	GetByOrder(ctx context.Context, orderID id.ID) ([]Reservation, error)

	// GetByOrderForUpdate locks an order's reservation rows so a
	// concurrent release cannot pull them out from under a conversion.
	// Must be called inside a transaction.
	GetByOrderForUpdate(ctx context.Context, orderID id.ID) ([]Reservation, error)

	// DeleteByOrder removes all reservations for an order, returning the
	// number of rows removed. Zero rows is not an error.
	DeleteByOrder(ctx context.Context, orderID id.ID) (int64, error)

	// SumReservedByItems returns total reserved quantity per warehouse
	// item. Items with no active reservations are absent from the map.
	SumReservedByItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]int64, error)

	// FindStaleOrders returns distinct orders that still hold reservations
	// created before cutoff while sitting in one of the given statuses,
	// with the number of reservation rows each holds.
	FindStaleOrders(ctx context.Context, cutoff time.Time, statuses []string) ([]StaleOrder, error)
}

// OrderLineSource supplies the item lines of an order for the legacy
// direct-deduction fallback. Satisfied by the order repository; declared
// here so the engine does not depend on the orders package.
type OrderLineSource interface {
	GetOrderLines(ctx context.Context, orderID id.ID) ([]ItemQuantity, error)
}

package orders

import (
	"context"
	"time"

	"florist/internal/core/id"
	"florist/internal/domain/reservation"
)

// ListFilter narrows order listings. Zero values mean "no filter".
type ListFilter struct {
	Status    Status
	CreatedAt *time.Time
	Limit     int
	Offset    int
}

// Repository persists orders and their lines.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	// GetByIDForUpdate locks the order row for the duration of the
	// current transaction. Status transitions go through this to
	// serialize concurrent lifecycle calls for the same order.
	GetByIDForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	UpdateStatus(ctx context.Context, orderID id.ID, status Status) error
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Delete(ctx context.Context, orderID id.ID) error

	// GetOrderLines returns the (product, quantity) pairs of an order.
	// Satisfies reservation.OrderLineSource for the legacy deduction path.
	GetOrderLines(ctx context.Context, orderID id.ID) ([]reservation.ItemQuantity, error)
}

package warehouse

import (
	"context"
	"time"

	"florist/internal/core/id"
)

// Repository defines persistence operations for warehouse items.
type Repository interface {
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetByIDs bulk loads items without locks (availability read path).
	GetByIDs(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error)

	// GetByIDsForUpdate loads items with exclusive row locks, acquiring
	// them in ascending ID order. Every concurrent caller locking an
	// overlapping set walks the same order, so lock cycles cannot form.
	// Must be called inside a transaction.
	GetByIDsForUpdate(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error)

	// ApplyDelta shifts quantity_on_hand by delta for a locked item.
	// The database constraint rejects a negative result.
	ApplyDelta(ctx context.Context, itemID id.ID, delta int64) error

	List(ctx context.Context, filter ListFilter) ([]*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
}

// OperationRepository appends to and reads the audit log.
// No update or delete methods exist: the log is append-only.
type OperationRepository interface {
	Append(ctx context.Context, ops []Operation) error
	ListByItem(ctx context.Context, itemID id.ID, filter OperationFilter) ([]Operation, error)

	// HasDeductionsForOrder reports whether DEDUCTION rows exist for an
	// order. Guards convert-to-deduction idempotency: an order whose
	// reservations are gone but that already produced deductions must not
	// fall through to the legacy direct-deduction path.
	HasDeductionsForOrder(ctx context.Context, orderID id.ID) (bool, error)
}

// ListFilter for item queries.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// OperationFilter for audit log queries.
type OperationFilter struct {
	Reason   *OperationReason
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

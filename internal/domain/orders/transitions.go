package orders

import "florist/internal/core/apperror"

// StockAction is the stock side effect a status transition triggers.
// Exactly one action fires per transition, inside the same transaction
// that updates the status row.
type StockAction int

const (
	// ActionNone leaves reservations untouched.
	ActionNone StockAction = iota
	// ActionConvert turns the order's holds into permanent deductions.
	ActionConvert
	// ActionRelease drops the order's holds without touching stock.
	ActionRelease
)

// allowedTransitions lists every legal status change. Terminal states have
// no entries: a delivered or cancelled order never moves again.
var allowedTransitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusPaid:      true,
		StatusAccepted:  true,
		StatusAssembled: true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusAccepted:  true,
		StatusAssembled: true,
		StatusCancelled: true,
	},
	StatusAccepted: {
		StatusAssembled: true,
		StatusCancelled: true,
	},
	StatusAssembled: {
		StatusInDelivery: true,
		StatusCancelled:  true,
	},
	StatusInDelivery: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
}

// stockActionFor returns the stock side effect of a legal transition.
// Assembly converts holds into deductions. Cancellation releases whatever
// holds remain; after assembly the stock is already spent and the release
// finds nothing, which is fine. Flowers cut for a bouquet do not go back
// on the shelf, so cancellation never restores deducted stock.
func stockActionFor(_, to Status) StockAction {
	switch to {
	case StatusAssembled:
		return ActionConvert
	case StatusCancelled:
		return ActionRelease
	default:
		return ActionNone
	}
}

// checkTransition validates a requested status change. A same-status
// request is reported as a no-op rather than an error so retried webhook
// deliveries stay harmless.
func checkTransition(from, to Status) (noop bool, err error) {
	if !to.IsValid() {
		return false, apperror.NewValidation("unknown order status").WithDetail("status", string(to))
	}
	if from == to {
		return true, nil
	}
	if !allowedTransitions[from][to] {
		return false, apperror.NewInvalidTransition(string(from), string(to))
	}
	return false, nil
}

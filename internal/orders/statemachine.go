package orders

import (
	"fmt"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// allowedTransitions is the full edge set of the order lifecycle. CANCELLED
// has no outbound edges; DELIVERED only reopens to OPEN when late items are
// appended.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusOpen: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusInPreparation,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusInPreparation,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInPreparation: {
		enums.OrderStatusPrepared,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPrepared: {
		enums.OrderStatusOnRoute,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOnRoute: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusOpen,
	},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether from → to is a legal edge. A same-status
// transition is not an edge; callers treat it as an idempotent no-op before
// consulting the table.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GuardTransition validates from → to and returns a typed error on illegal
// edges. The CANCELLED check runs before the table lookup on purpose: even a
// corrupted table must never let a cancelled order move again.
func GuardTransition(from, to enums.OrderStatus) error {
	if !from.IsValid() || !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status in transition %s -> %s", from, to))
	}
	if from == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot change status")
	}
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transition %s -> %s not allowed", from, to))
	}
	return nil
}

package orders

import (
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
)

// forwardEdges is the single source of truth for the order pipeline. Each
// status maps to the one status it can move forward to; cancellation is
// handled separately because it is reachable from every non-terminal status.
var forwardEdges = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusBooked:          enums.OrderStatusPickupScheduled,
	enums.OrderStatusPickupScheduled: enums.OrderStatusCollected,
	enums.OrderStatusCollected:       enums.OrderStatusInProgress,
	enums.OrderStatusInProgress:      enums.OrderStatusReady,
	enums.OrderStatusReady:           enums.OrderStatusOutForDelivery,
	enums.OrderStatusOutForDelivery:  enums.OrderStatusDelivered,
	enums.OrderStatusDelivered:       enums.OrderStatusCompleted,
}

// edgeRoles maps each target status to the non-operator roles allowed to
// drive the order there. Staff and admin can drive any edge; customers can
// drive none. Runners only act on orders already scheduled for them, so
// scheduling itself stays with operators and the system.
var edgeRoles = map[enums.OrderStatus][]enums.ActorRole{
	enums.OrderStatusPickupScheduled: {enums.RoleSystem},
	enums.OrderStatusCollected:       {enums.RoleRunner},
	enums.OrderStatusInProgress:      {enums.RoleTailor},
	enums.OrderStatusReady:           {enums.RoleTailor},
	enums.OrderStatusOutForDelivery:  {enums.RoleRunner},
	enums.OrderStatusDelivered:       {enums.RoleRunner},
	enums.OrderStatusCompleted:       {enums.RoleSystem},
}

// NextStatus returns the single forward status for the given one, or false
// when the status is terminal.
func NextStatus(current enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := forwardEdges[current]
	return next, ok
}

// CanTransition reports whether current → target is a legal forward edge.
func CanTransition(current, target enums.OrderStatus) bool {
	next, ok := forwardEdges[current]
	return ok && next == target
}

// CanCancel reports whether an order in the given status may still be
// cancelled.
func CanCancel(current enums.OrderStatus) bool {
	return !current.IsTerminal()
}

// authorizeEdge checks that the actor's role may drive the order to target.
// Operators pass for any edge; everyone else must be named on the edge.
func authorizeEdge(role enums.ActorRole, target enums.OrderStatus) error {
	if role.IsOperator() {
		return nil
	}
	for _, allowed := range edgeRoles[target] {
		if allowed == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed to perform this transition")
}

// validateTransition enforces the pipeline shape before any write happens.
func validateTransition(current, target enums.OrderStatus, override bool) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if target == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeValidation, "use cancel for cancellation")
	}
	if current.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is in a terminal state")
	}
	if override {
		return nil
	}
	if !CanTransition(current, target) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition not allowed from current status")
	}
	return nil
}

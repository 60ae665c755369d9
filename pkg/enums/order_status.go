package enums

import "fmt"

// OrderStatus tracks an order through the collection/processing/delivery pipeline.
type OrderStatus string

const (
	OrderStatusBooked          OrderStatus = "booked"
	OrderStatusPickupScheduled OrderStatus = "pickup_scheduled"
	OrderStatusCollected       OrderStatus = "collected"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusReady           OrderStatus = "ready"
	OrderStatusOutForDelivery  OrderStatus = "out_for_delivery"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusBooked,
	OrderStatusPickupScheduled,
	OrderStatusCollected,
	OrderStatusInProgress,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

package enums

import "fmt"

// OrderItemStatus tracks per-item progress inside an order.
type OrderItemStatus string

const (
	OrderItemStatusPending    OrderItemStatus = "pending"
	OrderItemStatusInProgress OrderItemStatus = "in_progress"
	OrderItemStatusDone       OrderItemStatus = "done"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusInProgress,
	OrderItemStatusDone,
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}

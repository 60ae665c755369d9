package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

// ListFilters narrows order list queries.
type ListFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// CreateOrderItemInput is one requested catalog service on a new order.
type CreateOrderItemInput struct {
	ServiceID uuid.UUID
	Qty       int
}

// CreateOrderInput carries everything needed to book an order.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Items           []CreateOrderItemInput
	CollectionDate  *time.Time
	CollectionSlot  *string
	DeliveryAddress types.Address
}

// AdvanceInput moves an order one step forward, or anywhere for operators
// using Override.
type AdvanceInput struct {
	OrderID      uuid.UUID
	TargetStatus enums.OrderStatus
	ActorUserID  uuid.UUID
	ActorRole    enums.ActorRole
	// Override lets staff and admin skip pipeline steps; Reason is then
	// mandatory and recorded on the timeline.
	Override bool
	Reason   *string
}

// UpdateItemStatusInput moves one garment's work status. The assigned tailor
// drives it while the order is being worked; operators can correct it any
// time before the order turns terminal.
type UpdateItemStatusInput struct {
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	Status      enums.OrderItemStatus
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// CancelInput cancels a non-terminal order.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
}

// AssignInput attaches a runner or tailor to an order.
type AssignInput struct {
	OrderID     uuid.UUID
	AssigneeID  uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// OrderCreatedEvent is emitted when an order is booked.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   int64     `json:"order_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	SubtotalCents int       `json:"subtotal_cents"`
	TotalCents    int       `json:"total_cents"`
	Currency      string    `json:"currency"`
}

// OrderStatusChangedEvent is emitted for every applied transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	Override    bool              `json:"override,omitempty"`
}

// OrderCancelledEvent is emitted when an order reaches cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	Reason      string            `json:"reason"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

// Order is the customer's single purchase moving through the
// collection/processing/delivery pipeline. Totals are computed once at
// booking time and never change; cancellation is a status, not a deletion.
type Order struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	// The default tag makes gorm omit a zero order number on insert and read
	// the sequence-assigned value back, instead of writing a literal 0.
	OrderNumber int64      `gorm:"column:order_number;not null;default:nextval('order_number_seq');uniqueIndex:ux_orders_number"`
	CustomerID  uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	RunnerID    *uuid.UUID `gorm:"column:runner_id;type:uuid"`
	TailorID    *uuid.UUID `gorm:"column:tailor_id;type:uuid"`

	Status   enums.OrderStatus `gorm:"column:status;type:text;not null;default:'booked'"`
	Currency enums.Currency    `gorm:"column:currency;type:text;not null;default:'GBP'"`

	SubtotalCents    int `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int `gorm:"column:total_cents;not null"`

	CollectionDate *time.Time `gorm:"column:collection_date"`
	CollectionSlot *string    `gorm:"column:collection_slot"`

	DeliveryAddress types.Address `gorm:"column:delivery_address;type:jsonb;serializer:json"`

	// Version backs the optimistic check that pairs with the row lock taken
	// by every mutating path.
	Version int `gorm:"column:version;not null;default:0"`

	PaidAt       *time.Time `gorm:"column:paid_at"`
	CollectedAt  *time.Time `gorm:"column:collected_at"`
	ReadyAt      *time.Time `gorm:"column:ready_at"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`
	CancelReason *string    `gorm:"column:cancel_reason"`

	Items    []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payouts  []Payout             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline []OrderTimelineEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalsConsistent reports the booking-time invariant
// total == subtotal + delivery fee.
func (o Order) TotalsConsistent() bool {
	return o.TotalCents == o.SubtotalCents+o.DeliveryFeeCents
}

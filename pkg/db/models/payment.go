package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

// Payment records one checkout attempt against an order. An order may carry
// several rows across retried checkouts, but at most one ever reaches
// succeeded.
type Payment struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null"`

	CheckoutSessionID string  `gorm:"column:checkout_session_id;not null;uniqueIndex:ux_payments_session"`
	PaymentIntentID   *string `gorm:"column:payment_intent_id"`

	AmountCents   int `gorm:"column:amount_cents;not null"`
	RefundedCents int `gorm:"column:refunded_cents;not null;default:0"`

	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	FailureReason *string             `gorm:"column:failure_reason"`

	// Metadata carries the audit trail: refund reasons and the
	// partial-refund history.
	Metadata types.JSONMap `gorm:"column:metadata;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingRefundableCents returns how much of the captured amount can still
// be refunded.
func (p Payment) RemainingRefundableCents() int {
	remaining := p.AmountCents - p.RefundedCents
	if remaining < 0 {
		return 0
	}
	return remaining
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
)

// Payout is an owed-amount record for one tailor or runner on one completed
// order. The unique index keeps materialization idempotent per (order, user).
type Payout struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payouts_order_user"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_payouts_order_user"`

	Role        enums.ActorRole    `gorm:"column:role;type:text;not null"`
	AmountCents int                `gorm:"column:amount_cents;not null"`
	Status      enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	Method *enums.PayoutMethod `gorm:"column:method;type:text"`
	Notes  *string             `gorm:"column:notes"`
	PaidAt *time.Time          `gorm:"column:paid_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

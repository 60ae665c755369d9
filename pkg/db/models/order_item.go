package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
)

// OrderItem is a single catalog service captured by value at booking time.
// Later catalog price changes never alter historical orders.
type OrderItem struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null"`

	ServiceID      uuid.UUID `gorm:"column:service_id;type:uuid;not null"`
	ServiceName    string    `gorm:"column:service_name;not null"`
	BasePriceCents int       `gorm:"column:base_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	// PriceCents is the line total, already multiplied by quantity.
	PriceCents int `gorm:"column:price_cents;not null"`

	Status enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

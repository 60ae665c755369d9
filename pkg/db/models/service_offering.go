package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceOffering is a catalog entry. The engine reads base_price_cents at
// order-creation time only; items snapshot it by value.
type ServiceOffering struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	BasePriceCents int       `gorm:"column:base_price_cents;not null"`
	Active         bool      `gorm:"column:active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

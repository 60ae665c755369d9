package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
)

// OrderTimelineEntry is the append-only audit record written alongside every
// order mutation. Entries are never updated or deleted.
type OrderTimelineEntry struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_timeline_order"`

	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:text;not null"`

	ActorUserID *uuid.UUID      `gorm:"column:actor_user_id;type:uuid"`
	ActorRole   enums.ActorRole `gorm:"column:actor_role;type:text;not null"`

	// Override marks an administrative skip of the forward pipeline; the
	// reason is mandatory for those entries.
	Override bool    `gorm:"column:override;not null;default:false"`
	Reason   *string `gorm:"column:reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

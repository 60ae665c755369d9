package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
)

// User is the read-only slice of the identity directory this engine needs:
// who an actor is and which role authorizes them. Account management lives
// in the hiring/approval system, which only creates these rows.
type User struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email    string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name     string          `gorm:"column:name;not null"`
	Role     enums.ActorRole `gorm:"column:role;type:text;not null"`
	IsActive bool            `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

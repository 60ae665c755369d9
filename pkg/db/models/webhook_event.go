package models

import "time"

// WebhookEvent persists each processor event id that has been applied. The
// primary key makes replayed deliveries a detectable no-op, which is what
// keeps reconciliation safe under at-least-once delivery.
type WebhookEvent struct {
	EventID    string    `gorm:"column:event_id;primaryKey"`
	EventType  string    `gorm:"column:event_type;not null"`
	ReceivedAt time.Time `gorm:"column:received_at;autoCreateTime"`
}

package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
)

// Repository defines persistence operations for payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	// FindBySessionIDForUpdate locks the payment row for a reconciliation write.
	FindBySessionIDForUpdate(ctx context.Context, sessionID string) (*models.Payment, error)
	FindSucceededByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	// FindSucceededByOrderForUpdate locks the captured payment for a refund write.
	FindSucceededByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	// RecordWebhookEvent inserts the processor event id; it reports true when
	// the id was already present, which marks a replayed delivery.
	RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

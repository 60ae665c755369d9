package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

// Repository defines persistence operations for payout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	// FindByIDForUpdate locks the payout row for a settlement write.
	FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Payout, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error)
	Update(ctx context.Context, payoutID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PayoutList, error)
}

package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindForUpdate takes a row lock so concurrent writers to the same order
	// serialize at the database.
	FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	AppendTimeline(ctx context.Context, entry *models.OrderTimelineEntry) error
	ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListForRunner(ctx context.Context, runnerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListForTailor(ctx context.Context, tailorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

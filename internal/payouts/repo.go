package payouts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("id = ?", payoutID).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", payoutID).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error) {
	var list []models.Payout
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, payoutID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", payoutID).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*PayoutList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Payout
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := &PayoutList{}
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}.Encode()
	}
	result.Payouts = rows
	return result, nil
}

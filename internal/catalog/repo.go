package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByIDs returns the active offerings among the requested ids.
// Inactive or unknown ids are simply absent from the result; callers decide
// whether that is an error.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceOffering, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var offerings []models.ServiceOffering
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("active = ?", true).
		Find(&offerings).Error
	if err != nil {
		return nil, err
	}
	return offerings, nil
}

// ListActive returns all bookable offerings ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.ServiceOffering, error) {
	var offerings []models.ServiceOffering
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&offerings).Error
	if err != nil {
		return nil, err
	}
	return offerings, nil
}

// FindByID returns one offering regardless of active state.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceOffering, error) {
	var offering models.ServiceOffering
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&offering).Error
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

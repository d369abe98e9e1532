package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/backoffice/backend/internal/domain/integration"
)

// GormStoreRepository implements integration.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

var _ integration.StoreRepository = (*GormStoreRepository)(nil)

// FindByID finds a store by its ID with the platform preloaded
func (r *GormStoreRepository) FindByID(ctx context.Context, storeID int64) (*integration.Store, error) {
	var store integration.Store
	if err := r.db.WithContext(ctx).
		Preload("Platform").
		First(&store, "id_store = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrStoreNotFound
		}
		return nil, err
	}
	return &store, nil
}

// FindActive returns all active stores with their platforms preloaded
func (r *GormStoreRepository) FindActive(ctx context.Context) ([]integration.Store, error) {
	var stores []integration.Store
	if err := r.db.WithContext(ctx).
		Preload("Platform").
		Where("is_active = ?", true).
		Order("id_store").
		Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

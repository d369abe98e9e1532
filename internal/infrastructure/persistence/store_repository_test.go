package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/backoffice/backend/internal/domain/integration"
)

func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&integration.Platform{}, &integration.Store{}))
	return db
}

func TestGormStoreRepository_FindByID(t *testing.T) {
	db := setupStoreDB(t)
	repo := NewGormStoreRepository(db)

	platform := integration.Platform{Name: "PrestaShop"}
	require.NoError(t, db.Create(&platform).Error)
	store := integration.Store{
		IDPlatform: platform.IDPlatform,
		Name:       "Main shop",
		BaseURL:    "https://shop.example.com/api",
		APIKey:     "secret",
		IsActive:   true,
	}
	require.NoError(t, db.Create(&store).Error)

	t.Run("finds store with platform preloaded", func(t *testing.T) {
		found, err := repo.FindByID(context.Background(), store.IDStore)
		require.NoError(t, err)
		assert.Equal(t, "Main shop", found.Name)
		require.NotNil(t, found.Platform)
		assert.Equal(t, "PrestaShop", found.Platform.Name)
	})

	t.Run("returns ErrStoreNotFound for missing store", func(t *testing.T) {
		_, err := repo.FindByID(context.Background(), 9999)
		assert.ErrorIs(t, err, integration.ErrStoreNotFound)
	})
}

func TestGormStoreRepository_FindActive(t *testing.T) {
	db := setupStoreDB(t)
	repo := NewGormStoreRepository(db)

	platform := integration.Platform{Name: "PrestaShop"}
	require.NoError(t, db.Create(&platform).Error)
	require.NoError(t, db.Create(&integration.Store{
		IDPlatform: platform.IDPlatform, Name: "Active", BaseURL: "https://a.example.com", APIKey: "k", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&integration.Store{
		IDPlatform: platform.IDPlatform, Name: "Disabled", BaseURL: "https://b.example.com", APIKey: "k", IsActive: false,
	}).Error)

	stores, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "Active", stores[0].Name)
	require.NotNil(t, stores[0].Platform)
}

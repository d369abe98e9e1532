package syncapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
	"github.com/backoffice/backend/internal/domain/integration"
	"github.com/backoffice/backend/internal/infrastructure/cache"
)

// stubService is a canned EcommerceService for exercising the coordinator.
type stubService struct {
	cfg        integration.StoreConfig
	session    *integration.SessionResult
	sessionErr error
	lastIDs    map[integration.EntityType]int64
	products   []commerce.Product
	quantities int
	closed     bool
}

func (s *stubService) Config() integration.StoreConfig { return s.cfg }

func (s *stubService) SyncAllData(ctx context.Context) (*integration.SessionResult, error) {
	return s.session, s.sessionErr
}

func (s *stubService) SyncLanguages(ctx context.Context) ([]commerce.Language, error) {
	return nil, nil
}
func (s *stubService) SyncCountries(ctx context.Context) ([]commerce.Country, error) {
	return nil, nil
}
func (s *stubService) SyncBrands(ctx context.Context) ([]commerce.Brand, error)       { return nil, nil }
func (s *stubService) SyncCategories(ctx context.Context) ([]commerce.Category, error) { return nil, nil }
func (s *stubService) SyncCarriers(ctx context.Context) ([]commerce.Carrier, error)   { return nil, nil }
func (s *stubService) SyncProducts(ctx context.Context) ([]commerce.Product, error) {
	return s.products, nil
}
func (s *stubService) SyncCustomers(ctx context.Context) ([]commerce.Customer, error) { return nil, nil }
func (s *stubService) SyncPayments(ctx context.Context) ([]commerce.Payment, error)   { return nil, nil }
func (s *stubService) SyncAddresses(ctx context.Context) ([]commerce.Address, error)  { return nil, nil }
func (s *stubService) SyncOrders(ctx context.Context) ([]commerce.Order, error)       { return nil, nil }
func (s *stubService) SyncOrderDetails(ctx context.Context) ([]commerce.OrderDetail, error) {
	return nil, nil
}
func (s *stubService) SyncOrderStates(ctx context.Context) ([]commerce.OrderState, error) {
	return nil, nil
}
func (s *stubService) SyncQuantities(ctx context.Context) (int, error) { return s.quantities, nil }
func (s *stubService) SyncPrices(ctx context.Context) (int, error)     { return 0, nil }
func (s *stubService) LastImportedIDs(ctx context.Context) (map[integration.EntityType]int64, error) {
	return s.lastIDs, nil
}
func (s *stubService) Close() error {
	s.closed = true
	return nil
}

type stubFactory struct {
	svc             *stubService
	err             error
	calls           int
	lastIncremental bool
}

func (f *stubFactory) CreateService(ctx context.Context, storeID int64, incremental bool) (integration.EcommerceService, error) {
	f.calls++
	f.lastIncremental = incremental
	if f.err != nil {
		return nil, f.err
	}
	return f.svc, nil
}

func newTestService(svc *stubService) (*Service, *stubFactory, cache.WatermarkCache) {
	factory := &stubFactory{svc: svc}
	watermarks := cache.NewInMemoryWatermarkCache(time.Minute)
	return NewService(factory, watermarks, zap.NewNop()), factory, watermarks
}

func TestSyncStoreRefreshesWatermarkCache(t *testing.T) {
	ctx := context.Background()
	lastIDs := map[integration.EntityType]int64{integration.EntityProducts: 110}
	svc := &stubService{session: &integration.SessionResult{
		Status:      integration.SessionStatusSuccess,
		Incremental: true,
		LastIDs:     lastIDs,
	}}
	service, factory, watermarks := newTestService(svc)

	result, err := service.SyncStore(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, integration.SessionStatusSuccess, result.Status)
	assert.True(t, factory.lastIncremental)
	assert.True(t, svc.closed, "session is closed after the run")

	cached, ok, err := watermarks.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lastIDs, cached)
}

func TestSyncStoreFullRunInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc := &stubService{session: &integration.SessionResult{Status: integration.SessionStatusSuccess}}
	service, _, watermarks := newTestService(svc)

	require.NoError(t, watermarks.Set(ctx, 1, map[integration.EntityType]int64{integration.EntityOrders: 5}))

	_, err := service.SyncStore(ctx, 1, false)
	require.NoError(t, err)

	_, ok, err := watermarks.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale watermarks are dropped after a full run")
}

func TestSyncStoreFactoryErrorPropagates(t *testing.T) {
	factory := &stubFactory{err: integration.ErrStoreInactive}
	service := NewService(factory, cache.NewInMemoryWatermarkCache(time.Minute), zap.NewNop())

	_, err := service.SyncStore(context.Background(), 1, false)
	assert.ErrorIs(t, err, integration.ErrStoreInactive)
}

func TestSyncEntity(t *testing.T) {
	svc := &stubService{
		products:   []commerce.Product{{IDOrigin: 1}, {IDOrigin: 2}},
		quantities: 7,
	}
	service, _, _ := newTestService(svc)
	ctx := context.Background()

	t.Run("slice entity reports length", func(t *testing.T) {
		result, err := service.SyncEntity(ctx, 1, "products")
		require.NoError(t, err)
		assert.Equal(t, &EntityResult{Entity: "products", Processed: 2}, result)
	})

	t.Run("count entity reports count", func(t *testing.T) {
		result, err := service.SyncEntity(ctx, 1, "quantities")
		require.NoError(t, err)
		assert.Equal(t, 7, result.Processed)
	})

	t.Run("order states have a dedicated entry point", func(t *testing.T) {
		result, err := service.SyncEntity(ctx, 1, "order_states")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := service.SyncEntity(ctx, 1, "warehouses")
		assert.ErrorIs(t, err, ErrUnknownEntity)
		assert.True(t, svc.closed, "session is closed on the error path")
	})
}

func TestLastImportedIDs(t *testing.T) {
	ctx := context.Background()
	lastIDs := map[integration.EntityType]int64{integration.EntityProducts: 110}

	t.Run("cache hit avoids opening a session", func(t *testing.T) {
		service, factory, watermarks := newTestService(&stubService{})
		require.NoError(t, watermarks.Set(ctx, 1, lastIDs))

		ids, err := service.LastImportedIDs(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, lastIDs, ids)
		assert.Zero(t, factory.calls)
	})

	t.Run("cache miss queries and populates", func(t *testing.T) {
		service, factory, watermarks := newTestService(&stubService{lastIDs: lastIDs})

		ids, err := service.LastImportedIDs(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, lastIDs, ids)
		assert.Equal(t, 1, factory.calls)

		cached, ok, err := watermarks.Get(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, lastIDs, cached)
	})
}

func TestSyncStoreSessionError(t *testing.T) {
	svc := &stubService{sessionErr: errors.New("config vanished mid-session")}
	service, _, _ := newTestService(svc)

	_, err := service.SyncStore(context.Background(), 1, false)
	assert.Error(t, err)
	assert.True(t, svc.closed)
}

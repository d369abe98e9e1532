package syncapp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/integration"
	"github.com/backoffice/backend/internal/infrastructure/cache"
)

// ErrUnknownEntity is returned when a single-entity sync names an entity
// without a dedicated entry point.
var ErrUnknownEntity = errors.New("sync: unknown entity type")

// EntityResult is the outcome of a single-entity sync call.
type EntityResult struct {
	Entity    string `json:"entity"`
	Processed int    `json:"processed"`
}

// Service coordinates sync sessions for the HTTP layer and background jobs.
// Each call opens one session through the factory and closes it on every
// exit path.
type Service struct {
	factory    integration.ServiceFactory
	watermarks cache.WatermarkCache
	logger     *zap.Logger
}

// NewService creates a sync application service.
func NewService(factory integration.ServiceFactory, watermarks cache.WatermarkCache, logger *zap.Logger) *Service {
	return &Service{factory: factory, watermarks: watermarks, logger: logger}
}

// SyncStore runs a full or incremental synchronization for one store. The
// returned SessionResult is structured even on partial failure; an error
// return means the session could not run at all.
func (s *Service) SyncStore(ctx context.Context, storeID int64, incremental bool) (*integration.SessionResult, error) {
	svc, err := s.factory.CreateService(ctx, storeID, incremental)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	result, err := svc.SyncAllData(ctx)
	if err != nil {
		return nil, err
	}

	// A completed run changes the watermarks, so the cached snapshot is
	// refreshed or dropped. Cache trouble never fails the sync.
	if result.LastIDs != nil {
		if err := s.watermarks.Set(ctx, storeID, result.LastIDs); err != nil {
			s.logger.Warn("failed to refresh watermark cache", zap.Int64("store_id", storeID), zap.Error(err))
		}
	} else {
		if err := s.watermarks.Invalidate(ctx, storeID); err != nil {
			s.logger.Warn("failed to invalidate watermark cache", zap.Int64("store_id", storeID), zap.Error(err))
		}
	}

	return result, nil
}

// SyncEntity runs the dedicated entry point for one entity type on one
// store. Always a full fetch; incremental resumption applies to whole
// sessions only.
func (s *Service) SyncEntity(ctx context.Context, storeID int64, entity string) (*EntityResult, error) {
	svc, err := s.factory.CreateService(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	processed, err := runEntitySync(ctx, svc, entity)
	if err != nil {
		return nil, err
	}
	return &EntityResult{Entity: entity, Processed: processed}, nil
}

// LastImportedIDs returns the per-entity incremental watermarks for a store,
// read through the cache.
func (s *Service) LastImportedIDs(ctx context.Context, storeID int64) (map[integration.EntityType]int64, error) {
	if ids, ok, err := s.watermarks.Get(ctx, storeID); err == nil && ok {
		return ids, nil
	} else if err != nil {
		s.logger.Warn("watermark cache read failed", zap.Int64("store_id", storeID), zap.Error(err))
	}

	svc, err := s.factory.CreateService(ctx, storeID, true)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	ids, err := svc.LastImportedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.watermarks.Set(ctx, storeID, ids); err != nil {
		s.logger.Warn("failed to populate watermark cache", zap.Int64("store_id", storeID), zap.Error(err))
	}
	return ids, nil
}

func runEntitySync(ctx context.Context, svc integration.EcommerceService, entity string) (int, error) {
	switch integration.EntityType(entity) {
	case integration.EntityLanguages:
		return count(svc.SyncLanguages(ctx))
	case integration.EntityCountries:
		return count(svc.SyncCountries(ctx))
	case integration.EntityBrands:
		return count(svc.SyncBrands(ctx))
	case integration.EntityCategories:
		return count(svc.SyncCategories(ctx))
	case integration.EntityCarriers:
		return count(svc.SyncCarriers(ctx))
	case integration.EntityProducts:
		return count(svc.SyncProducts(ctx))
	case integration.EntityCustomers:
		return count(svc.SyncCustomers(ctx))
	case integration.EntityPayments:
		return count(svc.SyncPayments(ctx))
	case integration.EntityAddresses:
		return count(svc.SyncAddresses(ctx))
	case integration.EntityOrders:
		return count(svc.SyncOrders(ctx))
	case integration.EntityOrderDetails:
		return count(svc.SyncOrderDetails(ctx))
	}

	switch entity {
	case "order_states":
		return count(svc.SyncOrderStates(ctx))
	case "quantities":
		return svc.SyncQuantities(ctx)
	case "prices":
		return svc.SyncPrices(ctx)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}

func count[T any](items []T, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

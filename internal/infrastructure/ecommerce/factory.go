package ecommerce

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
	"github.com/backoffice/backend/internal/domain/integration"
)

// constructor builds a platform adapter from a validated store snapshot.
type constructor func(cfg integration.StoreConfig, repo commerce.SyncRepository, logger *zap.Logger, opts SyncOptions) integration.EcommerceService

// Factory opens sync sessions for configured stores. Adding a platform means
// registering one constructor; nothing else in the system references a
// concrete adapter.
type Factory struct {
	stores       integration.StoreRepository
	repo         commerce.SyncRepository
	logger       *zap.Logger
	defaults     SyncOptions
	constructors map[string]constructor
}

var _ integration.ServiceFactory = (*Factory)(nil)

// NewFactory creates a Factory with the built-in platform adapters
// registered. defaults supplies batch size, page size and client tuning for
// every session; the per-store incremental flag is set at CreateService time.
func NewFactory(stores integration.StoreRepository, repo commerce.SyncRepository, logger *zap.Logger, defaults SyncOptions) *Factory {
	f := &Factory{
		stores:       stores,
		repo:         repo,
		logger:       logger,
		defaults:     defaults,
		constructors: make(map[string]constructor),
	}
	f.Register(PlatformPrestaShop, func(cfg integration.StoreConfig, repo commerce.SyncRepository, logger *zap.Logger, opts SyncOptions) integration.EcommerceService {
		return NewPrestaShopService(cfg, repo, logger, opts)
	})
	return f
}

// Register binds a platform name (case-insensitive) to an adapter
// constructor, replacing any previous binding.
func (f *Factory) Register(platform string, build constructor) {
	f.constructors[strings.ToLower(platform)] = build
}

// SupportedPlatforms returns the registered platform names.
func (f *Factory) SupportedPlatforms() []string {
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	return names
}

// CreateService loads and validates the store, then opens a session with the
// adapter registered for its platform. Validation is strictly before any
// network activity: a missing, inactive or unsupported store never triggers
// an HTTP call.
func (f *Factory) CreateService(ctx context.Context, storeID int64, incremental bool) (integration.EcommerceService, error) {
	store, err := f.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	cfg, err := integration.NewStoreConfig(store)
	if err != nil {
		return nil, err
	}

	build, ok := f.constructors[cfg.PlatformName]
	if !ok {
		return nil, integration.ErrPlatformNotSupported
	}

	opts := f.defaults
	opts.Incremental = incremental

	f.logger.Info("opening sync session",
		zap.Int64("store_id", cfg.StoreID),
		zap.String("platform", cfg.PlatformName),
		zap.Bool("incremental", incremental),
	)
	return build(cfg, f.repo, f.logger, opts), nil
}

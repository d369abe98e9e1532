package integration

import (
	"context"

	"github.com/backoffice/backend/internal/domain/commerce"
)

// EcommerceService is the port every platform adapter implements. Each
// Sync method is an idempotent fetch-and-upsert for one entity type: safe to
// re-run, keyed by origin ID, and independent of the other entity types
// except where phase ordering expresses a true foreign-key dependency.
//
// A service instance is a session: it owns an HTTP client and a StoreConfig
// snapshot acquired at construction and released by Close. Calls after Close
// fail fast with ErrSessionClosed.
type EcommerceService interface {
	// Config returns the immutable store snapshot the session was opened with.
	Config() StoreConfig

	// SyncAllData runs the full phased synchronization and returns a
	// consolidated result. It returns a structured SessionResult even when
	// individual entities fail; only configuration-level problems surface
	// as errors.
	SyncAllData(ctx context.Context) (*SessionResult, error)

	SyncLanguages(ctx context.Context) ([]commerce.Language, error)
	SyncCountries(ctx context.Context) ([]commerce.Country, error)
	SyncBrands(ctx context.Context) ([]commerce.Brand, error)
	SyncCategories(ctx context.Context) ([]commerce.Category, error)
	SyncCarriers(ctx context.Context) ([]commerce.Carrier, error)
	SyncProducts(ctx context.Context) ([]commerce.Product, error)
	SyncCustomers(ctx context.Context) ([]commerce.Customer, error)
	SyncPayments(ctx context.Context) ([]commerce.Payment, error)
	SyncAddresses(ctx context.Context) ([]commerce.Address, error)
	SyncOrders(ctx context.Context) ([]commerce.Order, error)
	SyncOrderDetails(ctx context.Context) ([]commerce.OrderDetail, error)

	// SyncOrderStates refreshes the remote order-state dictionary. Invoked
	// best-effort after the main phases.
	SyncOrderStates(ctx context.Context) ([]commerce.OrderState, error)

	// SyncQuantities refreshes stock levels for already-synced products.
	SyncQuantities(ctx context.Context) (int, error)

	// SyncPrices refreshes prices for already-synced products.
	SyncPrices(ctx context.Context) (int, error)

	// LastImportedIDs returns the per-entity incremental watermarks.
	LastImportedIDs(ctx context.Context) (map[EntityType]int64, error)

	// Close releases the session's HTTP resources. Idempotent.
	Close() error
}

// ServiceFactory opens sync sessions. It is the single extension point for
// adding a platform backend: adapters register by platform name and callers
// never reference a concrete implementation.
type ServiceFactory interface {
	// CreateService loads the store, validates it, and returns the adapter
	// registered for its platform. Fails with ErrStoreNotFound,
	// ErrStoreInactive, ErrStoreMissingPlatform or ErrPlatformNotSupported
	// before any HTTP call is made.
	CreateService(ctx context.Context, storeID int64, incremental bool) (EcommerceService, error)
}

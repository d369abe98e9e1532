package ecommerce

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
	"github.com/backoffice/backend/internal/domain/integration"
)

// PlatformPrestaShop is the registry key for the PrestaShop adapter.
const PlatformPrestaShop = "prestashop"

const (
	defaultBatchSize = 5000
	defaultPageSize  = 1000

	dateLayout = "2006-01-02 15:04:05"
)

// Internal order-state labels. Remote states map onto these; anything
// unrecognized lands on StatePending.
const (
	StatePending   = "pending"
	StatePaid      = "paid"
	StateShipped   = "shipped"
	StateDelivered = "delivered"
	StateCancelled = "cancelled"
	StateRefunded  = "refunded"
	StateError     = "error"
)

// SyncOptions tunes one sync session.
type SyncOptions struct {
	Incremental bool
	BatchSize   int // rows per upsert chunk
	PageSize    int // rows per remote page
	Client      ClientConfig
}

// PrestaShopService synchronizes one PrestaShop store into the local schema.
// It implements integration.EcommerceService.
//
// A service is one session: it snapshots the store configuration at
// construction, owns its HTTP client, and is released by Close. Entity
// methods are idempotent; records reconcile by origin ID, platform-scoped
// where the table declares it.
type PrestaShopService struct {
	cfg       integration.StoreConfig
	client    *Client
	repo      commerce.SyncRepository
	logger    *zap.Logger
	sessionID string

	incremental bool
	batchSize   int
	pageSize    int

	// defaultLang is the origin ID of the first synced language, used to pick
	// a translation from multilanguage fields. Zero falls back to the first
	// non-empty translation.
	defaultLang atomic.Int64
}

var _ integration.EcommerceService = (*PrestaShopService)(nil)

// NewPrestaShopService opens a sync session for the given store snapshot.
func NewPrestaShopService(cfg integration.StoreConfig, repo commerce.SyncRepository, logger *zap.Logger, opts SyncOptions) *PrestaShopService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	clientCfg := opts.Client
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.APIKey = cfg.APIKey

	sessionID := uuid.NewString()
	return &PrestaShopService{
		cfg:         cfg,
		client:      NewClient(clientCfg, logger.With(zap.String("session_id", sessionID))),
		repo:        repo,
		logger:      logger.With(zap.String("session_id", sessionID), zap.Int64("store_id", cfg.StoreID)),
		sessionID:   sessionID,
		incremental: opts.Incremental,
		batchSize:   opts.BatchSize,
		pageSize:    opts.PageSize,
	}
}

// Config returns the immutable store snapshot the session was opened with.
func (s *PrestaShopService) Config() integration.StoreConfig { return s.cfg }

// Close releases the session's HTTP resources. Idempotent.
func (s *PrestaShopService) Close() error { return s.client.Close() }

// checkOpen fails fast after Close.
func (s *PrestaShopService) checkOpen() error {
	if s.client.Closed() {
		return integration.ErrSessionClosed
	}
	return nil
}

// watermark returns the incremental fetch floor for table: the highest origin
// ID already imported, or zero on full syncs.
func (s *PrestaShopService) watermark(ctx context.Context, table string) (int64, error) {
	if !s.incremental {
		return 0, nil
	}
	return s.repo.MaxOriginID(ctx, table, s.cfg.PlatformID, commerce.PlatformScoped(table))
}

// fetchPages walks a paginated resource listing. Pagination uses the
// limit=offset,count convention; lastID > 0 adds filter[id]=[lastID+1,] so
// incremental runs only see records newer than the watermark.
func fetchPages[R any, T any](ctx context.Context, s *PrestaShopService, endpoint, display string, lastID int64, items func(*R) []T) ([]T, error) {
	var all []T
	for offset := 0; ; offset += s.pageSize {
		params := url.Values{}
		params.Set("display", display)
		params.Set("limit", fmt.Sprintf("%d,%d", offset, s.pageSize))
		if lastID > 0 {
			params.Set("filter[id]", fmt.Sprintf("[%d,]", lastID+1))
		}

		var envelope R
		if err := s.client.GetJSON(ctx, endpoint, params, &envelope); err != nil {
			return nil, fmt.Errorf("fetching %s (offset %d): %w", endpoint, offset, err)
		}
		page := items(&envelope)
		all = append(all, page...)
		if len(page) < s.pageSize {
			return all, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Entity synchronizers
// ---------------------------------------------------------------------------

// SyncLanguages imports the remote language dictionary.
func (s *PrestaShopService) SyncLanguages(ctx context.Context) ([]commerce.Language, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableLanguages)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psLanguagesResponse](ctx, s, "languages", "full", last,
		func(r *psLanguagesResponse) []psLanguage { return r.Languages })
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.Language, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Language{
			IDOrigin: d.ID.Int64(),
			Name:     d.Name,
			IsoCode:  strings.ToLower(d.IsoCode),
		})
	}
	if len(rows) > 0 {
		s.defaultLang.CompareAndSwap(0, rows[0].IDOrigin)
	}
	if _, err := s.repo.UpsertLanguages(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncCountries imports the remote country dictionary.
func (s *PrestaShopService) SyncCountries(ctx context.Context) ([]commerce.Country, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableCountries)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psCountriesResponse](ctx, s, "countries", "full", last,
		func(r *psCountriesResponse) []psCountry { return r.Countries })
	if err != nil {
		return nil, err
	}

	lang := s.defaultLang.Load()
	rows := make([]commerce.Country, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Country{
			IDOrigin: d.ID.Int64(),
			Name:     d.Name.For(lang),
			IsoCode:  strings.ToUpper(d.IsoCode),
		})
	}
	if _, err := s.repo.UpsertCountries(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncBrands imports remote manufacturers as brands.
func (s *PrestaShopService) SyncBrands(ctx context.Context) ([]commerce.Brand, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableBrands)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psManufacturersResponse](ctx, s, "manufacturers", "full", last,
		func(r *psManufacturersResponse) []psManufacturer { return r.Manufacturers })
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.Brand, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Brand{IDOrigin: d.ID.Int64(), Name: d.Name})
	}
	if _, err := s.repo.UpsertBrands(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncCategories imports the remote category tree (flattened).
func (s *PrestaShopService) SyncCategories(ctx context.Context) ([]commerce.Category, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableCategories)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psCategoriesResponse](ctx, s, "categories", "full", last,
		func(r *psCategoriesResponse) []psCategory { return r.Categories })
	if err != nil {
		return nil, err
	}

	lang := s.defaultLang.Load()
	rows := make([]commerce.Category, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Category{IDOrigin: d.ID.Int64(), Name: d.Name.For(lang)})
	}
	if _, err := s.repo.UpsertCategories(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncCarriers imports the remote carrier dictionary.
func (s *PrestaShopService) SyncCarriers(ctx context.Context) ([]commerce.Carrier, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableCarriers)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psCarriersResponse](ctx, s, "carriers", "full", last,
		func(r *psCarriersResponse) []psCarrier { return r.Carriers })
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.Carrier, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Carrier{IDOrigin: d.ID.Int64(), Name: d.Name})
	}
	if _, err := s.repo.UpsertCarriers(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncProducts imports the remote catalog, resolving brand and category
// references to local IDs.
func (s *PrestaShopService) SyncProducts(ctx context.Context) ([]commerce.Product, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableProducts)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psProductsResponse](ctx, s, "products", "full", last,
		func(r *psProductsResponse) []psProduct { return r.Products })
	if err != nil {
		return nil, err
	}

	brandOrigins := make([]int64, 0, len(dtos))
	categoryOrigins := make([]int64, 0, len(dtos))
	for _, d := range dtos {
		if v := d.IDManufacturer.Int64(); v > 0 {
			brandOrigins = append(brandOrigins, v)
		}
		if v := d.IDCategoryDefault.Int64(); v > 0 {
			categoryOrigins = append(categoryOrigins, v)
		}
	}
	brands, err := s.repo.OriginToLocalIDs(ctx, commerce.TableBrands, brandOrigins, 0, false)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.OriginToLocalIDs(ctx, commerce.TableCategories, categoryOrigins, 0, false)
	if err != nil {
		return nil, err
	}

	lang := s.defaultLang.Load()
	rows := make([]commerce.Product, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Product{
			IDOrigin:   d.ID.Int64(),
			IDPlatform: s.cfg.PlatformID,
			IDCategory: categories[d.IDCategoryDefault.Int64()],
			IDBrand:    brands[d.IDManufacturer.Int64()],
			Name:       d.Name.For(lang),
			SKU:        d.Reference,
			Reference:  d.Reference,
			Price:      d.Price.Decimal,
			Weight:     d.Weight.Decimal,
			Active:     d.Active.Bool(),
		})
	}
	if _, err := s.repo.UpsertProducts(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncCustomers imports remote customer accounts.
func (s *PrestaShopService) SyncCustomers(ctx context.Context) ([]commerce.Customer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableCustomers)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psCustomersResponse](ctx, s, "customers", "full", last,
		func(r *psCustomersResponse) []psCustomer { return r.Customers })
	if err != nil {
		return nil, err
	}

	langOrigins := make([]int64, 0, len(dtos))
	for _, d := range dtos {
		if v := d.IDLang.Int64(); v > 0 {
			langOrigins = append(langOrigins, v)
		}
	}
	langs, err := s.repo.OriginToLocalIDs(ctx, commerce.TableLanguages, langOrigins, 0, false)
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.Customer, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Customer{
			IDOrigin:  d.ID.Int64(),
			IDLang:    langs[d.IDLang.Int64()],
			Firstname: d.Firstname,
			Lastname:  d.Lastname,
			Email:     strings.ToLower(strings.TrimSpace(d.Email)),
			Company:   d.Company,
		})
	}
	if _, err := s.repo.UpsertCustomers(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncPayments discovers payment methods from remote orders. The platform has
// no payments resource; methods are named on each order, so the sync lists
// order id and payment columns and upserts the distinct names. IDOrigin keeps
// the highest order origin that used the method, which serves as the
// incremental watermark.
func (s *PrestaShopService) SyncPayments(ctx context.Context) ([]commerce.Payment, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TablePayments)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psOrdersResponse](ctx, s, "orders", "[id,payment]", last,
		func(r *psOrdersResponse) []psOrder { return r.Orders })
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int64)
	for _, d := range dtos {
		name := strings.TrimSpace(d.Payment)
		if d.ID.Int64() == 0 || name == "" {
			continue
		}
		if d.ID.Int64() > seen[name] {
			seen[name] = d.ID.Int64()
		}
	}
	rows := make([]commerce.Payment, 0, len(seen))
	for name, origin := range seen {
		rows = append(rows, commerce.Payment{IDOrigin: origin, Name: name})
	}
	if _, err := s.repo.UpsertPayments(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncAddresses imports remote delivery and invoice addresses, resolving
// customer and country references to local IDs.
func (s *PrestaShopService) SyncAddresses(ctx context.Context) ([]commerce.Address, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableAddresses)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psAddressesResponse](ctx, s, "addresses", "full", last,
		func(r *psAddressesResponse) []psAddress { return r.Addresses })
	if err != nil {
		return nil, err
	}

	customerOrigins := make([]int64, 0, len(dtos))
	countryOrigins := make([]int64, 0, len(dtos))
	for _, d := range dtos {
		if v := d.IDCustomer.Int64(); v > 0 {
			customerOrigins = append(customerOrigins, v)
		}
		if v := d.IDCountry.Int64(); v > 0 {
			countryOrigins = append(countryOrigins, v)
		}
	}
	customers, err := s.repo.OriginToLocalIDs(ctx, commerce.TableCustomers, customerOrigins, 0, false)
	if err != nil {
		return nil, err
	}
	countries, err := s.repo.OriginToLocalIDs(ctx, commerce.TableCountries, countryOrigins, 0, false)
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.Address, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.Address{
			IDOrigin:   d.ID.Int64(),
			IDPlatform: s.cfg.PlatformID,
			IDCustomer: customers[d.IDCustomer.Int64()],
			IDCountry:  countries[d.IDCountry.Int64()],
			Company:    d.Company,
			Firstname:  d.Firstname,
			Lastname:   d.Lastname,
			Address1:   d.Address1,
			Address2:   d.Address2,
			City:       d.City,
			Postcode:   d.Postcode,
			Phone:      d.Phone,
			VATNumber:  d.VATNumber,
		})
	}
	if _, err := s.repo.UpsertAddresses(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncOrders imports remote order headers. Customer, address, carrier, state
// and payment references resolve to local IDs; remote states not seen yet get
// a placeholder row so the reference is never dangling, refreshed later by
// SyncOrderStates.
func (s *PrestaShopService) SyncOrders(ctx context.Context) ([]commerce.Order, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableOrders)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psOrdersResponse](ctx, s, "orders", "full", last,
		func(r *psOrdersResponse) []psOrder { return r.Orders })
	if err != nil {
		return nil, err
	}

	customerOrigins := make([]int64, 0, len(dtos))
	addressOrigins := make([]int64, 0, 2*len(dtos))
	carrierOrigins := make([]int64, 0, len(dtos))
	stateOrigins := make([]int64, 0, len(dtos))
	for _, d := range dtos {
		if v := d.IDCustomer.Int64(); v > 0 {
			customerOrigins = append(customerOrigins, v)
		}
		if v := d.IDAddressDelivery.Int64(); v > 0 {
			addressOrigins = append(addressOrigins, v)
		}
		if v := d.IDAddressInvoice.Int64(); v > 0 {
			addressOrigins = append(addressOrigins, v)
		}
		if v := d.IDCarrier.Int64(); v > 0 {
			carrierOrigins = append(carrierOrigins, v)
		}
		if v := d.CurrentState.Int64(); v > 0 {
			stateOrigins = append(stateOrigins, v)
		}
	}
	customers, err := s.repo.OriginToLocalIDs(ctx, commerce.TableCustomers, customerOrigins, 0, false)
	if err != nil {
		return nil, err
	}
	addresses, err := s.repo.OriginToLocalIDs(ctx, commerce.TableAddresses, addressOrigins, s.cfg.PlatformID, true)
	if err != nil {
		return nil, err
	}
	carriers, err := s.repo.OriginToLocalIDs(ctx, commerce.TableCarriers, carrierOrigins, 0, false)
	if err != nil {
		return nil, err
	}
	states, err := s.resolveOrderStates(ctx, stateOrigins)
	if err != nil {
		return nil, err
	}

	payments := make(map[string]int64)
	for _, d := range dtos {
		name := strings.TrimSpace(d.Payment)
		if name == "" {
			continue
		}
		if _, ok := payments[name]; ok {
			continue
		}
		id, perr := s.repo.PaymentIDByName(ctx, name)
		if perr != nil {
			return nil, perr
		}
		payments[name] = id
	}

	rows := make([]commerce.Order, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		paymentDate := parseDate(d.InvoiceDate)
		rows = append(rows, commerce.Order{
			IDOrigin:          d.ID.Int64(),
			IDPlatform:        s.cfg.PlatformID,
			Reference:         d.Reference,
			IDCustomer:        customers[d.IDCustomer.Int64()],
			IDAddressDelivery: addresses[d.IDAddressDelivery.Int64()],
			IDAddressInvoice:  addresses[d.IDAddressInvoice.Int64()],
			IDPayment:         payments[strings.TrimSpace(d.Payment)],
			IDCarrier:         carriers[d.IDCarrier.Int64()],
			IDOrderState:      states[d.CurrentState.Int64()],
			IsPayed:           paymentDate != nil,
			PaymentDate:       paymentDate,
			TotalPrice:        d.TotalPaid.Decimal,
			TotalDiscounts:    d.TotalDiscounts.Decimal,
			DateAdd:           parseDateOr(d.DateAdd, time.Now()),
		})
	}
	if _, err := s.repo.UpsertOrders(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// resolveOrderStates maps remote state origin IDs to local order-state IDs,
// creating placeholder rows for states the dictionary has not seen yet.
func (s *PrestaShopService) resolveOrderStates(ctx context.Context, origins []int64) (map[int64]int64, error) {
	states, err := s.repo.OriginToLocalIDs(ctx, commerce.TableOrderStates, origins, s.cfg.PlatformID, true)
	if err != nil {
		return nil, err
	}

	var missing []commerce.OrderState
	added := make(map[int64]bool)
	for _, origin := range origins {
		if _, ok := states[origin]; ok || added[origin] {
			continue
		}
		added[origin] = true
		missing = append(missing, commerce.OrderState{
			IDOrigin:      origin,
			IDPlatform:    s.cfg.PlatformID,
			Name:          fmt.Sprintf("state_%d", origin),
			InternalState: StatePending,
		})
	}
	if len(missing) == 0 {
		return states, nil
	}
	if _, err := s.repo.UpsertOrderStates(ctx, missing, s.batchSize); err != nil {
		return nil, err
	}
	return s.repo.OriginToLocalIDs(ctx, commerce.TableOrderStates, origins, s.cfg.PlatformID, true)
}

// SyncOrderDetails imports remote order lines, resolving order and product
// references to local IDs.
func (s *PrestaShopService) SyncOrderDetails(ctx context.Context) ([]commerce.OrderDetail, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	last, err := s.watermark(ctx, commerce.TableOrderDetails)
	if err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psOrderDetailsResponse](ctx, s, "order_details", "full", last,
		func(r *psOrderDetailsResponse) []psOrderDetail { return r.OrderDetails })
	if err != nil {
		return nil, err
	}

	orderOrigins := make([]int64, 0, len(dtos))
	productOrigins := make([]int64, 0, len(dtos))
	for _, d := range dtos {
		if v := d.IDOrder.Int64(); v > 0 {
			orderOrigins = append(orderOrigins, v)
		}
		if v := d.ProductID.Int64(); v > 0 {
			productOrigins = append(productOrigins, v)
		}
	}
	orders, err := s.repo.OriginToLocalIDs(ctx, commerce.TableOrders, orderOrigins, s.cfg.PlatformID, true)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.OriginToLocalIDs(ctx, commerce.TableProducts, productOrigins, s.cfg.PlatformID, true)
	if err != nil {
		return nil, err
	}

	rows := make([]commerce.OrderDetail, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		rows = append(rows, commerce.OrderDetail{
			IDOrigin:         d.ID.Int64(),
			IDPlatform:       s.cfg.PlatformID,
			IDOrder:          orders[d.IDOrder.Int64()],
			IDProduct:        products[d.ProductID.Int64()],
			ProductName:      d.ProductName,
			ProductReference: d.ProductReference,
			ProductQty:       d.ProductQuantity.Int64(),
			ProductPrice:     d.UnitPriceTaxIncl.Decimal,
			ReductionPercent: d.ReductionPercent.Decimal,
		})
	}
	if _, err := s.repo.UpsertOrderDetails(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncOrderStates refreshes the remote order-state dictionary and its mapping
// to internal state labels. Always a full fetch: the dictionary is small and
// existing states change names and flags in place.
func (s *PrestaShopService) SyncOrderStates(ctx context.Context) ([]commerce.OrderState, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	dtos, err := fetchPages[psOrderStatesResponse](ctx, s, "order_states", "full", 0,
		func(r *psOrderStatesResponse) []psOrderState { return r.OrderStates })
	if err != nil {
		return nil, err
	}

	lang := s.defaultLang.Load()
	rows := make([]commerce.OrderState, 0, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		name := d.Name.For(lang)
		rows = append(rows, commerce.OrderState{
			IDOrigin:      d.ID.Int64(),
			IDPlatform:    s.cfg.PlatformID,
			Name:          name,
			InternalState: mapOrderState(name, d.Paid.Bool(), d.Shipped.Bool(), d.Delivery.Bool()),
		})
	}
	if _, err := s.repo.UpsertOrderStates(ctx, rows, s.batchSize); err != nil {
		return nil, err
	}
	return rows, nil
}

// mapOrderState translates a remote state into the internal label. Flags win
// over name keywords; unknown states stay pending.
func mapOrderState(name string, paid, shipped, delivery bool) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "cancel"):
		return StateCancelled
	case strings.Contains(lower, "refund"):
		return StateRefunded
	case strings.Contains(lower, "error"):
		return StateError
	case delivery || strings.Contains(lower, "delivered"):
		return StateDelivered
	case shipped || strings.Contains(lower, "shipped"):
		return StateShipped
	case paid || strings.Contains(lower, "payment accepted") || strings.Contains(lower, "paid"):
		return StatePaid
	default:
		return StatePending
	}
}

// SyncQuantities refreshes stock levels for already-synced products from the
// remote stock availability resource.
func (s *PrestaShopService) SyncQuantities(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	dtos, err := fetchPages[psStockAvailablesResponse](ctx, s, "stock_availables", "[id,id_product,quantity]", 0,
		func(r *psStockAvailablesResponse) []psStockAvailable { return r.StockAvailables })
	if err != nil {
		return 0, err
	}

	quantities := make(map[int64]int64, len(dtos))
	for _, d := range dtos {
		if d.IDProduct.Int64() == 0 {
			continue
		}
		quantities[d.IDProduct.Int64()] += d.Quantity.Int64()
	}
	return s.repo.UpdateProductQuantities(ctx, s.cfg.PlatformID, quantities)
}

// SyncPrices refreshes prices for already-synced products.
func (s *PrestaShopService) SyncPrices(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	dtos, err := fetchPages[psProductsResponse](ctx, s, "products", "[id,price]", 0,
		func(r *psProductsResponse) []psProduct { return r.Products })
	if err != nil {
		return 0, err
	}

	prices := make(map[int64]string, len(dtos))
	for _, d := range dtos {
		if d.ID.Int64() == 0 {
			continue
		}
		prices[d.ID.Int64()] = d.Price.String()
	}
	return s.repo.UpdateProductPrices(ctx, s.cfg.PlatformID, prices)
}

// LastImportedIDs returns the per-entity incremental watermarks from the
// local tables.
func (s *PrestaShopService) LastImportedIDs(ctx context.Context) (map[integration.EntityType]int64, error) {
	lastIDs := make(map[integration.EntityType]int64)
	for _, entity := range integration.SyncedEntityTypes() {
		table := string(entity)
		max, err := s.repo.MaxOriginID(ctx, table, s.cfg.PlatformID, commerce.PlatformScoped(table))
		if err != nil {
			return nil, fmt.Errorf("reading last imported id for %s: %w", table, err)
		}
		lastIDs[entity] = max
	}
	return lastIDs, nil
}

// ---------------------------------------------------------------------------
// Full sync coordinator
// ---------------------------------------------------------------------------

// SyncAllData runs the phased synchronization. Base dictionaries sync first,
// then entities that reference them, then addresses, orders and order lines.
// Functions inside a phase run concurrently and a failed function never
// blocks its siblings or later phases. The order-state dictionary refresh at
// the end is best effort: a failure is logged and does not degrade the
// session result.
func (s *PrestaShopService) SyncAllData(ctx context.Context) (*integration.SessionResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.logger.Info("starting full sync",
		zap.String("platform", s.cfg.PlatformName),
		zap.Bool("incremental", s.incremental),
	)

	result := &integration.SessionResult{
		Incremental: s.incremental,
		StartTime:   time.Now(),
	}

	phases := []struct {
		name  string
		funcs []SyncFunc
	}{
		{"base_entities", []SyncFunc{
			syncFunc("sync_languages", integration.EntityLanguages, s.SyncLanguages),
			syncFunc("sync_countries", integration.EntityCountries, s.SyncCountries),
			syncFunc("sync_brands", integration.EntityBrands, s.SyncBrands),
			syncFunc("sync_categories", integration.EntityCategories, s.SyncCategories),
			syncFunc("sync_carriers", integration.EntityCarriers, s.SyncCarriers),
		}},
		{"dependent_entities", []SyncFunc{
			syncFunc("sync_products", integration.EntityProducts, s.SyncProducts),
			syncFunc("sync_customers", integration.EntityCustomers, s.SyncCustomers),
			syncFunc("sync_payments", integration.EntityPayments, s.SyncPayments),
		}},
		{"addresses", []SyncFunc{
			syncFunc("sync_addresses", integration.EntityAddresses, s.SyncAddresses),
		}},
		{"orders", []SyncFunc{
			syncFunc("sync_orders", integration.EntityOrders, s.SyncOrders),
		}},
		{"order_details", []SyncFunc{
			syncFunc("sync_order_details", integration.EntityOrderDetails, s.SyncOrderDetails),
		}},
	}

	for _, phase := range phases {
		result.AddPhase(RunPhase(ctx, s.logger, phase.name, phase.funcs))
	}

	if _, err := s.SyncOrderStates(ctx); err != nil {
		s.logger.Warn("order state sync failed", zap.Error(err))
	}

	if s.incremental {
		lastIDs, err := s.LastImportedIDs(ctx)
		if err != nil {
			s.logger.Warn("reading last imported ids failed", zap.Error(err))
		} else {
			result.LastIDs = lastIDs
		}
	}

	result.Finalize()
	s.logger.Info("completed full sync",
		zap.String("status", string(result.Status)),
		zap.Int("total_processed", result.TotalProcessed),
		zap.Int("total_errors", result.TotalErrors),
		zap.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

// syncFunc adapts a typed entity synchronizer to the phase runner contract.
func syncFunc[T any](name string, entity integration.EntityType, run func(ctx context.Context) ([]T, error)) SyncFunc {
	return SyncFunc{
		Name:   name,
		Entity: entity,
		Run: func(ctx context.Context) (int, error) {
			rows, err := run(ctx)
			if err != nil {
				return 0, err
			}
			return len(rows), nil
		},
	}
}

// parseDate parses a platform timestamp, returning nil for empty or zero
// dates ("0000-00-00 00:00:00").
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// parseDateOr parses a platform timestamp, falling back to def.
func parseDateOr(s string, def time.Time) time.Time {
	if t := parseDate(s); t != nil {
		return *t
	}
	return def
}

package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
	"github.com/backoffice/backend/internal/domain/integration"
)

// fakeSyncRepo is an in-memory commerce.SyncRepository. Upserts record rows,
// lookups answer from seeded maps.
type fakeSyncRepo struct {
	mu sync.Mutex

	upserted   map[string][]any // table -> rows, in call order
	maxOrigins map[string]int64 // table -> watermark
	localIDs   map[string]map[int64]int64
	paymentIDs map[string]int64
	nextID     int64

	quantities map[int64]int64
	prices     map[int64]string
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{
		upserted:   make(map[string][]any),
		maxOrigins: make(map[string]int64),
		localIDs:   make(map[string]map[int64]int64),
		paymentIDs: make(map[string]int64),
		nextID:     1,
	}
}

var _ commerce.SyncRepository = (*fakeSyncRepo)(nil)

func (f *fakeSyncRepo) seedLocalIDs(table string, origins map[int64]int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localIDs[table] = origins
}

func (f *fakeSyncRepo) rows(table string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserted[table]
}

func record[T any](f *fakeSyncRepo, table string, rows []T) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.upserted[table] = append(f.upserted[table], r)
	}
	return len(rows), nil
}

func (f *fakeSyncRepo) UpsertLanguages(ctx context.Context, rows []commerce.Language, batchSize int) (int, error) {
	return record(f, commerce.TableLanguages, rows)
}

func (f *fakeSyncRepo) UpsertCountries(ctx context.Context, rows []commerce.Country, batchSize int) (int, error) {
	return record(f, commerce.TableCountries, rows)
}

func (f *fakeSyncRepo) UpsertBrands(ctx context.Context, rows []commerce.Brand, batchSize int) (int, error) {
	return record(f, commerce.TableBrands, rows)
}

func (f *fakeSyncRepo) UpsertCategories(ctx context.Context, rows []commerce.Category, batchSize int) (int, error) {
	return record(f, commerce.TableCategories, rows)
}

func (f *fakeSyncRepo) UpsertCarriers(ctx context.Context, rows []commerce.Carrier, batchSize int) (int, error) {
	return record(f, commerce.TableCarriers, rows)
}

func (f *fakeSyncRepo) UpsertProducts(ctx context.Context, rows []commerce.Product, batchSize int) (int, error) {
	return record(f, commerce.TableProducts, rows)
}

func (f *fakeSyncRepo) UpsertCustomers(ctx context.Context, rows []commerce.Customer, batchSize int) (int, error) {
	return record(f, commerce.TableCustomers, rows)
}

func (f *fakeSyncRepo) UpsertPayments(ctx context.Context, rows []commerce.Payment, batchSize int) (int, error) {
	return record(f, commerce.TablePayments, rows)
}

func (f *fakeSyncRepo) UpsertAddresses(ctx context.Context, rows []commerce.Address, batchSize int) (int, error) {
	return record(f, commerce.TableAddresses, rows)
}

func (f *fakeSyncRepo) UpsertOrders(ctx context.Context, rows []commerce.Order, batchSize int) (int, error) {
	return record(f, commerce.TableOrders, rows)
}

func (f *fakeSyncRepo) UpsertOrderDetails(ctx context.Context, rows []commerce.OrderDetail, batchSize int) (int, error) {
	return record(f, commerce.TableOrderDetails, rows)
}

func (f *fakeSyncRepo) UpsertOrderStates(ctx context.Context, rows []commerce.OrderState, batchSize int) (int, error) {
	f.mu.Lock()
	if f.localIDs[commerce.TableOrderStates] == nil {
		f.localIDs[commerce.TableOrderStates] = make(map[int64]int64)
	}
	for _, r := range rows {
		if _, ok := f.localIDs[commerce.TableOrderStates][r.IDOrigin]; !ok {
			f.localIDs[commerce.TableOrderStates][r.IDOrigin] = 1000 + r.IDOrigin
		}
	}
	f.mu.Unlock()
	return record(f, commerce.TableOrderStates, rows)
}

func (f *fakeSyncRepo) MaxOriginID(ctx context.Context, table string, platformID int64, platformScoped bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxOrigins[table], nil
}

func (f *fakeSyncRepo) ExistingOrigins(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]bool)
	for _, o := range origins {
		if _, ok := f.localIDs[table][o]; ok {
			out[o] = true
		}
	}
	return out, nil
}

func (f *fakeSyncRepo) ExistingKeys(ctx context.Context, table, column string, values []int64, platformID int64, platformScoped bool) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func (f *fakeSyncRepo) ExistingStrings(ctx context.Context, table, column string, values []string, platformID int64, platformScoped bool) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (f *fakeSyncRepo) OriginToLocalIDs(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]int64)
	for _, o := range origins {
		if local, ok := f.localIDs[table][o]; ok {
			out[o] = local
		}
	}
	return out, nil
}

func (f *fakeSyncRepo) PaymentIDByName(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.paymentIDs[name]; ok {
		return id, nil
	}
	f.nextID++
	f.paymentIDs[name] = f.nextID
	return f.nextID, nil
}

func (f *fakeSyncRepo) HasRows(ctx context.Context, table string, platformID int64, platformScoped bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted[table]) > 0 || len(f.localIDs[table]) > 0, nil
}

func (f *fakeSyncRepo) UpdateProductQuantities(ctx context.Context, platformID int64, quantities map[int64]int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quantities = quantities
	return len(quantities), nil
}

func (f *fakeSyncRepo) UpdateProductPrices(ctx context.Context, platformID int64, prices map[int64]string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = prices
	return len(prices), nil
}

func (f *fakeSyncRepo) InsertRows(ctx context.Context, rows any, batchSize int) (int, error) {
	return 0, nil
}

// prestashopStub serves canned JSON per resource path and records the query
// of the last request per resource.
func prestashopStub(t *testing.T, responses map[string]string) (*httptest.Server, *sync.Map) {
	t.Helper()
	var queries sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Path[1:]
		queries.Store(resource, r.URL.Query())
		body, ok := responses[resource]
		if !ok {
			body = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	return server, &queries
}

func newTestService(repo commerce.SyncRepository, baseURL string, incremental bool) *PrestaShopService {
	cfg := integration.StoreConfig{
		StoreID:      1,
		PlatformID:   7,
		PlatformName: PlatformPrestaShop,
		BaseURL:      baseURL,
		APIKey:       "key",
	}
	svc := NewPrestaShopService(cfg, repo, zap.NewNop(), SyncOptions{
		Incremental: incremental,
		Client:      ClientConfig{PolitenessDelay: -1},
	})
	svc.client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func lastQuery(t *testing.T, queries *sync.Map, resource string) url.Values {
	t.Helper()
	v, ok := queries.Load(resource)
	require.True(t, ok, "no request recorded for %s", resource)
	return v.(url.Values)
}

func TestSyncLanguagesExcludesZeroOrigin(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"languages": `{"languages":[
			{"id":"1","name":"English","iso_code":"EN"},
			{"id":0,"name":"Ghost","iso_code":"xx"},
			{"id":"2","name":"Deutsch","iso_code":"DE"}
		]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	rows, err := svc.SyncLanguages(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].IDOrigin)
	assert.Equal(t, "en", rows[0].IsoCode)
	assert.Equal(t, int64(2), rows[1].IDOrigin)
	assert.Len(t, repo.rows(commerce.TableLanguages), 2)
}

func TestSyncIsIdempotent(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"manufacturers": `{"manufacturers":[{"id":"3","name":"Acme"},{"id":"4","name":"Globex"}]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	first, err := svc.SyncBrands(context.Background())
	require.NoError(t, err)
	second, err := svc.SyncBrands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIncrementalSyncFiltersAboveWatermark(t *testing.T) {
	server, queries := prestashopStub(t, map[string]string{
		"products": `{"products":[]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	repo.maxOrigins[commerce.TableProducts] = 110

	svc := newTestService(repo, server.URL, true)
	defer svc.Close()

	_, err := svc.SyncProducts(context.Background())
	require.NoError(t, err)

	q := lastQuery(t, queries, "products")
	assert.Equal(t, "[111,]", q.Get("filter[id]"))
	assert.Equal(t, "JSON", q.Get("output_format"))
}

func TestFullSyncOmitsIDFilter(t *testing.T) {
	server, queries := prestashopStub(t, map[string]string{
		"products": `{"products":[]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	repo.maxOrigins[commerce.TableProducts] = 110

	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	_, err := svc.SyncProducts(context.Background())
	require.NoError(t, err)

	q := lastQuery(t, queries, "products")
	assert.Empty(t, q.Get("filter[id]"))
}

func TestSyncProductsResolvesBrandAndCategory(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"products": `{"products":[
			{"id":"100","id_manufacturer":"3","id_category_default":"8",
			 "name":[{"id":"1","value":"Widget"}],"reference":"SKU-100",
			 "price":"19.90","weight":"0.250","active":"1"}
		]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	repo.seedLocalIDs(commerce.TableBrands, map[int64]int64{3: 33})
	repo.seedLocalIDs(commerce.TableCategories, map[int64]int64{8: 88})

	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	rows, err := svc.SyncProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := rows[0]
	assert.Equal(t, int64(100), p.IDOrigin)
	assert.Equal(t, int64(7), p.IDPlatform)
	assert.Equal(t, int64(33), p.IDBrand)
	assert.Equal(t, int64(88), p.IDCategory)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "SKU-100", p.SKU)
	assert.Equal(t, "19.9", p.Price.String())
	assert.True(t, p.Active)
}

func TestSyncOrdersResolvesReferencesAndStates(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"orders": `{"orders":[
			{"id":"500","reference":"ORD-500","id_customer":"10",
			 "id_address_delivery":"20","id_address_invoice":"21",
			 "id_carrier":"2","current_state":"5","payment":"Bank wire",
			 "total_paid":"120.50","total_discounts":"0.00",
			 "date_add":"2026-08-01 10:00:00","invoice_date":"2026-08-02 09:30:00"}
		]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	repo.seedLocalIDs(commerce.TableCustomers, map[int64]int64{10: 110})
	repo.seedLocalIDs(commerce.TableAddresses, map[int64]int64{20: 220, 21: 221})
	repo.seedLocalIDs(commerce.TableCarriers, map[int64]int64{2: 12})

	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	rows, err := svc.SyncOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	o := rows[0]
	assert.Equal(t, int64(500), o.IDOrigin)
	assert.Equal(t, int64(110), o.IDCustomer)
	assert.Equal(t, int64(220), o.IDAddressDelivery)
	assert.Equal(t, int64(221), o.IDAddressInvoice)
	assert.Equal(t, int64(12), o.IDCarrier)
	assert.NotZero(t, o.IDPayment)
	assert.True(t, o.IsPayed)
	require.NotNil(t, o.PaymentDate)
	assert.Equal(t, "120.5", o.TotalPrice.String())

	// State 5 was unknown: a placeholder row must exist and be referenced.
	assert.Equal(t, int64(1005), o.IDOrderState)
	states := repo.rows(commerce.TableOrderStates)
	require.Len(t, states, 1)
	assert.Equal(t, StatePending, states[0].(commerce.OrderState).InternalState)
}

func TestSyncPaymentsDiscoversMethodsFromOrders(t *testing.T) {
	server, queries := prestashopStub(t, map[string]string{
		"orders": `{"orders":[
			{"id":"1","payment":"Bank wire"},
			{"id":"2","payment":"Bank wire"},
			{"id":"3","payment":"Cash on delivery"},
			{"id":0,"payment":"Ghost"}
		]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	rows, err := svc.SyncPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byName := make(map[string]int64)
	for _, p := range rows {
		byName[p.Name] = p.IDOrigin
	}
	assert.Equal(t, int64(2), byName["Bank wire"], "watermark is the highest order that used the method")
	assert.Equal(t, int64(3), byName["Cash on delivery"])

	q := lastQuery(t, queries, "orders")
	assert.Equal(t, "[id,payment]", q.Get("display"))
}

func TestSyncQuantitiesAggregatesStock(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"stock_availables": `{"stock_availables":[
			{"id":"1","id_product":"100","quantity":"5"},
			{"id":"2","id_product":"100","quantity":"3"},
			{"id":"3","id_product":"101","quantity":"7"},
			{"id":"4","id_product":0,"quantity":"9"}
		]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	n, err := svc.SyncQuantities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[int64]int64{100: 8, 101: 7}, repo.quantities)
}

func TestLastImportedIDs(t *testing.T) {
	repo := newFakeSyncRepo()
	repo.maxOrigins[commerce.TableProducts] = 110
	repo.maxOrigins[commerce.TableOrders] = 500

	svc := newTestService(repo, "http://127.0.0.1:1", false)
	defer svc.Close()

	ids, err := svc.LastImportedIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(110), ids[integration.EntityProducts])
	assert.Equal(t, int64(500), ids[integration.EntityOrders])
	assert.Equal(t, int64(0), ids[integration.EntityLanguages])
	assert.Len(t, ids, len(integration.SyncedEntityTypes()))
}

func TestSyncAllDataFullRun(t *testing.T) {
	server, _ := prestashopStub(t, map[string]string{
		"languages":     `{"languages":[{"id":"1","name":"English","iso_code":"en"}]}`,
		"countries":     `{"countries":[{"id":"6","name":"Spain","iso_code":"ES"}]}`,
		"manufacturers": `{"manufacturers":[{"id":"3","name":"Acme"}]}`,
		"categories":    `{"categories":[{"id":"8","name":"Widgets"}]}`,
		"carriers":      `{"carriers":[{"id":"2","name":"Courier"}]}`,
		"products":      `{"products":[{"id":"100","name":"Widget","reference":"SKU-100","price":"19.90","active":"1"}]}`,
		"customers":     `{"customers":[{"id":"10","firstname":"Ada","lastname":"Lovelace","email":"ADA@example.com"}]}`,
		"addresses":     `{"addresses":[{"id":"20","id_customer":"10","id_country":"6","city":"Madrid"}]}`,
		"orders":        `{"orders":[{"id":"500","id_customer":"10","current_state":"5","payment":"Bank wire","total_paid":"120.50","date_add":"2026-08-01 10:00:00"}]}`,
		"order_details": `{"order_details":[{"id":"900","id_order":"500","product_id":"100","product_quantity":"2","unit_price_tax_incl":"60.25"}]}`,
		"order_states":  `{"order_states":[{"id":"5","name":"Payment accepted","paid":"1"}]}`,
	})
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	result, err := svc.SyncAllData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, integration.SessionStatusSuccess, result.Status)
	assert.False(t, result.Incremental)
	assert.Nil(t, result.LastIDs)
	assert.Zero(t, result.TotalErrors)
	require.Len(t, result.Phases, 5)
	assert.Equal(t, "base_entities", result.Phases[0].Phase)
	assert.Equal(t, "order_details", result.Phases[4].Phase)

	// One record per entity plus the payment discovered from the order.
	assert.Len(t, repo.rows(commerce.TableOrders), 1)
	assert.Len(t, repo.rows(commerce.TableOrderDetails), 1)
	assert.NotEmpty(t, repo.rows(commerce.TablePayments))

	// Best-effort state refresh ran after the phases.
	states := repo.rows(commerce.TableOrderStates)
	last := states[len(states)-1].(commerce.OrderState)
	assert.Equal(t, "Payment accepted", last.Name)
	assert.Equal(t, StatePaid, last.InternalState)
}

func TestSyncAllDataPartialOnEntityFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/customers" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	repo := newFakeSyncRepo()
	svc := newTestService(repo, server.URL, false)
	defer svc.Close()

	result, err := svc.SyncAllData(context.Background())
	require.NoError(t, err, "entity failures are data, not errors")
	assert.Equal(t, integration.SessionStatusPartial, result.Status)
	assert.Equal(t, 1, result.TotalErrors)
	require.Len(t, result.Phases, 5, "later phases still run")
}

func TestSyncAllDataIncrementalReportsLastIDs(t *testing.T) {
	server, _ := prestashopStub(t, nil)
	defer server.Close()

	repo := newFakeSyncRepo()
	repo.maxOrigins[commerce.TableProducts] = 110

	svc := newTestService(repo, server.URL, true)
	defer svc.Close()

	result, err := svc.SyncAllData(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Incremental)
	require.NotNil(t, result.LastIDs)
	assert.Equal(t, int64(110), result.LastIDs[integration.EntityProducts])
}

func TestServiceFailsFastAfterClose(t *testing.T) {
	repo := newFakeSyncRepo()
	svc := newTestService(repo, "http://127.0.0.1:1", false)
	require.NoError(t, svc.Close())

	_, err := svc.SyncLanguages(context.Background())
	assert.ErrorIs(t, err, integration.ErrSessionClosed)

	_, err = svc.SyncAllData(context.Background())
	assert.ErrorIs(t, err, integration.ErrSessionClosed)

	_, err = svc.SyncQuantities(context.Background())
	assert.ErrorIs(t, err, integration.ErrSessionClosed)
}

func TestMapOrderState(t *testing.T) {
	tests := []struct {
		name                    string
		stateName               string
		paid, shipped, delivery bool
		want                    string
	}{
		{"payment accepted", "Payment accepted", true, false, false, StatePaid},
		{"shipped flag", "On the way", false, true, false, StateShipped},
		{"delivered flag", "Done", false, false, true, StateDelivered},
		{"cancelled beats flags", "Canceled", true, true, false, StateCancelled},
		{"refund keyword", "Refunded", false, false, false, StateRefunded},
		{"payment error", "Payment error", false, false, false, StateError},
		{"unknown", "Awaiting check", false, false, false, StatePending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapOrderState(tt.stateName, tt.paid, tt.shipped, tt.delivery))
		})
	}
}

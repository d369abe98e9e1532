package commerce

import "context"

// SyncRepository is the persistence port used by the synchronization engine
// and the CSV import pipeline. Upserts reconcile by id_origin (plus
// id_platform on platform-scoped tables); reads used for validation are
// batched so a whole CSV batch costs one query per lookup.
type SyncRepository interface {
	// Upserts keyed by origin ID. Each call chunks writes by batchSize and
	// returns the number of rows written.
	UpsertLanguages(ctx context.Context, rows []Language, batchSize int) (int, error)
	UpsertCountries(ctx context.Context, rows []Country, batchSize int) (int, error)
	UpsertBrands(ctx context.Context, rows []Brand, batchSize int) (int, error)
	UpsertCategories(ctx context.Context, rows []Category, batchSize int) (int, error)
	UpsertCarriers(ctx context.Context, rows []Carrier, batchSize int) (int, error)
	UpsertProducts(ctx context.Context, rows []Product, batchSize int) (int, error)
	UpsertCustomers(ctx context.Context, rows []Customer, batchSize int) (int, error)
	UpsertPayments(ctx context.Context, rows []Payment, batchSize int) (int, error)
	UpsertAddresses(ctx context.Context, rows []Address, batchSize int) (int, error)
	UpsertOrders(ctx context.Context, rows []Order, batchSize int) (int, error)
	UpsertOrderDetails(ctx context.Context, rows []OrderDetail, batchSize int) (int, error)
	UpsertOrderStates(ctx context.Context, rows []OrderState, batchSize int) (int, error)

	// MaxOriginID returns the highest id_origin present in table, the
	// incremental-sync watermark. Zero when the table is empty.
	MaxOriginID(ctx context.Context, table string, platformID int64, platformScoped bool) (int64, error)

	// ExistingOrigins reports which of the given origin IDs already exist in
	// table, in a single batched query.
	ExistingOrigins(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]bool, error)

	// ExistingKeys reports which of the given values exist in table.column,
	// in a single batched query. Used for foreign-key validation.
	ExistingKeys(ctx context.Context, table, column string, values []int64, platformID int64, platformScoped bool) (map[int64]bool, error)

	// ExistingStrings reports which of the given string values exist in
	// table.column, batched. Used for uniqueness rules (emails, SKUs).
	// Matching is exact; callers normalize case before querying.
	ExistingStrings(ctx context.Context, table, column string, values []string, platformID int64, platformScoped bool) (map[string]bool, error)

	// OriginToLocalIDs resolves remote origin IDs to local primary keys.
	OriginToLocalIDs(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]int64, error)

	// PaymentIDByName resolves a payment method by name, creating it when
	// missing. Remote platforms identify payments by module name only.
	PaymentIDByName(ctx context.Context, name string) (int64, error)

	// HasRows reports whether table contains any row, used by the import
	// dependency gate.
	HasRows(ctx context.Context, table string, platformID int64, platformScoped bool) (bool, error)

	// UpdateProductQuantities applies remote stock levels keyed by product
	// origin ID.
	UpdateProductQuantities(ctx context.Context, platformID int64, quantities map[int64]int64) (int, error)

	// UpdateProductPrices applies remote prices keyed by product origin ID.
	UpdateProductPrices(ctx context.Context, platformID int64, prices map[int64]string) (int, error)

	// InsertRows appends pre-validated rows in chunks. rows must be a slice
	// of one of the commerce models. Insert-only: the CSV import gate has
	// already rejected duplicates.
	InsertRows(ctx context.Context, rows any, batchSize int) (int, error)
}

// PlatformScoped reports whether a table is reconciled by
// (id_origin, id_platform) rather than id_origin alone.
func PlatformScoped(table string) bool {
	switch table {
	case TableProducts, TableAddresses, TableOrders, TableOrderDetails, TableOrderStates:
		return true
	default:
		return false
	}
}

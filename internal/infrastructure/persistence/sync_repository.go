package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/backoffice/backend/internal/domain/commerce"
)

// lookupChunk bounds the size of IN lists in batched lookup queries.
const lookupChunk = 1000

// localIDColumns maps each synchronized table to its primary key column. It
// doubles as the whitelist of tables this repository will touch by name.
var localIDColumns = map[string]string{
	commerce.TableLanguages:    "id_lang",
	commerce.TableCountries:    "id_country",
	commerce.TableBrands:       "id_brand",
	commerce.TableCategories:   "id_category",
	commerce.TableCarriers:     "id_carrier",
	commerce.TableProducts:     "id_product",
	commerce.TableCustomers:    "id_customer",
	commerce.TablePayments:     "id_payment",
	commerce.TableAddresses:    "id_address",
	commerce.TableOrders:       "id_order",
	commerce.TableOrderDetails: "id_order_detail",
	commerce.TableOrderStates:  "id_order_state",
}

// GormSyncRepository implements commerce.SyncRepository using GORM.
// Upserts resolve conflicts on the origin key so re-running a sync is
// idempotent; lookups batch their IN lists so validation stays at one query
// per lookup regardless of batch size.
type GormSyncRepository struct {
	db *gorm.DB
}

// NewGormSyncRepository creates a new GormSyncRepository
func NewGormSyncRepository(db *gorm.DB) *GormSyncRepository {
	return &GormSyncRepository{db: db}
}

var _ commerce.SyncRepository = (*GormSyncRepository)(nil)

var (
	originKey = []clause.Column{{Name: "id_origin"}}
	scopedKey = []clause.Column{{Name: "id_origin"}, {Name: "id_platform"}}
)

// upsert writes rows in chunks, updating the listed columns when the
// conflict key already exists.
func upsert[T any](ctx context.Context, db *gorm.DB, rows []T, batchSize int, conflict []clause.Column, updates []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   conflict,
		DoUpdates: clause.AssignmentColumns(updates),
	}).CreateInBatches(rows, batchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertLanguages writes language rows keyed by id_origin
func (r *GormSyncRepository) UpsertLanguages(ctx context.Context, rows []commerce.Language, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey, []string{"name", "iso_code"})
}

// UpsertCountries writes country rows keyed by id_origin
func (r *GormSyncRepository) UpsertCountries(ctx context.Context, rows []commerce.Country, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey, []string{"name", "iso_code"})
}

// UpsertBrands writes brand rows keyed by id_origin
func (r *GormSyncRepository) UpsertBrands(ctx context.Context, rows []commerce.Brand, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey, []string{"name"})
}

// UpsertCategories writes category rows keyed by id_origin
func (r *GormSyncRepository) UpsertCategories(ctx context.Context, rows []commerce.Category, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey, []string{"name"})
}

// UpsertCarriers writes carrier rows keyed by id_origin
func (r *GormSyncRepository) UpsertCarriers(ctx context.Context, rows []commerce.Carrier, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey, []string{"name"})
}

// UpsertProducts writes product rows keyed by (id_origin, id_platform)
func (r *GormSyncRepository) UpsertProducts(ctx context.Context, rows []commerce.Product, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, scopedKey,
		[]string{"id_category", "id_brand", "name", "sku", "reference", "price", "weight", "active"})
}

// UpsertCustomers writes customer rows keyed by id_origin
func (r *GormSyncRepository) UpsertCustomers(ctx context.Context, rows []commerce.Customer, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, originKey,
		[]string{"id_lang", "firstname", "lastname", "email", "company"})
}

// UpsertPayments writes payment rows keyed by name; the origin watermark
// advances on conflict
func (r *GormSyncRepository) UpsertPayments(ctx context.Context, rows []commerce.Payment, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, []clause.Column{{Name: "name"}}, []string{"id_origin"})
}

// UpsertAddresses writes address rows keyed by (id_origin, id_platform)
func (r *GormSyncRepository) UpsertAddresses(ctx context.Context, rows []commerce.Address, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, scopedKey,
		[]string{"id_customer", "id_country", "company", "firstname", "lastname",
			"address1", "address2", "city", "postcode", "phone", "vat_number"})
}

// UpsertOrders writes order rows keyed by (id_origin, id_platform)
func (r *GormSyncRepository) UpsertOrders(ctx context.Context, rows []commerce.Order, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, scopedKey,
		[]string{"reference", "id_customer", "id_address_delivery", "id_address_invoice",
			"id_payment", "id_carrier", "id_order_state", "is_payed", "payment_date",
			"total_weight", "total_price", "total_discounts", "cash_on_delivery", "date_add"})
}

// UpsertOrderDetails writes order line rows keyed by (id_origin, id_platform)
func (r *GormSyncRepository) UpsertOrderDetails(ctx context.Context, rows []commerce.OrderDetail, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, scopedKey,
		[]string{"id_order", "id_product", "product_name", "product_reference",
			"product_qty", "product_price", "reduction_percent"})
}

// UpsertOrderStates writes order state rows keyed by (id_origin, id_platform)
func (r *GormSyncRepository) UpsertOrderStates(ctx context.Context, rows []commerce.OrderState, batchSize int) (int, error) {
	return upsert(ctx, r.db, rows, batchSize, scopedKey, []string{"name", "internal_state"})
}

// guardTable rejects table names outside the synchronized schema.
func guardTable(table string) error {
	if _, ok := localIDColumns[table]; !ok {
		return fmt.Errorf("persistence: unknown sync table %q", table)
	}
	return nil
}

// scoped narrows a table query to one platform when the table is
// platform-scoped.
func scoped(query *gorm.DB, platformID int64, platformScoped bool) *gorm.DB {
	if platformScoped {
		return query.Where("id_platform = ?", platformID)
	}
	return query
}

// MaxOriginID returns the highest id_origin in table, zero when empty
func (r *GormSyncRepository) MaxOriginID(ctx context.Context, table string, platformID int64, platformScoped bool) (int64, error) {
	if err := guardTable(table); err != nil {
		return 0, err
	}
	var max int64
	query := scoped(r.db.WithContext(ctx).Table(table), platformID, platformScoped)
	if err := query.Select("COALESCE(MAX(id_origin), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// chunk splits values into slices of at most lookupChunk entries, dropping
// duplicates first.
func chunk(values []int64) [][]int64 {
	seen := make(map[int64]bool, len(values))
	unique := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	var chunks [][]int64
	for len(unique) > lookupChunk {
		chunks = append(chunks, unique[:lookupChunk])
		unique = unique[lookupChunk:]
	}
	if len(unique) > 0 {
		chunks = append(chunks, unique)
	}
	return chunks
}

// ExistingOrigins reports which origin IDs already exist in table
func (r *GormSyncRepository) ExistingOrigins(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]bool, error) {
	return r.ExistingKeys(ctx, table, "id_origin", origins, platformID, platformScoped)
}

// ExistingKeys reports which values exist in table.column, batched
func (r *GormSyncRepository) ExistingKeys(ctx context.Context, table, column string, values []int64, platformID int64, platformScoped bool) (map[int64]bool, error) {
	if err := guardTable(table); err != nil {
		return nil, err
	}
	if column != "id_origin" && column != localIDColumns[table] {
		return nil, fmt.Errorf("persistence: unknown lookup column %q on %s", column, table)
	}

	out := make(map[int64]bool, len(values))
	for _, batch := range chunk(values) {
		var found []int64
		query := scoped(r.db.WithContext(ctx).Table(table), platformID, platformScoped).
			Where(column+" IN ?", batch)
		if err := query.Pluck(column, &found).Error; err != nil {
			return nil, err
		}
		for _, v := range found {
			out[v] = true
		}
	}
	return out, nil
}

// stringColumns whitelists the columns string uniqueness rules may query.
var stringColumns = map[string]map[string]bool{
	commerce.TableCustomers: {"email": true},
	commerce.TableProducts:  {"sku": true, "reference": true},
	commerce.TablePayments:  {"name": true},
}

// ExistingStrings reports which string values exist in table.column, batched
func (r *GormSyncRepository) ExistingStrings(ctx context.Context, table, column string, values []string, platformID int64, platformScoped bool) (map[string]bool, error) {
	if err := guardTable(table); err != nil {
		return nil, err
	}
	if !stringColumns[table][column] {
		return nil, fmt.Errorf("persistence: unknown lookup column %q on %s", column, table)
	}

	seen := make(map[string]bool, len(values))
	unique := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}

	out := make(map[string]bool, len(unique))
	for start := 0; start < len(unique); start += lookupChunk {
		end := start + lookupChunk
		if end > len(unique) {
			end = len(unique)
		}
		var found []string
		query := scoped(r.db.WithContext(ctx).Table(table), platformID, platformScoped).
			Where(column+" IN ?", unique[start:end])
		if err := query.Pluck(column, &found).Error; err != nil {
			return nil, err
		}
		for _, v := range found {
			out[v] = true
		}
	}
	return out, nil
}

// originLocal carries one origin-to-local mapping row.
type originLocal struct {
	IDOrigin int64 `gorm:"column:id_origin"`
	LocalID  int64 `gorm:"column:local_id"`
}

// OriginToLocalIDs resolves origin IDs to local primary keys, batched
func (r *GormSyncRepository) OriginToLocalIDs(ctx context.Context, table string, origins []int64, platformID int64, platformScoped bool) (map[int64]int64, error) {
	if err := guardTable(table); err != nil {
		return nil, err
	}

	out := make(map[int64]int64, len(origins))
	for _, batch := range chunk(origins) {
		var mappings []originLocal
		query := scoped(r.db.WithContext(ctx).Table(table), platformID, platformScoped).
			Select(fmt.Sprintf("id_origin, %s AS local_id", localIDColumns[table])).
			Where("id_origin IN ?", batch)
		if err := query.Scan(&mappings).Error; err != nil {
			return nil, err
		}
		for _, m := range mappings {
			out[m.IDOrigin] = m.LocalID
		}
	}
	return out, nil
}

// PaymentIDByName resolves a payment method by name, creating it when missing
func (r *GormSyncRepository) PaymentIDByName(ctx context.Context, name string) (int64, error) {
	var payment commerce.Payment
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		FirstOrCreate(&payment, commerce.Payment{Name: name}).Error
	if err != nil {
		return 0, err
	}
	return payment.IDPayment, nil
}

// HasRows reports whether table contains any row
func (r *GormSyncRepository) HasRows(ctx context.Context, table string, platformID int64, platformScoped bool) (bool, error) {
	if err := guardTable(table); err != nil {
		return false, err
	}
	var ids []int64
	query := scoped(r.db.WithContext(ctx).Table(table), platformID, platformScoped).Limit(1)
	if err := query.Pluck("id_origin", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// UpdateProductQuantities applies stock levels keyed by product origin ID
func (r *GormSyncRepository) UpdateProductQuantities(ctx context.Context, platformID int64, quantities map[int64]int64) (int, error) {
	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for origin, qty := range quantities {
			res := tx.Table(commerce.TableProducts).
				Where("id_origin = ? AND id_platform = ?", origin, platformID).
				Update("quantity", qty)
			if res.Error != nil {
				return res.Error
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UpdateProductPrices applies prices keyed by product origin ID
func (r *GormSyncRepository) UpdateProductPrices(ctx context.Context, platformID int64, prices map[int64]string) (int, error) {
	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for origin, price := range prices {
			res := tx.Table(commerce.TableProducts).
				Where("id_origin = ? AND id_platform = ?", origin, platformID).
				Update("price", price)
			if res.Error != nil {
				return res.Error
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// InsertRows appends pre-validated rows in chunks, insert-only
func (r *GormSyncRepository) InsertRows(ctx context.Context, rows any, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = lookupChunk
	}
	res := r.db.WithContext(ctx).CreateInBatches(rows, batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

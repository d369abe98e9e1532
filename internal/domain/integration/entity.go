package integration

import "strings"

// EntityType names one synchronized remote entity type. The values double as
// keys in last-imported-ID watermark maps and as CSV import entity names.
type EntityType string

const (
	EntityLanguages    EntityType = "languages"
	EntityCountries    EntityType = "countries"
	EntityBrands       EntityType = "brands"
	EntityCategories   EntityType = "categories"
	EntityCarriers     EntityType = "carriers"
	EntityProducts     EntityType = "products"
	EntityCustomers    EntityType = "customers"
	EntityPayments     EntityType = "payments"
	EntityAddresses    EntityType = "addresses"
	EntityOrders       EntityType = "orders"
	EntityOrderDetails EntityType = "order_details"
)

// SyncedEntityTypes returns every entity type in sync phase order: base
// entities first, then entities that depend on them, then order data.
func SyncedEntityTypes() []EntityType {
	return []EntityType{
		EntityLanguages, EntityCountries, EntityBrands, EntityCategories, EntityCarriers,
		EntityProducts, EntityCustomers, EntityPayments, EntityAddresses,
		EntityOrders, EntityOrderDetails,
	}
}

// IsValid reports whether t names a known entity type.
func (t EntityType) IsValid() bool {
	for _, v := range SyncedEntityTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// String returns the string representation of EntityType
func (t EntityType) String() string { return string(t) }

// TableLabel returns the human-readable label used in sync reports,
// e.g. "order_details" -> "Order Details".
func (t EntityType) TableLabel() string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

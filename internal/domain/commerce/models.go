package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names for the synchronized entity tables. Every table carries an
// id_origin column holding the identifier the record had on the remote
// platform; platform-scoped tables additionally carry id_platform, and the
// pair (id_origin, id_platform) is unique there.
const (
	TableLanguages    = "languages"
	TableCountries    = "countries"
	TableBrands       = "brands"
	TableCategories   = "categories"
	TableCarriers     = "carriers"
	TableProducts     = "products"
	TableCustomers    = "customers"
	TablePayments     = "payments"
	TableAddresses    = "addresses"
	TableOrders       = "orders"
	TableOrderDetails = "order_details"
	TableOrderStates  = "order_states"
)

// Language is a remote store language (global, keyed by id_origin alone).
type Language struct {
	IDLang   int64  `gorm:"column:id_lang;primaryKey;autoIncrement" json:"id_lang"`
	IDOrigin int64  `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	Name     string `gorm:"column:name;size:100;not null" json:"name"`
	IsoCode  string `gorm:"column:iso_code;size:5" json:"iso_code"`
}

// TableName returns the table name for Language
func (Language) TableName() string { return TableLanguages }

// Country is a remote country (global).
type Country struct {
	IDCountry int64  `gorm:"column:id_country;primaryKey;autoIncrement" json:"id_country"`
	IDOrigin  int64  `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	Name      string `gorm:"column:name;size:100;not null" json:"name"`
	IsoCode   string `gorm:"column:iso_code;size:5" json:"iso_code"`
}

// TableName returns the table name for Country
func (Country) TableName() string { return TableCountries }

// Brand is a remote manufacturer (global).
type Brand struct {
	IDBrand  int64  `gorm:"column:id_brand;primaryKey;autoIncrement" json:"id_brand"`
	IDOrigin int64  `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	Name     string `gorm:"column:name;size:200;not null" json:"name"`
}

// TableName returns the table name for Brand
func (Brand) TableName() string { return TableBrands }

// Category is a remote catalog category (global).
type Category struct {
	IDCategory int64  `gorm:"column:id_category;primaryKey;autoIncrement" json:"id_category"`
	IDOrigin   int64  `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	Name       string `gorm:"column:name;size:200;not null" json:"name"`
}

// TableName returns the table name for Category
func (Category) TableName() string { return TableCategories }

// Carrier is a remote shipping carrier (global).
type Carrier struct {
	IDCarrier int64  `gorm:"column:id_carrier;primaryKey;autoIncrement" json:"id_carrier"`
	IDOrigin  int64  `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	Name      string `gorm:"column:name;size:200;not null" json:"name"`
}

// TableName returns the table name for Carrier
func (Carrier) TableName() string { return TableCarriers }

// Payment is a payment method observed on remote orders (global, keyed by
// name). IDOrigin records the remote order that introduced the method and
// doubles as the incremental watermark for payment discovery.
type Payment struct {
	IDPayment int64  `gorm:"column:id_payment;primaryKey;autoIncrement" json:"id_payment"`
	IDOrigin  int64  `gorm:"column:id_origin;index" json:"id_origin"`
	Name      string `gorm:"column:name;size:200;not null;uniqueIndex" json:"name"`
}

// TableName returns the table name for Payment
func (Payment) TableName() string { return TablePayments }

// Product is a remote product (platform-scoped).
type Product struct {
	IDProduct  int64           `gorm:"column:id_product;primaryKey;autoIncrement" json:"id_product"`
	IDOrigin   int64           `gorm:"column:id_origin;not null;uniqueIndex:uq_products_origin_platform" json:"id_origin"`
	IDPlatform int64           `gorm:"column:id_platform;not null;uniqueIndex:uq_products_origin_platform" json:"id_platform"`
	IDCategory int64           `gorm:"column:id_category" json:"id_category"`
	IDBrand    int64           `gorm:"column:id_brand" json:"id_brand"`
	Name       string          `gorm:"column:name;size:500;not null" json:"name"`
	SKU        string          `gorm:"column:sku;size:100;index" json:"sku"`
	Reference  string          `gorm:"column:reference;size:100" json:"reference"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2)" json:"price"`
	Weight     decimal.Decimal `gorm:"column:weight;type:numeric(10,3)" json:"weight"`
	Quantity   int64           `gorm:"column:quantity" json:"quantity"`
	Active     bool            `gorm:"column:active;default:true" json:"active"`
	DateAdd    time.Time       `gorm:"column:date_add;autoCreateTime" json:"date_add"`
}

// TableName returns the table name for Product
func (Product) TableName() string { return TableProducts }

// Customer is a remote customer account (global).
type Customer struct {
	IDCustomer int64     `gorm:"column:id_customer;primaryKey;autoIncrement" json:"id_customer"`
	IDOrigin   int64     `gorm:"column:id_origin;uniqueIndex;not null" json:"id_origin"`
	IDLang     int64     `gorm:"column:id_lang" json:"id_lang"`
	Firstname  string    `gorm:"column:firstname;size:200" json:"firstname"`
	Lastname   string    `gorm:"column:lastname;size:200" json:"lastname"`
	Email      string    `gorm:"column:email;size:320;index" json:"email"`
	Company    string    `gorm:"column:company;size:200" json:"company"`
	DateAdd    time.Time `gorm:"column:date_add;autoCreateTime" json:"date_add"`
}

// TableName returns the table name for Customer
func (Customer) TableName() string { return TableCustomers }

// Address is a remote delivery/invoice address (platform-scoped).
type Address struct {
	IDAddress  int64  `gorm:"column:id_address;primaryKey;autoIncrement" json:"id_address"`
	IDOrigin   int64  `gorm:"column:id_origin;not null;uniqueIndex:uq_addresses_origin_platform" json:"id_origin"`
	IDPlatform int64  `gorm:"column:id_platform;not null;uniqueIndex:uq_addresses_origin_platform" json:"id_platform"`
	IDCustomer int64  `gorm:"column:id_customer;index" json:"id_customer"`
	IDCountry  int64  `gorm:"column:id_country" json:"id_country"`
	Company    string `gorm:"column:company;size:200" json:"company"`
	Firstname  string `gorm:"column:firstname;size:200" json:"firstname"`
	Lastname   string `gorm:"column:lastname;size:200" json:"lastname"`
	Address1   string `gorm:"column:address1;size:500" json:"address1"`
	Address2   string `gorm:"column:address2;size:500" json:"address2"`
	City       string `gorm:"column:city;size:200" json:"city"`
	Postcode   string `gorm:"column:postcode;size:20" json:"postcode"`
	Phone      string `gorm:"column:phone;size:50" json:"phone"`
	VATNumber  string `gorm:"column:vat_number;size:50" json:"vat_number"`
}

// TableName returns the table name for Address
func (Address) TableName() string { return TableAddresses }

// Order is a remote order header (platform-scoped).
type Order struct {
	IDOrder           int64           `gorm:"column:id_order;primaryKey;autoIncrement" json:"id_order"`
	IDOrigin          int64           `gorm:"column:id_origin;not null;uniqueIndex:uq_orders_origin_platform" json:"id_origin"`
	IDPlatform        int64           `gorm:"column:id_platform;not null;uniqueIndex:uq_orders_origin_platform" json:"id_platform"`
	Reference         string          `gorm:"column:reference;size:100;index" json:"reference"`
	IDCustomer        int64           `gorm:"column:id_customer;index" json:"id_customer"`
	IDAddressDelivery int64           `gorm:"column:id_address_delivery" json:"id_address_delivery"`
	IDAddressInvoice  int64           `gorm:"column:id_address_invoice" json:"id_address_invoice"`
	IDPayment         int64           `gorm:"column:id_payment" json:"id_payment"`
	IDCarrier         int64           `gorm:"column:id_carrier" json:"id_carrier"`
	IDOrderState      int64           `gorm:"column:id_order_state" json:"id_order_state"`
	IsPayed           bool            `gorm:"column:is_payed" json:"is_payed"`
	PaymentDate       *time.Time      `gorm:"column:payment_date" json:"payment_date,omitempty"`
	TotalWeight       decimal.Decimal `gorm:"column:total_weight;type:numeric(10,3)" json:"total_weight"`
	TotalPrice        decimal.Decimal `gorm:"column:total_price;type:numeric(12,2)" json:"total_price"`
	TotalDiscounts    decimal.Decimal `gorm:"column:total_discounts;type:numeric(12,2)" json:"total_discounts"`
	CashOnDelivery    decimal.Decimal `gorm:"column:cash_on_delivery;type:numeric(12,2)" json:"cash_on_delivery"`
	DateAdd           time.Time       `gorm:"column:date_add" json:"date_add"`
}

// TableName returns the table name for Order
func (Order) TableName() string { return TableOrders }

// OrderDetail is a remote order line (platform-scoped).
type OrderDetail struct {
	IDOrderDetail    int64           `gorm:"column:id_order_detail;primaryKey;autoIncrement" json:"id_order_detail"`
	IDOrigin         int64           `gorm:"column:id_origin;not null;uniqueIndex:uq_order_details_origin_platform" json:"id_origin"`
	IDPlatform       int64           `gorm:"column:id_platform;not null;uniqueIndex:uq_order_details_origin_platform" json:"id_platform"`
	IDOrder          int64           `gorm:"column:id_order;index" json:"id_order"`
	IDProduct        int64           `gorm:"column:id_product;index" json:"id_product"`
	ProductName      string          `gorm:"column:product_name;size:500" json:"product_name"`
	ProductReference string          `gorm:"column:product_reference;size:100" json:"product_reference"`
	ProductQty       int64           `gorm:"column:product_qty" json:"product_qty"`
	ProductPrice     decimal.Decimal `gorm:"column:product_price;type:numeric(12,2)" json:"product_price"`
	ReductionPercent decimal.Decimal `gorm:"column:reduction_percent;type:numeric(5,2)" json:"reduction_percent"`
}

// TableName returns the table name for OrderDetail
func (OrderDetail) TableName() string { return TableOrderDetails }

// OrderState is a remote order workflow state (platform-scoped). Remote
// states are reconciled by origin ID and mapped to an internal state label.
type OrderState struct {
	IDOrderState  int64  `gorm:"column:id_order_state;primaryKey;autoIncrement" json:"id_order_state"`
	IDOrigin      int64  `gorm:"column:id_origin;not null;uniqueIndex:uq_order_states_origin_platform" json:"id_origin"`
	IDPlatform    int64  `gorm:"column:id_platform;not null;uniqueIndex:uq_order_states_origin_platform" json:"id_platform"`
	Name          string `gorm:"column:name;size:200;not null" json:"name"`
	InternalState string `gorm:"column:internal_state;size:50" json:"internal_state"`
}

// TableName returns the table name for OrderState
func (OrderState) TableName() string { return TableOrderStates }

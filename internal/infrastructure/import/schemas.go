package csvimport

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backend/internal/domain/commerce"
)

// fkField declares a CSV column holding the origin ID of a parent record.
// The whole batch's distinct values are checked with one query per field.
type fkField struct {
	column string
	table  string
	scoped bool
}

// nameFK declares a CSV column referencing a parent record by name instead
// of origin ID (payment methods carry no usable remote identifier).
type nameFK struct {
	column   string
	table    string
	dbColumn string
}

// uniqueRule declares a business-rule unique column checked within the batch
// and against the database.
type uniqueRule struct {
	column   string
	table    string
	dbColumn string
	scoped   bool
}

// parsedRow is one row mapped onto its entity schema. refs and strs hold the
// reference values the cross-row stages need; record holds the typed struct
// the schema stage validates and the builder consumes.
type parsedRow struct {
	row    *Row
	origin int64
	refs   map[string]int64
	strs   map[string]string
	record any
}

// refResolver translates validated references to local primary keys at
// build time.
type refResolver struct {
	locals   map[string]map[int64]int64
	payments map[string]int64
}

func (r *refResolver) local(table string, origin int64) int64 {
	if origin <= 0 {
		return 0
	}
	return r.locals[table][origin]
}

func (r *refResolver) payment(name string) int64 {
	if name == "" {
		return 0
	}
	return r.payments[name]
}

// entitySchema binds an importable entity to its parsing, validation rules
// and model builder.
type entitySchema struct {
	table    string
	scoped   bool
	required []string
	fks      []fkField
	nameFKs  []nameFK
	uniques  []uniqueRule
	parse    func(r *Row) (*parsedRow, []ImportValidationError)
	build    func(recs []*parsedRow, platformID int64, res *refResolver) any
}

// fieldReader converts row values to typed fields, collecting a schema_error
// for every value that cannot be mapped.
type fieldReader struct {
	row  *Row
	errs []ImportValidationError
}

func (f *fieldReader) fail(column, value, message string) {
	f.errs = append(f.errs, ImportValidationError{
		RowNumber: f.row.Number,
		FieldName: column,
		ErrorType: ErrorSchemaError,
		Message:   message,
		Value:     value,
	})
}

func (f *fieldReader) intCol(column string) int64 {
	v := f.row.Get(column)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f.fail(column, v, "not a valid integer")
		return 0
	}
	return n
}

func (f *fieldReader) decimalCol(column string) decimal.Decimal {
	v := f.row.Get(column)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		f.fail(column, v, "not a valid number")
		return decimal.Zero
	}
	return d
}

func (f *fieldReader) boolCol(column string, def bool) bool {
	switch strings.ToLower(f.row.Get(column)) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		f.fail(column, f.row.Get(column), "not a valid boolean")
		return def
	}
}

func (f *fieldReader) dateCol(column string) *time.Time {
	v := f.row.Get(column)
	if v == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	f.fail(column, v, "not a valid date")
	return nil
}

// namedRow covers the flat reference entities: brands, categories, carriers.
type namedRow struct {
	IDOrigin int64  `csv:"id_origin" validate:"required,gt=0"`
	Name     string `csv:"name" validate:"required,max=200"`
}

type productRow struct {
	IDOrigin   int64           `csv:"id_origin" validate:"required,gt=0"`
	IDCategory int64           `csv:"id_category" validate:"omitempty,gt=0"`
	IDBrand    int64           `csv:"id_brand" validate:"omitempty,gt=0"`
	Name       string          `csv:"name" validate:"required,max=500"`
	SKU        string          `csv:"sku" validate:"max=100"`
	Reference  string          `csv:"reference" validate:"max=100"`
	Price      decimal.Decimal `csv:"price" validate:"-"`
	Weight     decimal.Decimal `csv:"weight" validate:"-"`
	Quantity   int64           `csv:"quantity" validate:"gte=0"`
	Active     bool            `csv:"active" validate:"-"`
}

type customerRow struct {
	IDOrigin  int64  `csv:"id_origin" validate:"required,gt=0"`
	IDLang    int64  `csv:"id_lang" validate:"omitempty,gt=0"`
	Firstname string `csv:"firstname" validate:"max=200"`
	Lastname  string `csv:"lastname" validate:"max=200"`
	Email     string `csv:"email" validate:"required,email,max=320"`
	Company   string `csv:"company" validate:"max=200"`
}

type addressRow struct {
	IDOrigin   int64  `csv:"id_origin" validate:"required,gt=0"`
	IDCustomer int64  `csv:"id_customer" validate:"required,gt=0"`
	IDCountry  int64  `csv:"id_country" validate:"omitempty,gt=0"`
	Firstname  string `csv:"firstname" validate:"max=200"`
	Lastname   string `csv:"lastname" validate:"max=200"`
	Company    string `csv:"company" validate:"max=200"`
	Address1   string `csv:"address1" validate:"required,max=500"`
	Address2   string `csv:"address2" validate:"max=500"`
	City       string `csv:"city" validate:"max=200"`
	Postcode   string `csv:"postcode" validate:"max=20"`
	Phone      string `csv:"phone" validate:"max=50"`
	VATNumber  string `csv:"vat_number" validate:"max=50"`
}

type orderRow struct {
	IDOrigin          int64           `csv:"id_origin" validate:"required,gt=0"`
	Reference         string          `csv:"reference" validate:"max=100"`
	IDCustomer        int64           `csv:"id_customer" validate:"required,gt=0"`
	IDAddressDelivery int64           `csv:"id_address_delivery" validate:"required,gt=0"`
	IDAddressInvoice  int64           `csv:"id_address_invoice" validate:"omitempty,gt=0"`
	IDCarrier         int64           `csv:"id_carrier" validate:"omitempty,gt=0"`
	Payment           string          `csv:"payment" validate:"max=200"`
	TotalPrice        decimal.Decimal `csv:"total_price" validate:"-"`
	TotalWeight       decimal.Decimal `csv:"total_weight" validate:"-"`
	TotalDiscounts    decimal.Decimal `csv:"total_discounts" validate:"-"`
	CashOnDelivery    decimal.Decimal `csv:"cash_on_delivery" validate:"-"`
	DateAdd           *time.Time      `csv:"date_add" validate:"-"`
}

type orderDetailRow struct {
	IDOrigin         int64           `csv:"id_origin" validate:"required,gt=0"`
	IDOrder          int64           `csv:"id_order" validate:"required,gt=0"`
	IDProduct        int64           `csv:"id_product" validate:"required,gt=0"`
	ProductName      string          `csv:"product_name" validate:"max=500"`
	ProductReference string          `csv:"product_reference" validate:"max=100"`
	ProductQty       int64           `csv:"product_qty" validate:"required,gt=0"`
	ProductPrice     decimal.Decimal `csv:"product_price" validate:"-"`
	ReductionPercent decimal.Decimal `csv:"reduction_percent" validate:"-"`
}

func namedSchema(table string, build func(recs []*parsedRow) any) *entitySchema {
	return &entitySchema{
		table:    table,
		required: []string{"id_origin", "name"},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &namedRow{
				IDOrigin: f.intCol("id_origin"),
				Name:     r.Get("name"),
			}
			return &parsedRow{row: r, origin: rec.IDOrigin, record: rec}, f.errs
		},
		build: func(recs []*parsedRow, _ int64, _ *refResolver) any {
			return build(recs)
		},
	}
}

var schemas = map[string]*entitySchema{
	commerce.TableBrands: namedSchema(commerce.TableBrands, func(recs []*parsedRow) any {
		out := make([]commerce.Brand, 0, len(recs))
		for _, rec := range recs {
			v := rec.record.(*namedRow)
			out = append(out, commerce.Brand{IDOrigin: v.IDOrigin, Name: v.Name})
		}
		return out
	}),

	commerce.TableCategories: namedSchema(commerce.TableCategories, func(recs []*parsedRow) any {
		out := make([]commerce.Category, 0, len(recs))
		for _, rec := range recs {
			v := rec.record.(*namedRow)
			out = append(out, commerce.Category{IDOrigin: v.IDOrigin, Name: v.Name})
		}
		return out
	}),

	commerce.TableCarriers: namedSchema(commerce.TableCarriers, func(recs []*parsedRow) any {
		out := make([]commerce.Carrier, 0, len(recs))
		for _, rec := range recs {
			v := rec.record.(*namedRow)
			out = append(out, commerce.Carrier{IDOrigin: v.IDOrigin, Name: v.Name})
		}
		return out
	}),

	commerce.TableProducts: {
		table:    commerce.TableProducts,
		scoped:   true,
		required: []string{"id_origin", "name"},
		fks: []fkField{
			{column: "id_category", table: commerce.TableCategories},
			{column: "id_brand", table: commerce.TableBrands},
		},
		uniques: []uniqueRule{
			{column: "sku", table: commerce.TableProducts, dbColumn: "sku", scoped: true},
		},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &productRow{
				IDOrigin:   f.intCol("id_origin"),
				IDCategory: f.intCol("id_category"),
				IDBrand:    f.intCol("id_brand"),
				Name:       r.Get("name"),
				SKU:        r.Get("sku"),
				Reference:  r.Get("reference"),
				Price:      f.decimalCol("price"),
				Weight:     f.decimalCol("weight"),
				Quantity:   f.intCol("quantity"),
				Active:     f.boolCol("active", true),
			}
			if rec.Price.IsNegative() {
				f.errs = append(f.errs, ImportValidationError{
					RowNumber: r.Number, FieldName: "price",
					ErrorType: ErrorSchemaValidation,
					Message:   "must not be negative", Value: r.Get("price"),
				})
			}
			return &parsedRow{
				row:    r,
				origin: rec.IDOrigin,
				refs:   map[string]int64{"id_category": rec.IDCategory, "id_brand": rec.IDBrand},
				strs:   map[string]string{"sku": rec.SKU},
				record: rec,
			}, f.errs
		},
		build: func(recs []*parsedRow, platformID int64, res *refResolver) any {
			out := make([]commerce.Product, 0, len(recs))
			for _, rec := range recs {
				v := rec.record.(*productRow)
				out = append(out, commerce.Product{
					IDOrigin:   v.IDOrigin,
					IDPlatform: platformID,
					IDCategory: res.local(commerce.TableCategories, v.IDCategory),
					IDBrand:    res.local(commerce.TableBrands, v.IDBrand),
					Name:       v.Name,
					SKU:        v.SKU,
					Reference:  v.Reference,
					Price:      v.Price,
					Weight:     v.Weight,
					Quantity:   v.Quantity,
					Active:     v.Active,
				})
			}
			return out
		},
	},

	commerce.TableCustomers: {
		table:    commerce.TableCustomers,
		required: []string{"id_origin", "email"},
		fks: []fkField{
			{column: "id_lang", table: commerce.TableLanguages},
		},
		uniques: []uniqueRule{
			{column: "email", table: commerce.TableCustomers, dbColumn: "email"},
		},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &customerRow{
				IDOrigin:  f.intCol("id_origin"),
				IDLang:    f.intCol("id_lang"),
				Firstname: r.Get("firstname"),
				Lastname:  r.Get("lastname"),
				Email:     strings.ToLower(r.Get("email")),
				Company:   r.Get("company"),
			}
			return &parsedRow{
				row:    r,
				origin: rec.IDOrigin,
				refs:   map[string]int64{"id_lang": rec.IDLang},
				strs:   map[string]string{"email": rec.Email},
				record: rec,
			}, f.errs
		},
		build: func(recs []*parsedRow, _ int64, res *refResolver) any {
			out := make([]commerce.Customer, 0, len(recs))
			for _, rec := range recs {
				v := rec.record.(*customerRow)
				out = append(out, commerce.Customer{
					IDOrigin:  v.IDOrigin,
					IDLang:    res.local(commerce.TableLanguages, v.IDLang),
					Firstname: v.Firstname,
					Lastname:  v.Lastname,
					Email:     v.Email,
					Company:   v.Company,
				})
			}
			return out
		},
	},

	commerce.TableAddresses: {
		table:    commerce.TableAddresses,
		scoped:   true,
		required: []string{"id_origin", "id_customer", "address1"},
		fks: []fkField{
			{column: "id_customer", table: commerce.TableCustomers},
			{column: "id_country", table: commerce.TableCountries},
		},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &addressRow{
				IDOrigin:   f.intCol("id_origin"),
				IDCustomer: f.intCol("id_customer"),
				IDCountry:  f.intCol("id_country"),
				Firstname:  r.Get("firstname"),
				Lastname:   r.Get("lastname"),
				Company:    r.Get("company"),
				Address1:   r.Get("address1"),
				Address2:   r.Get("address2"),
				City:       r.Get("city"),
				Postcode:   r.Get("postcode"),
				Phone:      r.Get("phone"),
				VATNumber:  r.Get("vat_number"),
			}
			return &parsedRow{
				row:    r,
				origin: rec.IDOrigin,
				refs:   map[string]int64{"id_customer": rec.IDCustomer, "id_country": rec.IDCountry},
				record: rec,
			}, f.errs
		},
		build: func(recs []*parsedRow, platformID int64, res *refResolver) any {
			out := make([]commerce.Address, 0, len(recs))
			for _, rec := range recs {
				v := rec.record.(*addressRow)
				out = append(out, commerce.Address{
					IDOrigin:   v.IDOrigin,
					IDPlatform: platformID,
					IDCustomer: res.local(commerce.TableCustomers, v.IDCustomer),
					IDCountry:  res.local(commerce.TableCountries, v.IDCountry),
					Firstname:  v.Firstname,
					Lastname:   v.Lastname,
					Company:    v.Company,
					Address1:   v.Address1,
					Address2:   v.Address2,
					City:       v.City,
					Postcode:   v.Postcode,
					Phone:      v.Phone,
					VATNumber:  v.VATNumber,
				})
			}
			return out
		},
	},

	commerce.TableOrders: {
		table:    commerce.TableOrders,
		scoped:   true,
		required: []string{"id_origin", "id_customer", "id_address_delivery"},
		fks: []fkField{
			{column: "id_customer", table: commerce.TableCustomers},
			{column: "id_address_delivery", table: commerce.TableAddresses, scoped: true},
			{column: "id_address_invoice", table: commerce.TableAddresses, scoped: true},
			{column: "id_carrier", table: commerce.TableCarriers},
		},
		nameFKs: []nameFK{
			{column: "payment", table: commerce.TablePayments, dbColumn: "name"},
		},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &orderRow{
				IDOrigin:          f.intCol("id_origin"),
				Reference:         r.Get("reference"),
				IDCustomer:        f.intCol("id_customer"),
				IDAddressDelivery: f.intCol("id_address_delivery"),
				IDAddressInvoice:  f.intCol("id_address_invoice"),
				IDCarrier:         f.intCol("id_carrier"),
				Payment:           r.Get("payment"),
				TotalPrice:        f.decimalCol("total_price"),
				TotalWeight:       f.decimalCol("total_weight"),
				TotalDiscounts:    f.decimalCol("total_discounts"),
				CashOnDelivery:    f.decimalCol("cash_on_delivery"),
				DateAdd:           f.dateCol("date_add"),
			}
			return &parsedRow{
				row:    r,
				origin: rec.IDOrigin,
				refs: map[string]int64{
					"id_customer":         rec.IDCustomer,
					"id_address_delivery": rec.IDAddressDelivery,
					"id_address_invoice":  rec.IDAddressInvoice,
					"id_carrier":          rec.IDCarrier,
				},
				strs:   map[string]string{"payment": rec.Payment},
				record: rec,
			}, f.errs
		},
		build: func(recs []*parsedRow, platformID int64, res *refResolver) any {
			out := make([]commerce.Order, 0, len(recs))
			for _, rec := range recs {
				v := rec.record.(*orderRow)
				dateAdd := time.Now()
				if v.DateAdd != nil {
					dateAdd = *v.DateAdd
				}
				out = append(out, commerce.Order{
					IDOrigin:          v.IDOrigin,
					IDPlatform:        platformID,
					Reference:         v.Reference,
					IDCustomer:        res.local(commerce.TableCustomers, v.IDCustomer),
					IDAddressDelivery: res.local(commerce.TableAddresses, v.IDAddressDelivery),
					IDAddressInvoice:  res.local(commerce.TableAddresses, v.IDAddressInvoice),
					IDPayment:         res.payment(v.Payment),
					IDCarrier:         res.local(commerce.TableCarriers, v.IDCarrier),
					TotalPrice:        v.TotalPrice,
					TotalWeight:       v.TotalWeight,
					TotalDiscounts:    v.TotalDiscounts,
					CashOnDelivery:    v.CashOnDelivery,
					DateAdd:           dateAdd,
				})
			}
			return out
		},
	},

	commerce.TableOrderDetails: {
		table:    commerce.TableOrderDetails,
		scoped:   true,
		required: []string{"id_origin", "id_order", "id_product", "product_qty"},
		fks: []fkField{
			{column: "id_order", table: commerce.TableOrders, scoped: true},
			{column: "id_product", table: commerce.TableProducts, scoped: true},
		},
		parse: func(r *Row) (*parsedRow, []ImportValidationError) {
			f := &fieldReader{row: r}
			rec := &orderDetailRow{
				IDOrigin:         f.intCol("id_origin"),
				IDOrder:          f.intCol("id_order"),
				IDProduct:        f.intCol("id_product"),
				ProductName:      r.Get("product_name"),
				ProductReference: r.Get("product_reference"),
				ProductQty:       f.intCol("product_qty"),
				ProductPrice:     f.decimalCol("product_price"),
				ReductionPercent: f.decimalCol("reduction_percent"),
			}
			return &parsedRow{
				row:    r,
				origin: rec.IDOrigin,
				refs:   map[string]int64{"id_order": rec.IDOrder, "id_product": rec.IDProduct},
				record: rec,
			}, f.errs
		},
		build: func(recs []*parsedRow, platformID int64, res *refResolver) any {
			out := make([]commerce.OrderDetail, 0, len(recs))
			for _, rec := range recs {
				v := rec.record.(*orderDetailRow)
				out = append(out, commerce.OrderDetail{
					IDOrigin:         v.IDOrigin,
					IDPlatform:       platformID,
					IDOrder:          res.local(commerce.TableOrders, v.IDOrder),
					IDProduct:        res.local(commerce.TableProducts, v.IDProduct),
					ProductName:      v.ProductName,
					ProductReference: v.ProductReference,
					ProductQty:       v.ProductQty,
					ProductPrice:     v.ProductPrice,
					ReductionPercent: v.ReductionPercent,
				})
			}
			return out
		},
	},
}

func schemaFor(entityType string) (*entitySchema, error) {
	s, ok := schemas[strings.ToLower(strings.TrimSpace(entityType))]
	if !ok {
		return nil, ErrUnsupportedEntityType
	}
	return s, nil
}

// SupportedEntities lists the entity types accepted for CSV import, sorted.
func SupportedEntities() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RequiredHeaders returns the headers a CSV file must carry for the entity.
func RequiredHeaders(entityType string) ([]string, error) {
	s, err := schemaFor(entityType)
	if err != nil {
		return nil, err
	}
	return s.required, nil
}

package ecommerce

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// PrestaShop serializes scalars inconsistently across versions: numeric IDs
// arrive as numbers or quoted strings, booleans as "0"/"1", and translatable
// fields as plain strings or per-language arrays. The flex* types absorb
// those variations at the decoding boundary so the adapter only sees Go
// values.

// flexInt decodes a JSON number or numeric string.
type flexInt int64

// UnmarshalJSON implements json.Unmarshaler
func (v *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Some endpoints ship decimal quantities for integral fields.
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return err
		}
		n = int64(f)
	}
	*v = flexInt(n)
	return nil
}

// Int64 returns the decoded value.
func (v flexInt) Int64() int64 { return int64(v) }

// flexDecimal decodes a JSON number or numeric string into a decimal.
type flexDecimal struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (v *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		v.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		v.Decimal = decimal.Zero
		return nil
	}
	v.Decimal = d
	return nil
}

// flexBool decodes JSON booleans and the "0"/"1" string convention.
type flexBool bool

// UnmarshalJSON implements json.Unmarshaler
func (v *flexBool) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	switch string(b) {
	case "1", "true":
		*v = true
	default:
		*v = false
	}
	return nil
}

// Bool returns the decoded value.
func (v flexBool) Bool() bool { return bool(v) }

// localized decodes a translatable field: either a plain string or a list of
// {"id": languageID, "value": text} entries.
type localized struct {
	value  string
	values []localizedValue
}

type localizedValue struct {
	ID    flexInt `json:"id"`
	Value string  `json:"value"`
}

// UnmarshalJSON implements json.Unmarshaler
func (l *localized) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &l.value)
	}
	return json.Unmarshal(b, &l.values)
}

// For returns the text for langID, falling back to the first non-empty
// translation.
func (l localized) For(langID int64) string {
	if l.value != "" {
		return l.value
	}
	for _, v := range l.values {
		if v.ID.Int64() == langID && v.Value != "" {
			return v.Value
		}
	}
	for _, v := range l.values {
		if v.Value != "" {
			return v.Value
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Resource DTOs
// ---------------------------------------------------------------------------

type psLanguage struct {
	ID      flexInt `json:"id"`
	Name    string  `json:"name"`
	IsoCode string  `json:"iso_code"`
}

type psLanguagesResponse struct {
	Languages []psLanguage `json:"languages"`
}

type psCountry struct {
	ID      flexInt   `json:"id"`
	Name    localized `json:"name"`
	IsoCode string    `json:"iso_code"`
}

type psCountriesResponse struct {
	Countries []psCountry `json:"countries"`
}

type psManufacturer struct {
	ID   flexInt `json:"id"`
	Name string  `json:"name"`
}

type psManufacturersResponse struct {
	Manufacturers []psManufacturer `json:"manufacturers"`
}

type psCategory struct {
	ID   flexInt   `json:"id"`
	Name localized `json:"name"`
}

type psCategoriesResponse struct {
	Categories []psCategory `json:"categories"`
}

type psCarrier struct {
	ID   flexInt `json:"id"`
	Name string  `json:"name"`
}

type psCarriersResponse struct {
	Carriers []psCarrier `json:"carriers"`
}

type psProduct struct {
	ID                flexInt     `json:"id"`
	IDManufacturer    flexInt     `json:"id_manufacturer"`
	IDCategoryDefault flexInt     `json:"id_category_default"`
	Name              localized   `json:"name"`
	Reference         string      `json:"reference"`
	Price             flexDecimal `json:"price"`
	Weight            flexDecimal `json:"weight"`
	Active            flexBool    `json:"active"`
}

type psProductsResponse struct {
	Products []psProduct `json:"products"`
}

type psCustomer struct {
	ID        flexInt `json:"id"`
	IDLang    flexInt `json:"id_lang"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	Email     string  `json:"email"`
	Company   string  `json:"company"`
}

type psCustomersResponse struct {
	Customers []psCustomer `json:"customers"`
}

type psAddress struct {
	ID         flexInt `json:"id"`
	IDCustomer flexInt `json:"id_customer"`
	IDCountry  flexInt `json:"id_country"`
	Company    string  `json:"company"`
	Firstname  string  `json:"firstname"`
	Lastname   string  `json:"lastname"`
	Address1   string  `json:"address1"`
	Address2   string  `json:"address2"`
	City       string  `json:"city"`
	Postcode   string  `json:"postcode"`
	Phone      string  `json:"phone"`
	VATNumber  string  `json:"vat_number"`
}

type psAddressesResponse struct {
	Addresses []psAddress `json:"addresses"`
}

type psOrder struct {
	ID                flexInt     `json:"id"`
	Reference         string      `json:"reference"`
	IDCustomer        flexInt     `json:"id_customer"`
	IDAddressDelivery flexInt     `json:"id_address_delivery"`
	IDAddressInvoice  flexInt     `json:"id_address_invoice"`
	IDCarrier         flexInt     `json:"id_carrier"`
	CurrentState      flexInt     `json:"current_state"`
	Payment           string      `json:"payment"`
	TotalPaid         flexDecimal `json:"total_paid"`
	TotalDiscounts    flexDecimal `json:"total_discounts"`
	TotalShipping     flexDecimal `json:"total_shipping"`
	Valid             flexBool    `json:"valid"`
	DateAdd           string      `json:"date_add"`
	InvoiceDate       string      `json:"invoice_date"`
}

type psOrdersResponse struct {
	Orders []psOrder `json:"orders"`
}

type psOrderDetail struct {
	ID               flexInt     `json:"id"`
	IDOrder          flexInt     `json:"id_order"`
	ProductID        flexInt     `json:"product_id"`
	ProductName      string      `json:"product_name"`
	ProductReference string      `json:"product_reference"`
	ProductQuantity  flexInt     `json:"product_quantity"`
	UnitPriceTaxIncl flexDecimal `json:"unit_price_tax_incl"`
	ReductionPercent flexDecimal `json:"reduction_percent"`
}

type psOrderDetailsResponse struct {
	OrderDetails []psOrderDetail `json:"order_details"`
}

type psOrderState struct {
	ID       flexInt   `json:"id"`
	Name     localized `json:"name"`
	Paid     flexBool  `json:"paid"`
	Shipped  flexBool  `json:"shipped"`
	Delivery flexBool  `json:"delivery"`
}

type psOrderStatesResponse struct {
	OrderStates []psOrderState `json:"order_states"`
}

type psStockAvailable struct {
	ID        flexInt `json:"id"`
	IDProduct flexInt `json:"id_product"`
	Quantity  flexInt `json:"quantity"`
}

type psStockAvailablesResponse struct {
	StockAvailables []psStockAvailable `json:"stock_availables"`
}

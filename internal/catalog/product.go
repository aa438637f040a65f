// ABOUTME: Product record returned by the catalog endpoint and the sortable field keys
// ABOUTME: Product ids are held textually so numeric and string ids decode alike

package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ProductID is a product identifier. The catalog service sends it as either a JSON
// number or a JSON string; both decode to their textual form.
type ProductID string

// UnmarshalJSON accepts a number or a string.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a number or string: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// Product is one catalog entry.
type Product struct {
	ID             ProductID `json:"product_id"`
	Name           string    `json:"product_name"`
	CompanyName    string    `json:"company_name"`
	Website        string    `json:"website"`
	Category       string    `json:"product_category"`
	CompanyAddress string    `json:"company_address"`
}

// Field identifies a product attribute that can be sorted on.
type Field int

const (
	FieldID Field = iota
	FieldName
	FieldCompany
	FieldWebsite
	FieldCategory
	FieldAddress
)

var fieldKeys = []string{"id", "name", "company", "website", "category", "address"}

var fieldLabels = []string{"ID", "Product", "Company", "Website", "Category", "Address"}

var fieldAliases = map[string]Field{
	"product_id":       FieldID,
	"product_name":     FieldName,
	"company_name":     FieldCompany,
	"product_category": FieldCategory,
	"company_address":  FieldAddress,
}

// Fields returns every sortable field in display order.
func Fields() []Field {
	return []Field{FieldID, FieldName, FieldCompany, FieldWebsite, FieldCategory, FieldAddress}
}

// ParseField resolves a field key. Both short keys ("name") and wire names
// ("product_name") are accepted, case-insensitively.
func ParseField(key string) (Field, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i, name := range fieldKeys {
		if k == name {
			return Field(i), true
		}
	}
	f, ok := fieldAliases[k]
	return f, ok
}

// Key returns the short key used by ParseField.
func (f Field) Key() string {
	if f < 0 || int(f) >= len(fieldKeys) {
		return "unknown"
	}
	return fieldKeys[f]
}

// Label returns the column heading for the field.
func (f Field) Label() string {
	if f < 0 || int(f) >= len(fieldLabels) {
		return "Unknown"
	}
	return fieldLabels[f]
}

// String returns the field key
func (f Field) String() string {
	return f.Key()
}

// Value returns the textual value of the field for p.
func (f Field) Value(p Product) string {
	switch f {
	case FieldID:
		return string(p.ID)
	case FieldName:
		return p.Name
	case FieldCompany:
		return p.CompanyName
	case FieldWebsite:
		return p.Website
	case FieldCategory:
		return p.Category
	case FieldAddress:
		return p.CompanyAddress
	default:
		return ""
	}
}

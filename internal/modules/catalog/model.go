package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is an item a shop sells. Products live under products/{shopId}.
type Product struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shopId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	InStock   bool            `json:"inStock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ProductRequest is the payload for adding or editing a product. Price is
// accepted either as a JSON number or as a numeric string.
type ProductRequest struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Category string          `json:"category"`
}

// ListFilter narrows List.
type ListFilter struct {
	Category    string
	InStockOnly bool
}

func (f ListFilter) match(p *Product) bool {
	if f.InStockOnly && !p.InStock {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	return true
}

// DefaultCategory is used when a product is added without one.
const DefaultCategory = "General"

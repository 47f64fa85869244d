// Package checkout turns a customer's cart into one order per shop.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/prepick-backend/internal/modules/cart"
)

var two = decimal.NewFromInt(2)

// Group is the part of a cart bought from one shop.
type Group struct {
	ShopID   string          `json:"shopId"`
	ShopName string          `json:"shopName"`
	Items    []cart.Item     `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Partial  decimal.Decimal `json:"partialPayment"`
}

// GroupByShop partitions items by shop, groups in order of first
// appearance and items in cart order.
func GroupByShop(items []cart.Item) []Group {
	var groups []Group
	index := map[string]int{}
	for _, it := range items {
		i, ok := index[it.ShopID]
		if !ok {
			i = len(groups)
			index[it.ShopID] = i
			groups = append(groups, Group{ShopID: it.ShopID, ShopName: it.ShopName, Total: decimal.Zero})
		}
		g := &groups[i]
		g.Items = append(g.Items, it)
		g.Total = g.Total.Add(it.LineTotal())
	}
	for i := range groups {
		groups[i].Partial = PartialPayment(groups[i].Total)
	}
	return groups
}

// PartialPayment is the amount due up front: half the total, rounded up
// to a whole unit.
func PartialPayment(total decimal.Decimal) decimal.Decimal {
	return total.Div(two).Ceil()
}

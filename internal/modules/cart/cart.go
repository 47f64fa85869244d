// Package cart holds each session's transient shopping cart. Carts are never
// written to the document store.
package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/logger"
)

// CustomPrefix starts the id of every free-text item.
const CustomPrefix = "custom_"

// Item is one cart line.
type Item struct {
	ID       string          `json:"id"`
	ShopID   string          `json:"shopId"`
	ShopName string          `json:"shopName,omitempty"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	IsCustom bool            `json:"isCustom"`
	Category string          `json:"category,omitempty"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCustomItem builds a free-text item the shop prices at pickup.
func NewCustomItem(shopID, shopName, name string, quantity int) (Item, error) {
	verr := apperr.NewValidation()
	name = strings.TrimSpace(name)
	if shopID == "" {
		verr.Add("shopId", "is required")
	}
	if name == "" {
		verr.Add("name", "is required")
	}
	if quantity < 1 {
		verr.Add("quantity", "must be at least 1")
	}
	if err := verr.OrNil(); err != nil {
		return Item{}, err
	}
	return Item{
		ID:       CustomPrefix + uuid.New().String(),
		ShopID:   shopID,
		ShopName: shopName,
		Name:     name,
		Price:    decimal.Zero,
		Quantity: quantity,
		IsCustom: true,
	}, nil
}

// Cart is an ordered list of items, unique by id. Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item

	// checkoutMu serializes checkouts of the cart; mu is only held for
	// single operations.
	checkoutMu sync.Mutex
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// Add puts quantity of item in the cart, adding to the existing line when
// the id is already there. A quantity below 1 counts as 1.
func (c *Cart) Add(item Item, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += quantity
			return
		}
	}
	item.Quantity = quantity
	c.items = append(c.items, item)
}

// Remove drops the line with id. Unknown ids are ignored.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// UpdateQuantity overwrites the quantity of id; quantity ≤ 0 removes it.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quantity <= 0 {
		c.removeLocked(id)
		return
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// Subtract removes the ordered quantity of every item from its line. Lines
// that reach zero are dropped; quantities added since the items were read
// stay in the cart.
func (c *Cart) Subtract(ordered []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range ordered {
		for i := range c.items {
			if c.items[i].ID != o.ID {
				continue
			}
			c.items[i].Quantity -= o.Quantity
			if c.items[i].Quantity <= 0 {
				c.removeLocked(o.ID)
			}
			break
		}
	}
}

// BeginCheckout waits for any other checkout of the cart to finish and
// returns the function that ends this one.
func (c *Cart) BeginCheckout() (end func()) {
	c.checkoutMu.Lock()
	return c.checkoutMu.Unlock
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Total is the sum of every line total.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (c *Cart) removeLocked(id string) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Registry hands out one cart per session.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*entry
	now   func() time.Time
}

type entry struct {
	cart *Cart
	used time.Time
}

func NewRegistry() *Registry {
	return &Registry{carts: map[string]*entry{}, now: time.Now}
}

// For returns the cart of sessionID, creating it on first use.
func (r *Registry) For(sessionID string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[sessionID]
	if !ok {
		e = &entry{cart: New()}
		r.carts[sessionID] = e
	}
	e.used = r.now()
	return e.cart
}

// Drop forgets the cart of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
}

// Len is the number of carts held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Sweep drops the carts not used for longer than maxIdle and returns how
// many it dropped. With maxIdle set to the session lifetime, only carts of
// expired sessions go.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.carts {
		if e.used.Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				logger.FromCtx(ctx).Info("cart: dropped idle carts", "count", n)
			}
		}
	}
}

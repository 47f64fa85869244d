package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/modules/catalog"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
)

// Products looks catalog entries up.
type Products interface {
	Get(ctx context.Context, shopID, id string) (*catalog.Product, error)
}

// Shops looks shops up.
type Shops interface {
	Get(ctx context.Context, id string) (*shop.Shop, error)
}

// View is the cart as returned to clients.
type View struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// AddProductRequest adds a catalog product.
type AddProductRequest struct {
	ShopID    string `json:"shopId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddCustomRequest adds a free-text item.
type AddCustomRequest struct {
	ShopID   string `json:"shopId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// UpdateQuantityRequest sets a line quantity; 0 or less removes the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Service defines cart operations for a session.
type Service interface {
	View(sessionID string) View
	AddProduct(ctx context.Context, sessionID string, req AddProductRequest) (View, error)
	AddCustom(ctx context.Context, sessionID string, req AddCustomRequest) (View, error)
	UpdateQuantity(sessionID, itemID string, quantity int) View
	Remove(sessionID, itemID string) View
	Clear(sessionID string) View
}

type service struct {
	carts    *Registry
	products Products
	shops    Shops
}

// NewService creates a cart service over carts.
func NewService(carts *Registry, products Products, shops Shops) Service {
	return &service{carts: carts, products: products, shops: shops}
}

// ViewOf renders c.
func ViewOf(c *Cart) View {
	items := c.Items()
	count := 0
	total := decimal.Zero
	for _, it := range items {
		count += it.Quantity
		total = total.Add(it.LineTotal())
	}
	return View{Items: items, Total: total, ItemCount: count}
}

func (s *service) View(sessionID string) View {
	return ViewOf(s.carts.For(sessionID))
}

func (s *service) AddProduct(ctx context.Context, sessionID string, req AddProductRequest) (View, error) {
	verr := apperr.NewValidation()
	if req.ShopID == "" {
		verr.Add("shopId", "is required")
	}
	if req.ProductID == "" {
		verr.Add("productId", "is required")
	}
	if req.Quantity < 0 {
		verr.Add("quantity", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return View{}, err
	}

	sh, err := s.shops.Get(ctx, req.ShopID)
	if err != nil {
		return View{}, err
	}
	if sh.Status == shop.StatusOffline {
		return View{}, fmt.Errorf("%s is not taking orders right now: %w", sh.Name, apperr.ErrUnprocessable)
	}
	p, err := s.products.Get(ctx, req.ShopID, req.ProductID)
	if err != nil {
		return View{}, err
	}
	if !p.InStock {
		return View{}, fmt.Errorf("%s is out of stock: %w", p.Name, apperr.ErrUnprocessable)
	}

	c := s.carts.For(sessionID)
	c.Add(Item{
		ID:       p.ID,
		ShopID:   p.ShopID,
		ShopName: sh.Name,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
	}, req.Quantity)
	return ViewOf(c), nil
}

func (s *service) AddCustom(ctx context.Context, sessionID string, req AddCustomRequest) (View, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	shopName := ""
	if req.ShopID != "" {
		sh, err := s.shops.Get(ctx, req.ShopID)
		if err != nil {
			return View{}, err
		}
		shopName = sh.Name
	}
	item, err := NewCustomItem(req.ShopID, shopName, req.Name, req.Quantity)
	if err != nil {
		return View{}, err
	}
	c := s.carts.For(sessionID)
	c.Add(item, item.Quantity)
	return ViewOf(c), nil
}

func (s *service) UpdateQuantity(sessionID, itemID string, quantity int) View {
	c := s.carts.For(sessionID)
	c.UpdateQuantity(itemID, quantity)
	return ViewOf(c)
}

func (s *service) Remove(sessionID, itemID string) View {
	c := s.carts.For(sessionID)
	c.Remove(itemID)
	return ViewOf(c)
}

func (s *service) Clear(sessionID string) View {
	c := s.carts.For(sessionID)
	c.Clear()
	return ViewOf(c)
}

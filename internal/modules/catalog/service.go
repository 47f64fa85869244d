package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Shops is the part of the shop service the catalog needs.
type Shops interface {
	Get(ctx context.Context, id string) (*shop.Shop, error)
}

// Service defines catalog business logic. Every mutation is reserved to the
// owner of the shop.
type Service interface {
	Add(ctx context.Context, owner session.Identity, shopID string, req ProductRequest) (*Product, error)

	// AddBulk validates every entry before writing any of them.
	AddBulk(ctx context.Context, owner session.Identity, shopID string, reqs []ProductRequest) ([]*Product, error)

	Get(ctx context.Context, shopID, id string) (*Product, error)
	List(ctx context.Context, shopID string, f ListFilter) ([]*Product, error)
	Update(ctx context.Context, owner session.Identity, shopID, id string, req ProductRequest) (*Product, error)

	// ToggleStock flips the inStock flag.
	ToggleStock(ctx context.Context, owner session.Identity, shopID, id string) (*Product, error)

	Delete(ctx context.Context, owner session.Identity, shopID, id string) error

	// Watch streams the products of one shop.
	Watch(ctx context.Context, shopID string) (*gateway.Subscription, error)
}

type service struct {
	repo  Repository
	shops Shops
	now   func() time.Time
}

func NewService(repo Repository, shops Shops) Service {
	return &service{repo: repo, shops: shops, now: time.Now}
}

func (s *service) Add(ctx context.Context, owner session.Identity, shopID string, req ProductRequest) (*Product, error) {
	p, err := buildProduct(shopID, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist product: %w", err)
	}
	return p, nil
}

func (s *service) AddBulk(ctx context.Context, owner session.Identity, shopID string, reqs []ProductRequest) ([]*Product, error) {
	if len(reqs) == 0 {
		return nil, apperr.Invalid("products", "at least one product is required")
	}

	verr := apperr.NewValidation()
	products := make([]*Product, 0, len(reqs))
	now := s.now().UTC()
	for i, req := range reqs {
		p, err := buildProduct(shopID, req)
		if err != nil {
			var ve *apperr.ValidationError
			if errors.As(err, &ve) {
				for field, msg := range ve.Fields {
					verr.Add(fmt.Sprintf("products[%d].%s", i, field), msg)
				}
				continue
			}
			return nil, err
		}
		p.CreatedAt, p.UpdatedAt = now, now
		products = append(products, p)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateBatch(ctx, shopID, products); err != nil {
		return nil, fmt.Errorf("failed to persist products: %w", err)
	}
	return products, nil
}

func (s *service) Get(ctx context.Context, shopID, id string) (*Product, error) {
	return s.repo.GetByID(ctx, shopID, id)
}

func (s *service) List(ctx context.Context, shopID string, f ListFilter) ([]*Product, error) {
	products, err := s.repo.List(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, owner session.Identity, shopID, id string, req ProductRequest) (*Product, error) {
	next, err := buildProduct(shopID, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	p.Name, p.Price, p.Category = next.Name, next.Price, next.Category
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, shopID, id, map[string]any{
		"name":      p.Name,
		"price":     p.Price,
		"category":  p.Category,
		"updatedAt": p.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ToggleStock(ctx context.Context, owner session.Identity, shopID, id string) (*Product, error) {
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	p.InStock = !p.InStock
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, shopID, id, map[string]any{
		"inStock":   p.InStock,
		"updatedAt": p.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, owner session.Identity, shopID, id string) error {
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, shopID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, shopID, id)
}

func (s *service) Watch(ctx context.Context, shopID string) (*gateway.Subscription, error) {
	return s.repo.Subscribe(ctx, shopID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) checkOwner(ctx context.Context, owner session.Identity, shopID string) error {
	sh, err := s.shops.Get(ctx, shopID)
	if err != nil {
		return err
	}
	if sh.OwnerID != owner.UserID {
		return fmt.Errorf("shop %s belongs to another owner: %w", shopID, apperr.ErrForbidden)
	}
	return nil
}

// buildProduct validates req without touching the store.
func buildProduct(shopID string, req ProductRequest) (*Product, error) {
	verr := apperr.NewValidation()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr.Add("name", "is required")
	}
	price, err := ParsePrice(req.Price)
	if err != nil {
		verr.Add("price", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}
	return &Product{
		ShopID:   shopID,
		Name:     name,
		Price:    price,
		Category: category,
		InStock:  true,
	}, nil
}

// ParsePrice reads a non-negative price given as a JSON number or string.
func ParsePrice(raw []byte) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, errors.New("is required")
	}
	text := string(raw)
	if raw[0] == '"' {
		unq, err := strconv.Unquote(text)
		if err != nil {
			return decimal.Zero, errors.New("is not a number")
		}
		text = strings.TrimSpace(unq)
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.New("is not a number")
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return price, nil
}

package catalog

import (
	"context"
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
)

// Repository defines the interface for product data storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	// CreateBatch stores every product of one shop in a single write.
	CreateBatch(ctx context.Context, shopID string, products []*Product) error
	GetByID(ctx context.Context, shopID, id string) (*Product, error)
	List(ctx context.Context, shopID string) ([]*Product, error)
	Update(ctx context.Context, shopID, id string, fields map[string]any) error
	Delete(ctx context.Context, shopID, id string) error
	Subscribe(ctx context.Context, shopID string) (*gateway.Subscription, error)
}

type gatewayRepository struct {
	gw gateway.Gateway
}

// NewGatewayRepository stores products under products/{shopId} in gw.
func NewGatewayRepository(gw gateway.Gateway) Repository {
	return &gatewayRepository{gw: gw}
}

func collection(shopID string) string {
	return gateway.Path(gateway.Products, shopID)
}

func (r *gatewayRepository) Create(ctx context.Context, p *Product) error {
	id, err := r.gw.Create(ctx, collection(p.ShopID), p)
	if err != nil {
		return apperr.Unavailable("create product", err)
	}
	p.ID = id
	return nil
}

func (r *gatewayRepository) CreateBatch(ctx context.Context, shopID string, products []*Product) error {
	items := make([]any, len(products))
	for i, p := range products {
		items[i] = p
	}
	ids, err := r.gw.CreateBatch(ctx, collection(shopID), items)
	if err != nil {
		return apperr.Unavailable("create products", err)
	}
	for i, id := range ids {
		products[i].ID = id
	}
	return nil
}

func (r *gatewayRepository) GetByID(ctx context.Context, shopID, id string) (*Product, error) {
	p := &Product{}
	found, err := r.gw.Get(ctx, gateway.Path(collection(shopID), id), p)
	if err != nil {
		return nil, apperr.Unavailable("get product", err)
	}
	if !found {
		return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

func (r *gatewayRepository) List(ctx context.Context, shopID string) ([]*Product, error) {
	docs, err := r.gw.Query(ctx, gateway.All(collection(shopID)))
	if err != nil {
		return nil, apperr.Unavailable("list products", err)
	}
	return decodeProducts(docs)
}

func (r *gatewayRepository) Update(ctx context.Context, shopID, id string, fields map[string]any) error {
	if err := r.gw.Update(ctx, gateway.Path(collection(shopID), id), fields); err != nil {
		return apperr.Unavailable("update product", err)
	}
	return nil
}

func (r *gatewayRepository) Delete(ctx context.Context, shopID, id string) error {
	if err := r.gw.Delete(ctx, gateway.Path(collection(shopID), id)); err != nil {
		return apperr.Unavailable("delete product", err)
	}
	return nil
}

func (r *gatewayRepository) Subscribe(ctx context.Context, shopID string) (*gateway.Subscription, error) {
	sub, err := r.gw.Subscribe(ctx, gateway.All(collection(shopID)))
	if err != nil {
		return nil, apperr.Unavailable("subscribe products", err)
	}
	return sub, nil
}

func decodeProducts(docs []gateway.Document) ([]*Product, error) {
	out := make([]*Product, 0, len(docs))
	for _, d := range docs {
		p := &Product{}
		if err := d.Decode(p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", d.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

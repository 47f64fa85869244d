package shop

import (
	"context"
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
)

// Repository defines data access for shops.
type Repository interface {
	// Create stores s and fills in its generated ID.
	Create(ctx context.Context, s *Shop) error

	// GetByID returns apperr.ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id string) (*Shop, error)

	// List returns every shop, optionally filtered on a single field.
	List(ctx context.Context, field string, value any) ([]*Shop, error)

	// Update merges fields into shops/{id}.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Subscribe streams the shop collection.
	Subscribe(ctx context.Context) (*gateway.Subscription, error)
}

type gatewayRepository struct {
	gw gateway.Gateway
}

// NewGatewayRepository stores shops in the shops collection of gw.
func NewGatewayRepository(gw gateway.Gateway) Repository {
	return &gatewayRepository{gw: gw}
}

func (r *gatewayRepository) Create(ctx context.Context, s *Shop) error {
	id, err := r.gw.Create(ctx, gateway.Shops, s)
	if err != nil {
		return apperr.Unavailable("create shop", err)
	}
	s.ID = id
	return nil
}

func (r *gatewayRepository) GetByID(ctx context.Context, id string) (*Shop, error) {
	s := &Shop{}
	found, err := r.gw.Get(ctx, gateway.Path(gateway.Shops, id), s)
	if err != nil {
		return nil, apperr.Unavailable("get shop", err)
	}
	if !found {
		return nil, fmt.Errorf("shop %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

func (r *gatewayRepository) List(ctx context.Context, field string, value any) ([]*Shop, error) {
	q := gateway.All(gateway.Shops)
	if field != "" {
		q = gateway.Where(gateway.Shops, field, value)
	}
	docs, err := r.gw.Query(ctx, q)
	if err != nil {
		return nil, apperr.Unavailable("list shops", err)
	}
	return decodeShops(docs)
}

func (r *gatewayRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.gw.Update(ctx, gateway.Path(gateway.Shops, id), fields); err != nil {
		return apperr.Unavailable("update shop", err)
	}
	return nil
}

func (r *gatewayRepository) Subscribe(ctx context.Context) (*gateway.Subscription, error) {
	sub, err := r.gw.Subscribe(ctx, gateway.All(gateway.Shops))
	if err != nil {
		return nil, apperr.Unavailable("subscribe shops", err)
	}
	return sub, nil
}

func decodeShops(docs []gateway.Document) ([]*Shop, error) {
	shops := make([]*Shop, 0, len(docs))
	for _, d := range docs {
		s := &Shop{}
		if err := d.Decode(s); err != nil {
			return nil, fmt.Errorf("decode shop %s: %w", d.ID, err)
		}
		shops = append(shops, s)
	}
	return shops, nil
}

package order

import (
	"context"
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
)

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists a new order and fills in its ID.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrderByID returns apperr.ErrNotFound for an unknown id.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// ListOrdersBy returns the orders whose field equals value.
	ListOrdersBy(ctx context.Context, field, value string) ([]*Order, error)

	// UpdateOrder merges fields into orders/{id}.
	UpdateOrder(ctx context.Context, id string, fields map[string]any) error

	// Subscribe streams the orders whose field equals value.
	Subscribe(ctx context.Context, field, value string) (*gateway.Subscription, error)
}

type gatewayRepository struct {
	gw gateway.Gateway
}

// NewGatewayRepository stores orders in the orders collection of gw.
func NewGatewayRepository(gw gateway.Gateway) Repository {
	return &gatewayRepository{gw: gw}
}

func (r *gatewayRepository) CreateOrder(ctx context.Context, o *Order) error {
	id, err := r.gw.Create(ctx, gateway.Orders, o)
	if err != nil {
		return apperr.Unavailable("create order", err)
	}
	o.ID = id
	return nil
}

func (r *gatewayRepository) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	o := &Order{}
	found, err := r.gw.Get(ctx, gateway.Path(gateway.Orders, id), o)
	if err != nil {
		return nil, apperr.Unavailable("get order", err)
	}
	if !found {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	return o, nil
}

func (r *gatewayRepository) ListOrdersBy(ctx context.Context, field, value string) ([]*Order, error) {
	docs, err := r.gw.Query(ctx, gateway.Where(gateway.Orders, field, value))
	if err != nil {
		return nil, apperr.Unavailable("list orders", err)
	}
	return DecodeOrders(docs)
}

func (r *gatewayRepository) UpdateOrder(ctx context.Context, id string, fields map[string]any) error {
	if err := r.gw.Update(ctx, gateway.Path(gateway.Orders, id), fields); err != nil {
		return apperr.Unavailable("update order", err)
	}
	return nil
}

func (r *gatewayRepository) Subscribe(ctx context.Context, field, value string) (*gateway.Subscription, error) {
	sub, err := r.gw.Subscribe(ctx, gateway.Where(gateway.Orders, field, value))
	if err != nil {
		return nil, apperr.Unavailable("subscribe orders", err)
	}
	return sub, nil
}

// DecodeOrders converts snapshot documents into orders.
func DecodeOrders(docs []gateway.Document) ([]*Order, error) {
	out := make([]*Order, 0, len(docs))
	for _, d := range docs {
		o := &Order{}
		if err := d.Decode(o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", d.ID, err)
		}
		out = append(out, o)
	}
	return out, nil
}

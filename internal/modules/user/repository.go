package user

import (
	"context"
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
)

// Repository defines data access for user records.
type Repository interface {
	// Create stores rec under users/{rec.ID}.
	Create(ctx context.Context, rec *Record) error

	// GetByID returns apperr.ErrNotFound when no record exists.
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetByEmail looks a record up by its normalized email.
	GetByEmail(ctx context.Context, email string) (*Record, error)

	// Update merges fields into users/{id}.
	Update(ctx context.Context, id string, fields map[string]any) error
}

type gatewayRepository struct {
	gw gateway.Gateway
}

// NewGatewayRepository stores users in the users collection of gw.
func NewGatewayRepository(gw gateway.Gateway) Repository {
	return &gatewayRepository{gw: gw}
}

func (r *gatewayRepository) Create(ctx context.Context, rec *Record) error {
	fields, err := gateway.Fields(rec)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.gw.Update(ctx, gateway.Path(gateway.Users, rec.ID), fields); err != nil {
		return apperr.Unavailable("create user", err)
	}
	return nil
}

func (r *gatewayRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	found, err := r.gw.Get(ctx, gateway.Path(gateway.Users, id), rec)
	if err != nil {
		return nil, apperr.Unavailable("get user", err)
	}
	if !found {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return rec, nil
}

func (r *gatewayRepository) GetByEmail(ctx context.Context, email string) (*Record, error) {
	docs, err := r.gw.Query(ctx, gateway.Where(gateway.Users, "email", email))
	if err != nil {
		return nil, apperr.Unavailable("find user by email", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
	}
	rec := &Record{}
	if err := docs[0].Decode(rec); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", docs[0].ID, err)
	}
	return rec, nil
}

func (r *gatewayRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.gw.Update(ctx, gateway.Path(gateway.Users, id), fields); err != nil {
		return apperr.Unavailable("update user", err)
	}
	return nil
}

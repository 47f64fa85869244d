package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

func newTestService(t *testing.T) (Service, gateway.Gateway) {
	t.Helper()
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })
	return NewService(NewGatewayRepository(gw)), gw
}

func TestCreate_CustomerProfile(t *testing.T) {
	svc, gw := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, NewUser{
		Role:  session.RoleCustomer,
		Name:  " Asha ",
		Email: "Asha@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, "asha@example.com", p.Email)
	require.NotNil(t, p.Customer)
	assert.Nil(t, p.Owner)
	assert.Empty(t, p.Customer.Favorites)

	var stored map[string]any
	found, err := gw.Get(ctx, gateway.Path(gateway.Users, p.ID), &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "customer", stored["role"])
}

func TestCreate_ShopOwnerNeedsSeed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Role: session.RoleShop, Name: "Ravi", Email: "ravi@example.com"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "shopName")

	p, err := svc.Create(ctx, NewUser{
		Role:  session.RoleShop,
		Name:  "Ravi",
		Email: "ravi@example.com",
		Seed:  &ShopSeed{ShopName: "Ravi Kirana", ShopCategory: "grocery", ShopGpayNumber: "98450"},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Owner)
	assert.Nil(t, p.Customer)
	assert.Equal(t, "Ravi Kirana", p.Owner.Seed.ShopName)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Role: session.RoleCustomer, Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewUser{Role: session.RoleCustomer, Name: "B", Email: "A@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), NewUser{Role: "admin", Email: "nope"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role")
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, NewUser{Role: session.RoleCustomer, Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	name, phone := "Anita", "98450 12345"
	updated, err := svc.UpdateProfile(ctx, p.ID, UpdateProfileRequest{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Anita", updated.Name)
	assert.Equal(t, session.RoleCustomer, updated.Role)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "98450 12345", got.Phone)

	_, err = svc.UpdateProfile(ctx, p.ID, UpdateProfileRequest{Seed: &ShopSeed{ShopName: "x"}})
	assert.ErrorIs(t, err, apperr.ErrForbidden, "customers have no shop seed")
}

func TestToggleFavorite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, NewUser{Role: session.RoleCustomer, Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	p, err = svc.ToggleFavorite(ctx, p.ID, "shop-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-1"}, p.Customer.Favorites)

	p, err = svc.ToggleFavorite(ctx, p.ID, "shop-2")
	require.NoError(t, err)
	p, err = svc.ToggleFavorite(ctx, p.ID, "shop-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-2"}, p.Customer.Favorites)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-2"}, got.Customer.Favorites)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

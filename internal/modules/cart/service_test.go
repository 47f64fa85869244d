package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/modules/catalog"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
)

type mockProducts struct{ mock.Mock }

func (m *mockProducts) Get(ctx context.Context, shopID, id string) (*catalog.Product, error) {
	args := m.Called(ctx, shopID, id)
	p, _ := args.Get(0).(*catalog.Product)
	return p, args.Error(1)
}

type mockShops struct{ mock.Mock }

func (m *mockShops) Get(ctx context.Context, id string) (*shop.Shop, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*shop.Shop)
	return s, args.Error(1)
}

func TestService_AddProduct(t *testing.T) {
	products, shops := new(mockProducts), new(mockShops)
	svc := NewService(NewRegistry(), products, shops)
	ctx := context.Background()

	shops.On("Get", ctx, "s1").Return(&shop.Shop{ID: "s1", Name: "Ravi Kirana", Status: shop.StatusOnline}, nil)
	products.On("Get", ctx, "s1", "rice").Return(&catalog.Product{
		ID: "rice", ShopID: "s1", Name: "Rice", Price: decimal.NewFromInt(60), InStock: true,
	}, nil)

	v, err := svc.AddProduct(ctx, "sess", AddProductRequest{ShopID: "s1", ProductID: "rice", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Ravi Kirana", v.Items[0].ShopName)
	assert.Equal(t, 2, v.ItemCount)
	assert.True(t, decimal.NewFromInt(120).Equal(v.Total))

	v, err = svc.AddProduct(ctx, "sess", AddProductRequest{ShopID: "s1", ProductID: "rice"})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Items[0].Quantity)

	products.AssertExpectations(t)
	shops.AssertExpectations(t)
}

func TestService_AddProduct_OutOfStock(t *testing.T) {
	products, shops := new(mockProducts), new(mockShops)
	svc := NewService(NewRegistry(), products, shops)
	ctx := context.Background()

	shops.On("Get", ctx, "s1").Return(&shop.Shop{ID: "s1", Status: shop.StatusOnline}, nil)
	products.On("Get", ctx, "s1", "rice").Return(&catalog.Product{ID: "rice", ShopID: "s1", Name: "Rice"}, nil)

	_, err := svc.AddProduct(ctx, "sess", AddProductRequest{ShopID: "s1", ProductID: "rice"})
	assert.ErrorIs(t, err, apperr.ErrUnprocessable)
	assert.Empty(t, svc.View("sess").Items)
}

func TestService_AddProduct_OfflineShop(t *testing.T) {
	products, shops := new(mockProducts), new(mockShops)
	svc := NewService(NewRegistry(), products, shops)
	ctx := context.Background()

	shops.On("Get", ctx, "s1").Return(&shop.Shop{ID: "s1", Status: shop.StatusOffline}, nil)

	_, err := svc.AddProduct(ctx, "sess", AddProductRequest{ShopID: "s1", ProductID: "rice"})
	assert.ErrorIs(t, err, apperr.ErrUnprocessable)
	products.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_AddProduct_LookupFailure(t *testing.T) {
	products, shops := new(mockProducts), new(mockShops)
	svc := NewService(NewRegistry(), products, shops)
	ctx := context.Background()

	shops.On("Get", ctx, "s1").Return(nil, apperr.Unavailable("get shop", fmt.Errorf("timeout")))

	_, err := svc.AddProduct(ctx, "sess", AddProductRequest{ShopID: "s1", ProductID: "rice"})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestService_AddCustomAndUpdate(t *testing.T) {
	products, shops := new(mockProducts), new(mockShops)
	svc := NewService(NewRegistry(), products, shops)
	ctx := context.Background()
	shops.On("Get", ctx, "s1").Return(&shop.Shop{ID: "s1", Name: "Ravi Kirana"}, nil)

	v, err := svc.AddCustom(ctx, "sess", AddCustomRequest{ShopID: "s1", Name: "Fresh paneer"})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	id := v.Items[0].ID
	assert.True(t, v.Items[0].IsCustom)
	assert.Equal(t, 1, v.Items[0].Quantity)

	v = svc.UpdateQuantity("sess", id, 4)
	assert.Equal(t, 4, v.ItemCount)

	v = svc.UpdateQuantity("sess", id, 0)
	assert.Empty(t, v.Items)

	_, err = svc.AddCustom(ctx, "sess", AddCustomRequest{ShopID: "s1", Name: ""})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

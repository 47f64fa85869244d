package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/modules/cart"
	"github.com/georgemunganga/prepick-backend/internal/modules/order"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

var customer = session.Identity{SessionID: "sess-1", UserID: "cust-1", Role: session.RoleCustomer, Name: "Asha", Email: "asha@example.com"}

func item(id, shopID string, price int64, qty int) cart.Item {
	return cart.Item{ID: id, ShopID: shopID, Name: id, Price: decimal.NewFromInt(price), Quantity: qty}
}

func TestGroupByShop_TotalsAndPartials(t *testing.T) {
	groups := GroupByShop([]cart.Item{
		item("pen", "A", 10, 2),
		item("soap", "B", 7, 3),
		item("tea", "A", 5, 1),
	})
	require.Len(t, groups, 2)

	assert.Equal(t, "A", groups[0].ShopID)
	assert.Len(t, groups[0].Items, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(groups[0].Total))
	assert.True(t, decimal.NewFromInt(13).Equal(groups[0].Partial))

	assert.Equal(t, "B", groups[1].ShopID)
	assert.True(t, decimal.NewFromInt(21).Equal(groups[1].Total))
	assert.True(t, decimal.NewFromInt(11).Equal(groups[1].Partial))
}

func TestGroupByShop_Empty(t *testing.T) {
	assert.Empty(t, GroupByShop(nil))
}

func TestPartialPayment_RoundsUp(t *testing.T) {
	assert.True(t, decimal.NewFromInt(85).Equal(PartialPayment(decimal.NewFromInt(170))))
	assert.True(t, decimal.NewFromInt(1).Equal(PartialPayment(decimal.RequireFromString("0.5"))))
	assert.True(t, decimal.Zero.Equal(PartialPayment(decimal.Zero)))
}

type fixture struct {
	svc     Service
	carts   *cart.Registry
	orders  order.Service
	shops   shop.Service
	metrics *metrics.Metrics
}

func setup(t *testing.T) fixture {
	t.Helper()
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })
	m := metrics.New()
	shops := shop.NewService(shop.NewGatewayRepository(gw))
	orders := order.NewService(order.NewGatewayRepository(gw), shops, m)
	carts := cart.NewRegistry()
	return fixture{svc: NewService(carts, orders, shops, m), carts: carts, orders: orders, shops: shops, metrics: m}
}

func (f fixture) openShop(t *testing.T, ownerID, name, gpay string) *shop.Shop {
	t.Helper()
	sh, err := f.shops.Create(context.Background(),
		session.Identity{UserID: ownerID, Role: session.RoleShop},
		user.ShopSeed{ShopName: name, ShopGpayNumber: gpay})
	require.NoError(t, err)
	return sh
}

func TestCheckout_SingleShop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sh := f.openShop(t, "owner-1", "Ravi Kirana", "9876543210")

	c := f.carts.For(customer.SessionID)
	c.Add(item("rice", sh.ID, 60, 1), 2)
	c.Add(item("sugar", sh.ID, 50, 1), 1)

	res, err := f.svc.Checkout(ctx, customer)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Empty(t, res.Failures)

	o := res.Orders[0].Order
	assert.True(t, decimal.NewFromInt(170).Equal(o.TotalAmount))
	assert.True(t, decimal.NewFromInt(85).Equal(o.PartialPayment))
	assert.Equal(t, order.StatusPending, o.OrderStatus)
	assert.Equal(t, order.PaymentPartial, o.PaymentStatus)
	assert.Equal(t, "Ravi Kirana", o.ShopName)
	assert.Equal(t, "asha@example.com", o.CustomerEmail)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 2, o.Items[0].Quantity)

	pay := res.Orders[0].Payment
	assert.True(t, decimal.NewFromInt(85).Equal(pay.Amount))
	assert.True(t, decimal.NewFromInt(85).Equal(pay.Balance))
	assert.Equal(t, "9876543210", pay.GpayNumber)

	assert.Zero(t, c.Len())
	assert.Zero(t, res.Cart.ItemCount)

	stored, err := f.orders.ListCustomerOrders(ctx, customer.UserID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCheckout_OneOrderPerShop(t *testing.T) {
	f := setup(t)
	a := f.openShop(t, "owner-1", "A", "")
	b := f.openShop(t, "owner-2", "B", "")

	c := f.carts.For(customer.SessionID)
	c.Add(item("pen", a.ID, 10, 1), 2)
	c.Add(item("soap", b.ID, 7, 1), 3)
	c.Add(item("tea", a.ID, 5, 1), 1)

	res, err := f.svc.Checkout(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, a.ID, res.Orders[0].Order.ShopID)
	assert.True(t, decimal.NewFromInt(13).Equal(res.Orders[0].Order.PartialPayment))
	assert.Equal(t, b.ID, res.Orders[1].Order.ShopID)
	assert.True(t, decimal.NewFromInt(11).Equal(res.Orders[1].Order.PartialPayment))
	assert.Contains(t, res.Orders[0].Payment.Note, "Please pay 13 via Google Pay to N/A.")
}

func TestCheckout_FailedGroupStaysInCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	open := f.openShop(t, "owner-1", "Open", "")
	closed := f.openShop(t, "owner-2", "Closed", "")
	_, err := f.shops.SetStatus(ctx, session.Identity{UserID: "owner-2", Role: session.RoleShop}, closed.ID, shop.StatusOffline)
	require.NoError(t, err)

	c := f.carts.For(customer.SessionID)
	c.Add(item("pen", open.ID, 10, 1), 1)
	c.Add(item("soap", closed.ID, 7, 1), 1)
	c.Add(item("ghost", "missing-shop", 3, 1), 1)

	res, err := f.svc.Checkout(ctx, customer)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, open.ID, res.Orders[0].Order.ShopID)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, closed.ID, res.Failures[0].ShopID)
	assert.Equal(t, "missing-shop", res.Failures[1].ShopID)

	left := c.Items()
	require.Len(t, left, 2)
	assert.Equal(t, "soap", left[0].ID)
	assert.Equal(t, "ghost", left[1].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.CheckoutGroupsFailed))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Checkout(context.Background(), customer)
	assert.Error(t, err)
}

func TestCheckoutShop_LeavesOtherShops(t *testing.T) {
	f := setup(t)
	a := f.openShop(t, "owner-1", "A", "")
	b := f.openShop(t, "owner-2", "B", "")
	c := f.carts.For(customer.SessionID)
	c.Add(item("pen", a.ID, 10, 1), 1)
	c.Add(item("soap", b.ID, 7, 1), 1)

	res, err := f.svc.CheckoutShop(context.Background(), customer, b.ID)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, b.ID, res.Orders[0].Order.ShopID)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "pen", c.Items()[0].ID)

	_, err = f.svc.CheckoutShop(context.Background(), customer, "not-in-cart")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	f := setup(t)
	c := f.carts.For(customer.SessionID)
	c.Add(item("pen", "A", 10, 1), 2)
	c.Add(item("soap", "B", 7, 1), 3)
	c.Add(item("tea", "A", 5, 1), 1)

	p, err := f.svc.Preview(context.Background(), customer)
	require.NoError(t, err)
	assert.Len(t, p.Groups, 2)
	assert.True(t, decimal.NewFromInt(46).Equal(p.Total))
	assert.True(t, decimal.NewFromInt(24).Equal(p.Partial))
	assert.Equal(t, 3, c.Len(), "preview leaves the cart alone")
}

// slowOrders delays every Place so concurrent checkouts overlap.
type slowOrders struct {
	Orders
	delay time.Duration
}

func (s slowOrders) Place(ctx context.Context, o *order.Order) (*order.Order, error) {
	time.Sleep(s.delay)
	return s.Orders.Place(ctx, o)
}

func TestCheckout_DoubleSubmitPlacesOnce(t *testing.T) {
	f := setup(t)
	sh := f.openShop(t, "owner-1", "Ravi Kirana", "")
	svc := NewService(f.carts, slowOrders{Orders: f.orders, delay: 50 * time.Millisecond}, f.shops, f.metrics)
	f.carts.For(customer.SessionID).Add(item("rice", sh.ID, 60, 1), 2)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
		failed int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Checkout(context.Background(), customer)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			placed += len(res.Orders)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, failed, "the second submit finds the cart empty")
	stored, err := f.orders.ListCustomerOrders(context.Background(), customer.UserID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCheckout_KeepsItemsAddedMeanwhile(t *testing.T) {
	f := setup(t)
	sh := f.openShop(t, "owner-1", "Ravi Kirana", "")
	svc := NewService(f.carts, slowOrders{Orders: f.orders, delay: 50 * time.Millisecond}, f.shops, f.metrics)
	c := f.carts.For(customer.SessionID)
	c.Add(item("rice", sh.ID, 60, 1), 2)

	done := make(chan *Result, 1)
	go func() {
		res, err := svc.Checkout(context.Background(), customer)
		assert.NoError(t, err)
		done <- res
	}()
	time.Sleep(20 * time.Millisecond)
	c.Add(item("sugar", sh.ID, 50, 1), 1)
	c.Add(item("rice", sh.ID, 60, 1), 1)

	res := <-done
	require.NotNil(t, res)
	require.Len(t, res.Orders, 1)
	require.Len(t, res.Orders[0].Order.Items, 1)
	assert.Equal(t, 2, res.Orders[0].Order.Items[0].Quantity)

	left := c.Items()
	require.Len(t, left, 2)
	assert.Equal(t, "rice", left[0].ID)
	assert.Equal(t, 1, left[0].Quantity)
	assert.Equal(t, "sugar", left[1].ID)
}

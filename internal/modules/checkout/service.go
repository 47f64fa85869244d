package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/modules/cart"
	"github.com/georgemunganga/prepick-backend/internal/modules/order"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Orders places orders.
type Orders interface {
	Place(ctx context.Context, o *order.Order) (*order.Order, error)
}

// Shops looks shops up.
type Shops interface {
	Get(ctx context.Context, id string) (*shop.Shop, error)
}

// PaymentInstruction tells the customer what to pay up front and where.
type PaymentInstruction struct {
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balanceAtPickup"`
	GpayNumber string          `json:"gpayNumber"`
	Note       string          `json:"note"`
}

// Placed is one order created by a checkout.
type Placed struct {
	Order   *order.Order       `json:"order"`
	Payment PaymentInstruction `json:"payment"`
}

// Failure is a shop group that could not be ordered. Its items stay in the
// cart.
type Failure struct {
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
	Error    string `json:"error"`
}

// Preview is the cart split into the orders a checkout would place.
type Preview struct {
	Groups  []Group         `json:"groups"`
	Total   decimal.Decimal `json:"total"`
	Partial decimal.Decimal `json:"partialPayment"`
}

// Result reports every group of a checkout.
type Result struct {
	Orders   []Placed  `json:"orders"`
	Failures []Failure `json:"failures"`
	Cart     cart.View `json:"cart"`
}

// Service defines checkout for the signed-in customer.
type Service interface {
	// Preview groups the cart without placing anything.
	Preview(ctx context.Context, customer session.Identity) (Preview, error)

	// Checkout places one order per shop in the cart. Each shop is written
	// independently; a failed shop neither blocks nor undoes the others.
	Checkout(ctx context.Context, customer session.Identity) (*Result, error)

	// CheckoutShop places the order of a single shop in the cart.
	CheckoutShop(ctx context.Context, customer session.Identity, shopID string) (*Result, error)
}

type service struct {
	carts   *cart.Registry
	orders  Orders
	shops   Shops
	metrics *metrics.Metrics
}

// NewService creates a checkout service. m may be nil.
func NewService(carts *cart.Registry, orders Orders, shops Shops, m *metrics.Metrics) Service {
	return &service{carts: carts, orders: orders, shops: shops, metrics: m}
}

func (s *service) Preview(_ context.Context, customer session.Identity) (Preview, error) {
	groups := GroupByShop(s.carts.For(customer.SessionID).Items())
	p := Preview{Groups: groups, Total: decimal.Zero, Partial: decimal.Zero}
	if p.Groups == nil {
		p.Groups = []Group{}
	}
	for _, g := range groups {
		p.Total = p.Total.Add(g.Total)
		p.Partial = p.Partial.Add(g.Partial)
	}
	return p, nil
}

func (s *service) Checkout(ctx context.Context, customer session.Identity) (*Result, error) {
	return s.place(ctx, customer, "")
}

func (s *service) CheckoutShop(ctx context.Context, customer session.Identity, shopID string) (*Result, error) {
	if shopID == "" {
		return nil, apperr.Invalid("shopId", "is required")
	}
	return s.place(ctx, customer, shopID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// place orders every group of the cart, or only shopID's when it is set.
// Checkouts of one cart run one at a time, and only the ordered lines are
// taken out of it.
func (s *service) place(ctx context.Context, customer session.Identity, shopID string) (*Result, error) {
	c := s.carts.For(customer.SessionID)
	end := c.BeginCheckout()
	defer end()

	groups := GroupByShop(c.Items())
	if shopID != "" {
		groups = only(groups, shopID)
	}
	if len(groups) == 0 {
		return nil, apperr.Invalid("cart", "is empty")
	}

	log := logger.FromCtx(ctx)
	res := &Result{Orders: []Placed{}, Failures: []Failure{}}
	for _, g := range groups {
		placed, err := s.placeGroup(ctx, customer, g)
		if err != nil {
			log.Warn("checkout: shop order failed", "shop_id", g.ShopID, "error", err)
			if s.metrics != nil {
				s.metrics.CheckoutGroupsFailed.Inc()
			}
			res.Failures = append(res.Failures, Failure{ShopID: g.ShopID, ShopName: g.ShopName, Error: message(err)})
			continue
		}
		c.Subtract(g.Items)
		res.Orders = append(res.Orders, placed)
	}
	res.Cart = cart.ViewOf(c)
	return res, nil
}

func (s *service) placeGroup(ctx context.Context, customer session.Identity, g Group) (Placed, error) {
	sh, err := s.shops.Get(ctx, g.ShopID)
	if err != nil {
		return Placed{}, err
	}
	if sh.Status == shop.StatusOffline {
		return Placed{}, fmt.Errorf("shop %s is offline: %w", sh.Name, apperr.ErrUnprocessable)
	}

	items := make([]order.Item, 0, len(g.Items))
	for _, it := range g.Items {
		items = append(items, order.Item{
			ProductID: it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			IsCustom:  it.IsCustom,
		})
	}
	o, err := s.orders.Place(ctx, &order.Order{
		CustomerID:     customer.UserID,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		ShopID:         sh.ID,
		ShopName:       sh.Name,
		Items:          items,
		TotalAmount:    g.Total,
		PartialPayment: g.Partial,
	})
	if err != nil {
		return Placed{}, err
	}
	return Placed{Order: o, Payment: Instruction(o, sh)}, nil
}

// Instruction describes the up-front payment of o to sh.
func Instruction(o *order.Order, sh *shop.Shop) PaymentInstruction {
	note := fmt.Sprintf("Please pay %s via Google Pay to %s. The shop will confirm your order once payment is received.",
		o.PartialPayment.String(), orNA(sh.GpayNumber))
	return PaymentInstruction{
		Amount:     o.PartialPayment,
		Balance:    o.TotalAmount.Sub(o.PartialPayment),
		GpayNumber: sh.GpayNumber,
		Note:       note,
	}
}

func only(groups []Group, shopID string) []Group {
	for _, g := range groups {
		if g.ShopID == shopID {
			return []Group{g}
		}
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// message is the client-safe text of a group failure.
func message(err error) string {
	if errors.Is(err, apperr.ErrUnavailable) {
		return httpx.UnavailableMessage
	}
	return err.Error()
}

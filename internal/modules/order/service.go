package order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// ErrInvalidTransition is returned for any status change other than the
// next single step.
var ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", apperr.ErrUnprocessable)

// Shops is the part of the shop service orders need.
type Shops interface {
	Get(ctx context.Context, id string) (*shop.Shop, error)
}

// Service defines the order management business logic.
type Service interface {
	// Place stores o as a new pending order with a partial payment due.
	Place(ctx context.Context, o *Order) (*Order, error)

	// GetOrder returns an order visible to viewer: their own as a customer,
	// their shop's as an owner.
	GetOrder(ctx context.Context, viewer session.Identity, id string) (*Order, error)

	// ListCustomerOrders returns a customer's orders, newest first.
	ListCustomerOrders(ctx context.Context, customerID string) ([]*Order, error)

	// ListShopOrders returns a shop's orders, newest first, optionally
	// filtered by status.
	ListShopOrders(ctx context.Context, owner session.Identity, shopID, status string) ([]*Order, error)

	// Confirm moves a pending order to confirmed with a pickup time.
	Confirm(ctx context.Context, owner session.Identity, id, readyBy string) (*Order, error)

	// MarkReady moves a confirmed order to ready.
	MarkReady(ctx context.Context, owner session.Identity, id string) (*Order, error)

	// Complete moves a ready order to completed.
	Complete(ctx context.Context, owner session.Identity, id string) (*Order, error)

	// Advance applies req through the transition table.
	Advance(ctx context.Context, owner session.Identity, id string, req AdvanceRequest) (*Order, error)

	// WatchCustomer streams a customer's orders.
	WatchCustomer(ctx context.Context, customerID string) (*gateway.Subscription, error)

	// WatchShop streams a shop's orders; only its owner may watch.
	WatchShop(ctx context.Context, owner session.Identity, shopID string) (*gateway.Subscription, error)
}

type service struct {
	repo    Repository
	shops   Shops
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a new order service.
func NewService(repo Repository, shops Shops, m *metrics.Metrics) Service {
	return &service{repo: repo, shops: shops, metrics: m, now: time.Now}
}

// validTransitions defines the allowed status state machine. Each status
// has exactly one successor.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed},
	StatusConfirmed: {StatusReady},
	StatusReady:     {StatusCompleted},
	StatusCompleted: {},
}

// CanTransition reports whether from → to is a legal single step.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *service) Place(ctx context.Context, o *Order) (*Order, error) {
	if len(o.Items) == 0 {
		return nil, apperr.Invalid("items", "order must contain at least one item")
	}
	if o.ShopID == "" {
		return nil, apperr.Invalid("shopId", "is required")
	}
	if o.CustomerID == "" {
		return nil, apperr.Invalid("customerId", "is required")
	}
	for i, it := range o.Items {
		if it.Quantity < 1 {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}

	now := s.now().UTC()
	o.ID = ""
	o.OrderStatus = StatusPending
	o.PaymentStatus = PaymentPartial
	o.CreatedAt, o.UpdatedAt = now, now
	o.CompletedAt = nil

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}
	if s.metrics != nil {
		s.metrics.OrdersPlaced.Inc()
	}
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, viewer session.Identity, id string) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.IsShop() {
		if err := s.checkOwner(ctx, viewer, o.ShopID); err != nil {
			return nil, err
		}
		return o, nil
	}
	if o.CustomerID != viewer.UserID {
		return nil, fmt.Errorf("order %s belongs to another customer: %w", id, apperr.ErrForbidden)
	}
	return o, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID string) ([]*Order, error) {
	orders, err := s.repo.ListOrdersBy(ctx, "customerId", customerID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(orders)
	return orders, nil
}

func (s *service) ListShopOrders(ctx context.Context, owner session.Identity, shopID, status string) ([]*Order, error) {
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrdersBy(ctx, "shopId", shopID)
	if err != nil {
		return nil, err
	}
	if status != "" {
		want := OrderStatus(strings.ToLower(status))
		filtered := orders[:0]
		for _, o := range orders {
			if o.OrderStatus == want {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	SortNewestFirst(orders)
	return orders, nil
}

func (s *service) Confirm(ctx context.Context, owner session.Identity, id, readyBy string) (*Order, error) {
	return s.Advance(ctx, owner, id, AdvanceRequest{Status: string(StatusConfirmed), ReadyBy: readyBy})
}

func (s *service) MarkReady(ctx context.Context, owner session.Identity, id string) (*Order, error) {
	return s.Advance(ctx, owner, id, AdvanceRequest{Status: string(StatusReady)})
}

func (s *service) Complete(ctx context.Context, owner session.Identity, id string) (*Order, error) {
	return s.Advance(ctx, owner, id, AdvanceRequest{Status: string(StatusCompleted)})
}

func (s *service) Advance(ctx context.Context, owner session.Identity, id string, req AdvanceRequest) (*Order, error) {
	newStatus := OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	readyBy := strings.TrimSpace(req.ReadyBy)
	if newStatus == StatusConfirmed && readyBy == "" {
		return nil, apperr.Invalid("readyBy", "is required when confirming")
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, owner, o.ShopID); err != nil {
		return nil, err
	}
	if !CanTransition(o.OrderStatus, newStatus) {
		return nil, fmt.Errorf("cannot transition order from %s to %s: %w", o.OrderStatus, newStatus, ErrInvalidTransition)
	}

	now := s.now().UTC()
	fields := map[string]any{
		"orderStatus": newStatus,
		"updatedAt":   now,
	}
	switch newStatus {
	case StatusConfirmed:
		o.ReadyBy = readyBy
		fields["readyBy"] = readyBy
	case StatusCompleted:
		o.CompletedAt = &now
		fields["completedAt"] = now
	}
	if err := s.repo.UpdateOrder(ctx, id, fields); err != nil {
		return nil, err
	}
	o.OrderStatus = newStatus
	o.UpdatedAt = now
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
	}
	return o, nil
}

func (s *service) WatchCustomer(ctx context.Context, customerID string) (*gateway.Subscription, error) {
	return s.repo.Subscribe(ctx, "customerId", customerID)
}

func (s *service) WatchShop(ctx context.Context, owner session.Identity, shopID string) (*gateway.Subscription, error) {
	if err := s.checkOwner(ctx, owner, shopID); err != nil {
		return nil, err
	}
	return s.repo.Subscribe(ctx, "shopId", shopID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) checkOwner(ctx context.Context, owner session.Identity, shopID string) error {
	sh, err := s.shops.Get(ctx, shopID)
	if err != nil {
		return err
	}
	if !owner.IsShop() || sh.OwnerID != owner.UserID {
		return fmt.Errorf("shop %s belongs to another owner: %w", shopID, apperr.ErrForbidden)
	}
	return nil
}

// SortNewestFirst orders by creation time, most recent first.
func SortNewestFirst(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
)

// PaymentStatus tracks what the customer has paid.
type PaymentStatus string

const (
	// PaymentPartial means half the total is due up front, the rest at pickup.
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is one customer's purchase from one shop.
type Order struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	CustomerEmail  string          `json:"customerEmail"`
	ShopID         string          `json:"shopId"`
	ShopName       string          `json:"shopName"`
	Items          []Item          `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PartialPayment decimal.Decimal `json:"partialPayment"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	OrderStatus    OrderStatus     `json:"orderStatus"`
	ReadyBy        string          `json:"readyBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// Item is a single line of an order.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	IsCustom  bool            `json:"isCustom"`
}

// AdvanceRequest is the payload for moving an order forward.
type AdvanceRequest struct {
	Status string `json:"status"`
	// ReadyBy is required when confirming, e.g. "5:30 PM".
	ReadyBy string `json:"readyBy,omitempty"`
}

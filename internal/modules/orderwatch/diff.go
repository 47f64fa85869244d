// Package orderwatch turns order snapshots into notifications: status
// changes for customers and newly placed orders for shop owners.
package orderwatch

import (
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/modules/notify"
	"github.com/georgemunganga/prepick-backend/internal/modules/order"
)

// Statuses maps order id to its last observed status.
type Statuses map[string]order.OrderStatus

// StatusesOf records the status of every order in orders.
func StatusesOf(orders []*order.Order) Statuses {
	out := make(Statuses, len(orders))
	for _, o := range orders {
		out[o.ID] = o.OrderStatus
	}
	return out
}

// Diff returns one event per order present in both prev and next whose
// status changed and whose new status is announced. A nil prev is treated
// as empty. Events follow the order of next.
func Diff(prev Statuses, next []*order.Order) []notify.Event {
	var events []notify.Event
	for _, o := range next {
		before, known := prev[o.ID]
		if !known || before == o.OrderStatus {
			continue
		}
		if e, ok := StatusEvent(o); ok {
			events = append(events, e)
		}
	}
	return events
}

// StatusEvent describes o's current status for its customer. Pending and
// unrecognised statuses are not announced.
func StatusEvent(o *order.Order) (notify.Event, bool) {
	e := notify.Event{Type: string(o.OrderStatus), OrderID: o.ID}
	switch o.OrderStatus {
	case order.StatusConfirmed:
		e.Title = "Order Confirmed"
		e.Message = "Your order will be ready by " + orDefault(o.ReadyBy, "soon")
	case order.StatusReady:
		e.Title = "Order Ready for Pickup"
		e.Message = "Your order is ready at " + orDefault(o.ShopName, "the shop") + "!"
	case order.StatusCompleted:
		e.Title = "Order Completed"
		e.Message = "Thank you for your purchase!"
	default:
		return notify.Event{}, false
	}
	return e, true
}

// NewOrderEvent announces o to its shop owner.
func NewOrderEvent(o *order.Order) notify.Event {
	short := o.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return notify.Event{
		Type:    "order",
		Title:   "New Order Received",
		Message: fmt.Sprintf("Order #%s - %s from %s", short, o.TotalAmount.String(), orDefault(o.CustomerName, "Customer")),
		OrderID: o.ID,
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

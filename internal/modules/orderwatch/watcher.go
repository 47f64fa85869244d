package orderwatch

import (
	"context"

	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/modules/notify"
	"github.com/georgemunganga/prepick-backend/internal/modules/order"
)

// Observer consumes successive order snapshots and returns the events each
// one produces.
type Observer interface {
	Observe(orders []*order.Order) []notify.Event
}

// StatusTracker announces status changes between consecutive snapshots.
type StatusTracker struct {
	prev Statuses
}

func (t *StatusTracker) Observe(orders []*order.Order) []notify.Event {
	events := Diff(t.prev, orders)
	t.prev = StatusesOf(orders)
	return events
}

// NewOrderTracker announces orders that were not in any earlier snapshot.
// The first snapshot is the baseline.
type NewOrderTracker struct {
	seen   map[string]struct{}
	primed bool
}

func (t *NewOrderTracker) Observe(orders []*order.Order) []notify.Event {
	if t.seen == nil {
		t.seen = map[string]struct{}{}
	}
	var events []notify.Event
	for _, o := range orders {
		if _, ok := t.seen[o.ID]; ok {
			continue
		}
		t.seen[o.ID] = struct{}{}
		if t.primed {
			events = append(events, NewOrderEvent(o))
		}
	}
	t.primed = true
	return events
}

// Watcher feeds one subscription through an Observer and publishes the
// resulting events to a single user.
type Watcher struct {
	userID    string
	observer  Observer
	publisher notify.Publisher
}

// NewCustomerWatcher reports status changes of a customer's orders.
func NewCustomerWatcher(customerID string, pub notify.Publisher) *Watcher {
	return &Watcher{userID: customerID, observer: &StatusTracker{}, publisher: pub}
}

// NewShopWatcher reports new orders of a shop to its owner.
func NewShopWatcher(ownerID string, pub notify.Publisher) *Watcher {
	return &Watcher{userID: ownerID, observer: &NewOrderTracker{}, publisher: pub}
}

// Handle processes one snapshot.
func (w *Watcher) Handle(ctx context.Context, snap gateway.Snapshot) {
	for _, e := range w.observer.Observe(decode(ctx, snap)) {
		w.publisher.Publish(w.userID, e)
	}
}

// Run handles snapshots until sub ends or ctx is cancelled, then closes sub.
func (w *Watcher) Run(ctx context.Context, sub *gateway.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			w.Handle(ctx, snap)
		}
	}
}

// decode skips documents that are not orders.
func decode(ctx context.Context, snap gateway.Snapshot) []*order.Order {
	out := make([]*order.Order, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		o := &order.Order{}
		if err := d.Decode(o); err != nil {
			logger.FromCtx(ctx).Warn("orderwatch: skipping malformed order", "id", d.ID, "error", err)
			continue
		}
		if o.ID == "" {
			o.ID = d.ID
		}
		out = append(out, o)
	}
	return out
}

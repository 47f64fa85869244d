package orderwatch

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/modules/order"
)

func ord(id string, status order.OrderStatus) *order.Order {
	return &order.Order{ID: id, OrderStatus: status}
}

func TestDiff_TransitionEmitsOnce(t *testing.T) {
	events := Diff(Statuses{"order1": order.StatusPending}, []*order.Order{ord("order1", order.StatusConfirmed)})
	require.Len(t, events, 1)
	assert.Equal(t, "confirmed", events[0].Type)
	assert.Equal(t, "order1", events[0].OrderID)
}

func TestDiff_NewOrderIsBaselineOnly(t *testing.T) {
	assert.Empty(t, Diff(Statuses{}, []*order.Order{ord("order1", order.StatusPending)}))
	assert.Empty(t, Diff(nil, []*order.Order{ord("order1", order.StatusConfirmed)}))
}

func TestDiff_NoChange(t *testing.T) {
	assert.Empty(t, Diff(Statuses{"order1": order.StatusConfirmed}, []*order.Order{ord("order1", order.StatusConfirmed)}))
}

func TestDiff_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Diff(Statuses{"order1": order.StatusReady}, nil))
	assert.Empty(t, Diff(nil, nil))
}

func TestDiff_ReportsWhateverEdgeIsObserved(t *testing.T) {
	events := Diff(Statuses{"a": order.StatusPending, "b": order.StatusCompleted},
		[]*order.Order{ord("a", order.StatusReady), ord("b", order.StatusConfirmed)})
	require.Len(t, events, 2)
	assert.Equal(t, "ready", events[0].Type)
	assert.Equal(t, "confirmed", events[1].Type)
}

func TestDiff_PendingAndUnknownAreSilent(t *testing.T) {
	assert.Empty(t, Diff(Statuses{"a": order.StatusConfirmed}, []*order.Order{ord("a", order.StatusPending)}))
	assert.Empty(t, Diff(Statuses{"a": order.StatusConfirmed}, []*order.Order{ord("a", "cancelled")}))
}

func TestStatusEvent_Messages(t *testing.T) {
	tests := []struct {
		name    string
		order   *order.Order
		title   string
		message string
	}{
		{"confirmed with time", &order.Order{OrderStatus: order.StatusConfirmed, ReadyBy: "5:30 PM"},
			"Order Confirmed", "Your order will be ready by 5:30 PM"},
		{"confirmed without time", &order.Order{OrderStatus: order.StatusConfirmed},
			"Order Confirmed", "Your order will be ready by soon"},
		{"ready with shop", &order.Order{OrderStatus: order.StatusReady, ShopName: "Ravi Kirana"},
			"Order Ready for Pickup", "Your order is ready at Ravi Kirana!"},
		{"ready without shop", &order.Order{OrderStatus: order.StatusReady},
			"Order Ready for Pickup", "Your order is ready at the shop!"},
		{"completed", &order.Order{OrderStatus: order.StatusCompleted},
			"Order Completed", "Thank you for your purchase!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := StatusEvent(tt.order)
			require.True(t, ok)
			assert.Equal(t, tt.title, e.Title)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestStatusTracker_SameSnapshotTwice(t *testing.T) {
	tr := &StatusTracker{}
	assert.Empty(t, tr.Observe([]*order.Order{ord("order1", order.StatusPending)}))

	next := []*order.Order{ord("order1", order.StatusConfirmed)}
	assert.Len(t, tr.Observe(next), 1)
	assert.Empty(t, tr.Observe(next))
}

func TestNewOrderTracker(t *testing.T) {
	tr := &NewOrderTracker{}
	existing := &order.Order{ID: "existing-order", TotalAmount: decimal.NewFromInt(40)}
	assert.Empty(t, tr.Observe([]*order.Order{existing}), "first snapshot is the baseline")

	fresh := &order.Order{ID: "abcdef123456", TotalAmount: decimal.NewFromInt(170), CustomerName: "Asha"}
	events := tr.Observe([]*order.Order{existing, fresh})
	require.Len(t, events, 1)
	assert.Equal(t, "order", events[0].Type)
	assert.Equal(t, "New Order Received", events[0].Title)
	assert.Equal(t, "Order #abcdef12 - 170 from Asha", events[0].Message)

	assert.Empty(t, tr.Observe([]*order.Order{existing, fresh}))

	anon := &order.Order{ID: "x1", TotalAmount: decimal.NewFromInt(5)}
	events = tr.Observe([]*order.Order{anon})
	require.Len(t, events, 1)
	assert.Equal(t, "Order #x1 - 5 from Customer", events[0].Message)
}

package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/metrics"
)

func TestHub_DeliversToAddressedUserOnly(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m)
	asha := hub.Listen("asha", "s1")
	defer asha.Close()
	ravi := hub.Listen("ravi", "s1")
	defer ravi.Close()

	hub.Publish("asha", Event{Type: "ready", Title: "Order Ready for Pickup"})

	select {
	case e := <-asha.Events():
		assert.Equal(t, "ready", e.Type)
		assert.False(t, e.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	select {
	case e := <-ravi.Events():
		t.Fatalf("unexpected event %+v", e)
	default:
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsEmitted.WithLabelValues("ready")))
}

func TestHub_FanOutToEveryListener(t *testing.T) {
	hub := NewHub(nil)
	a, b := hub.Listen("u", "s1"), hub.Listen("u", "s1")
	hub.Publish("u", Event{Type: "confirmed"})
	assert.Equal(t, "confirmed", (<-a.Events()).Type)
	assert.Equal(t, "confirmed", (<-b.Events()).Type)
}

func TestHub_RecentKeepsLatest(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < historySize+5; i++ {
		hub.Publish("u", Event{Type: "order", Message: fmt.Sprint(i)})
	}
	recent := hub.Recent("u")
	require.Len(t, recent, historySize)
	assert.Equal(t, "5", recent[0].Message)
	assert.Equal(t, fmt.Sprint(historySize+4), recent[historySize-1].Message)

	hub.Forget("u")
	assert.Empty(t, hub.Recent("u"))
}

func TestHub_FullListenerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil)
	l := hub.Listen("u", "s1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < listenerBuffer*2; i++ {
			hub.Publish("u", Event{Type: "order"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow listener")
	}
	assert.Len(t, l.Events(), listenerBuffer)
}

func TestHub_DisconnectClosesListeners(t *testing.T) {
	hub := NewHub(nil)
	l := hub.Listen("u", "s1")
	hub.Disconnect("u", "s1")
	_, open := <-l.Events()
	assert.False(t, open)

	l.Close()
	hub.Publish("u", Event{Type: "order"})
}

func TestHub_DisconnectKeepsOtherSessions(t *testing.T) {
	hub := NewHub(nil)
	phone := hub.Listen("u", "phone")
	laptop := hub.Listen("u", "laptop")

	hub.Disconnect("u", "phone")
	_, open := <-phone.Events()
	assert.False(t, open)

	hub.Publish("u", Event{Type: "order", Title: "New Order Received"})
	select {
	case e, ok := <-laptop.Events():
		require.True(t, ok)
		assert.Equal(t, "New Order Received", e.Title)
	case <-time.After(time.Second):
		t.Fatal("other session stopped receiving events")
	}
}

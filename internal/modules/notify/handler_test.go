package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/session"
)

type countingWatchers struct {
	acquired atomic.Int32
	released atomic.Int32
}

func (c *countingWatchers) Acquire(context.Context, session.Identity) (func(), error) {
	c.acquired.Add(1)
	return func() { c.released.Add(1) }, nil
}

func withIdentity(id session.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
		})
	}
}

func TestFeed_StreamsEventsAndReleasesWatcher(t *testing.T) {
	hub := NewHub(nil)
	watchers := &countingWatchers{}
	r := chi.NewRouter()
	r.Use(withIdentity(session.Identity{UserID: "asha", Role: session.RoleCustomer}))
	NewHandler(hub, watchers, nil, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/notifications/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return watchers.acquired.Load() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("asha", Event{Type: "ready", Title: "Order Ready for Pickup", Message: "Your order is ready at Ravi Kirana!"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "Order Ready for Pickup", got.Title)

	conn.Close()
	assert.Eventually(t, func() bool { return watchers.released.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRecent(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish("asha", Event{Type: "confirmed"})
	r := chi.NewRouter()
	r.Use(withIdentity(session.Identity{UserID: "asha", Role: session.RoleCustomer}))
	NewHandler(hub, &countingWatchers{}, nil, nil).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"confirmed"`)
}

func TestFeed_RequiresSession(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewHub(nil), &countingWatchers{}, nil, nil).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

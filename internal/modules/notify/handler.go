package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Watchers keeps an identity's order watcher running while it is held.
type Watchers interface {
	Acquire(ctx context.Context, id session.Identity) (release func(), err error)
}

// Handler serves the notification feed.
type Handler struct {
	hub      *Hub
	watchers Watchers
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHandler serves hub's events. checkOrigin may be nil to accept any origin.
func NewHandler(hub *Hub, watchers Watchers, m *metrics.Metrics, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:      hub,
		watchers: watchers,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(session.Required)
		r.Get("/", h.recent) // GET /api/v1/notifications
		r.Get("/ws", h.feed) // GET /api/v1/notifications/ws (WebSocket)
	})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	httpx.Respond(w, http.StatusOK, h.hub.Recent(id.UserID))
}

// feed upgrades to a WebSocket and streams the caller's events until the
// client leaves or the hub disconnects the user.
func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	log := logger.FromCtx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("notify: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(logger.Inject(context.Background(), log))
	defer cancel()

	listener := h.hub.Listen(id.UserID, id.SessionID)
	defer listener.Close()

	release, err := h.watchers.Acquire(ctx, id)
	if err != nil {
		log.Error("notify: start order watcher", "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "watcher unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer release()

	if h.metrics != nil {
		h.metrics.ActiveSockets.Inc()
		defer h.metrics.ActiveSockets.Dec()
	}

	go readPump(conn, cancel)
	writePump(ctx, conn, listener)
}

// readPump discards client messages and cancels once the connection drops.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, listener *Listener) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case e, ok := <-listener.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

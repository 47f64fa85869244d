// Package notify carries user-facing notifications from producers (the
// order watchers) to whatever is showing them (WebSocket clients).
package notify

import (
	"sync"
	"time"

	"github.com/georgemunganga/prepick-backend/internal/metrics"
)

// Event is one notification.
type Event struct {
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	OrderID string    `json:"orderId,omitempty"`
	At      time.Time `json:"timestamp"`
}

// Publisher accepts events addressed to a user.
type Publisher interface {
	Publish(userID string, e Event)
}

const (
	listenerBuffer = 32
	historySize    = 20
)

// Hub fans events out to every listener of the addressed user and keeps
// the last few events per user.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[*Listener]struct{}
	history   map[string][]Event
	metrics   *metrics.Metrics
}

// NewHub returns an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		listeners: map[string]map[*Listener]struct{}{},
		history:   map[string][]Event{},
		metrics:   m,
	}
}

// Listener receives the events of one user within one session.
type Listener struct {
	hub       *Hub
	userID    string
	sessionID string
	ch        chan Event
	once      sync.Once
}

// Events is closed by Close.
func (l *Listener) Events() <-chan Event { return l.ch }

// Close detaches the listener from the hub.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.hub.mu.Lock()
		defer l.hub.mu.Unlock()
		if set, ok := l.hub.listeners[l.userID]; ok {
			delete(set, l)
			if len(set) == 0 {
				delete(l.hub.listeners, l.userID)
			}
		}
		close(l.ch)
	})
}

// Listen attaches a new listener for userID opened by sessionID.
func (h *Hub) Listen(userID, sessionID string) *Listener {
	l := &Listener{hub: h, userID: userID, sessionID: sessionID, ch: make(chan Event, listenerBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[userID]
	if !ok {
		set = map[*Listener]struct{}{}
		h.listeners[userID] = set
	}
	set[l] = struct{}{}
	return l
}

// Publish delivers e to every listener of userID. A listener whose buffer
// is full misses the event.
func (h *Hub) Publish(userID string, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	hist := append(h.history[userID], e)
	if len(hist) > historySize {
		hist = hist[len(hist)-historySize:]
	}
	h.history[userID] = hist

	for l := range h.listeners[userID] {
		select {
		case l.ch <- e:
		default:
		}
	}
	if h.metrics != nil {
		h.metrics.NotificationsEmitted.WithLabelValues(e.Type).Inc()
	}
}

// Recent returns the latest events of userID, oldest first.
func (h *Hub) Recent(userID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.history[userID]))
	copy(out, h.history[userID])
	return out
}

// Disconnect closes the listeners userID opened in sessionID. Listeners of
// the user's other sessions stay open.
func (h *Hub) Disconnect(userID, sessionID string) {
	h.mu.Lock()
	set := h.listeners[userID]
	ls := make([]*Listener, 0, len(set))
	for l := range set {
		if l.sessionID == sessionID {
			ls = append(ls, l)
		}
	}
	h.mu.Unlock()
	for _, l := range ls {
		l.Close()
	}
}

// Forget drops the history of userID.
func (h *Hub) Forget(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.history, userID)
}

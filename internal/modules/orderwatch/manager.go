package orderwatch

import (
	"context"
	"errors"
	"sync"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/modules/notify"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Orders is the part of the order service the manager subscribes through.
type Orders interface {
	WatchCustomer(ctx context.Context, customerID string) (*gateway.Subscription, error)
	WatchShop(ctx context.Context, owner session.Identity, shopID string) (*gateway.Subscription, error)
}

// Shops finds the shop of an owner.
type Shops interface {
	ForOwner(ctx context.Context, ownerID string) (*shop.Shop, error)
}

// Manager runs at most one watcher per user for as long as some session
// holds it.
type Manager struct {
	orders    Orders
	shops     Shops
	publisher notify.Publisher
	metrics   *metrics.Metrics

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

type run struct {
	holds  map[*hold]struct{}
	cancel context.CancelFunc
}

// hold is one Acquire of a run by a session.
type hold struct {
	sessionID string
}

// NewManager creates a manager publishing to pub. m may be nil.
func NewManager(orders Orders, shops Shops, pub notify.Publisher, m *metrics.Metrics) *Manager {
	return &Manager{
		orders:    orders,
		shops:     shops,
		publisher: pub,
		metrics:   m,
		running:   map[string]*run{},
	}
}

// Acquire starts the watcher of id unless it is already running. The
// watcher stops once every hold is released, either by calling the returned
// function or by StopSession.
func (m *Manager) Acquire(ctx context.Context, id session.Identity) (func(), error) {
	m.mu.Lock()
	if r, ok := m.running[id.UserID]; ok {
		release := m.addHold(id, r)
		m.mu.Unlock()
		return release, nil
	}
	m.mu.Unlock()

	wctx, cancel := context.WithCancel(logger.Inject(context.Background(), logger.FromCtx(ctx)))
	w, sub, err := m.subscribe(wctx, id)
	if err != nil {
		cancel()
		if errors.Is(err, apperr.ErrNotFound) {
			// shop owner without a shop yet
			return func() {}, nil
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.running[id.UserID]; ok {
		// another session started it meanwhile
		cancel()
		sub.Close()
		return m.addHold(id, r), nil
	}

	r := &run{holds: map[*hold]struct{}{}, cancel: cancel}
	m.running[id.UserID] = r
	if m.metrics != nil {
		m.metrics.ActiveWatchers.Inc()
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		w.Run(wctx, sub)
		if m.metrics != nil {
			m.metrics.ActiveWatchers.Dec()
		}
		m.mu.Lock()
		if m.running[id.UserID] == r {
			delete(m.running, id.UserID)
		}
		m.mu.Unlock()
		cancel()
	}()
	return m.addHold(id, r), nil
}

// StopSession drops every hold of sessionID. Watchers still held by other
// sessions keep running.
func (m *Manager) StopSession(sessionID string) {
	var stopped []*run
	m.mu.Lock()
	for userID, r := range m.running {
		for h := range r.holds {
			if h.sessionID == sessionID {
				delete(r.holds, h)
			}
		}
		if len(r.holds) == 0 {
			delete(m.running, userID)
			stopped = append(stopped, r)
		}
	}
	m.mu.Unlock()
	for _, r := range stopped {
		r.cancel()
	}
}

// Running reports whether a watcher for userID is active.
func (m *Manager) Running(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[userID]
	return ok
}

// Close stops every watcher and waits for them to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	runs := m.running
	m.running = map[string]*run{}
	m.mu.Unlock()
	for _, r := range runs {
		r.cancel()
	}
	m.wg.Wait()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m *Manager) subscribe(ctx context.Context, id session.Identity) (*Watcher, *gateway.Subscription, error) {
	if !id.IsShop() {
		sub, err := m.orders.WatchCustomer(ctx, id.UserID)
		if err != nil {
			return nil, nil, err
		}
		return NewCustomerWatcher(id.UserID, m.publisher), sub, nil
	}
	sh, err := m.shops.ForOwner(ctx, id.UserID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := m.orders.WatchShop(ctx, id, sh.ID)
	if err != nil {
		return nil, nil, err
	}
	return NewShopWatcher(id.UserID, m.publisher), sub, nil
}

// addHold registers a hold of id on r and returns its release. Callers hold
// m.mu.
func (m *Manager) addHold(id session.Identity, r *run) func() {
	h := &hold{sessionID: id.SessionID}
	r.holds[h] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			_, held := r.holds[h]
			delete(r.holds, h)
			last := held && len(r.holds) == 0
			if last && m.running[id.UserID] == r {
				delete(m.running, id.UserID)
			}
			m.mu.Unlock()
			if last {
				r.cancel()
			}
		})
	}
}

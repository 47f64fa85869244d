package gateway

import (
	"context"
	"sync"
)

// Subscription is a live feed of full snapshots.
//
// The channel holds at most one pending snapshot: when the consumer lags, an
// undelivered snapshot is replaced by the newer one. Consumers therefore see
// the latest state but may miss intermediate ones.
type Subscription struct {
	mu     sync.Mutex
	ch     chan Snapshot
	done   chan struct{}
	closed bool
	stop   func()
}

func newSubscription(ctx context.Context, stop func()) *Subscription {
	s := &Subscription{
		ch:   make(chan Snapshot, 1),
		done: make(chan struct{}),
		stop: stop,
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s
}

// Snapshots is closed once the subscription ends.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.ch }

// Done is closed once the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}

func (s *Subscription) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

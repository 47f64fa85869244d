package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !s.ExpiresAt.IsZero() && m.now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryLimiter is a fixed-window failure counter.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*attempts
	now     func() time.Time
}

type attempts struct {
	count int
	since time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{window: window, entries: map[string]*attempts{}, now: time.Now}
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.current(key)
	if a == nil {
		a = &attempts{since: l.now()}
		l.entries[key] = a
	}
	a.count++
	return a.count, nil
}

func (l *MemoryLimiter) Count(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a := l.current(key); a != nil {
		return a.count, nil
	}
	return 0, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// current returns the live entry for key, dropping an expired one.
func (l *MemoryLimiter) current(key string) *attempts {
	a, ok := l.entries[key]
	if !ok {
		return nil
	}
	if l.now().Sub(a.since) > l.window {
		delete(l.entries, key)
		return nil
	}
	return a
}

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Gateway. Writes push fresh snapshots to every
// subscriber of the touched collection while the write lock is held, so
// subscribers observe writes in commit order.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	subs        map[*Subscription]Query
	newID       func() string
	now         func() time.Time
}

type memCollection struct {
	order []string
	docs  map[string]map[string]any
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		collections: map[string]*memCollection{},
		subs:        map[*Subscription]Query{},
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
	}
}

func (m *Memory) Create(ctx context.Context, collection string, data any) (string, error) {
	ids, err := m.CreateBatch(ctx, collection, []any{data})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (m *Memory) CreateBatch(ctx context.Context, collection string, items []any) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		doc, err := toMap(item)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode document: %w", err)
		}
		docs = append(docs, doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := m.newID()
		doc["id"] = id
		c.order = append(c.order, id)
		c.docs[id] = doc
		ids = append(ids, id)
	}
	m.notifyLocked(collection)
	return ids, nil
}

func (m *Memory) Get(ctx context.Context, path string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	collection, id, err := SplitPath(path)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	c, ok := m.collections[collection]
	var doc map[string]any
	if ok {
		doc, ok = c.docs[id]
	}
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, remarshal(doc, dest)
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(q), nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	patch, err := toMap(fields)
	if err != nil {
		return fmt.Errorf("gateway: encode fields: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	doc, ok := c.docs[id]
	if !ok {
		// Matches the realtime database: an update to an absent path creates it.
		doc = map[string]any{"id": id}
		c.docs[id] = doc
		c.order = append(c.order, id)
	}
	for k, v := range patch {
		doc[k] = v
	}
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sub *Subscription
	sub = newSubscription(ctx, func() {
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub] = q
	select {
	case <-sub.Done():
		// ctx ended before the insert; stop already ran and found nothing
		delete(m.subs, sub)
		return sub, nil
	default:
	}
	sub.publish(m.snapshotLocked(q))
	return sub, nil
}

// Close ends every open subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]map[string]any{}}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) queryLocked(q Query) []Document {
	c, ok := m.collections[q.Collection]
	if !ok {
		return []Document{}
	}
	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if !q.Matches(doc) {
			continue
		}
		out = append(out, Document{ID: id, Data: deepCopy(doc)})
	}
	return out
}

func (m *Memory) snapshotLocked(q Query) Snapshot {
	return Snapshot{Query: q, Docs: m.queryLocked(q), At: m.now()}
}

func (m *Memory) notifyLocked(collection string) {
	for sub, q := range m.subs {
		if q.Collection == collection {
			sub.publish(m.snapshotLocked(q))
		}
	}
}

func deepCopy(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = copyValue(val)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = copyValue(e)
		}
		return s
	default:
		return t
	}
}

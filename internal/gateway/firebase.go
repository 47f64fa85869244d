package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/db"
)

// Firebase talks to a Firebase Realtime Database through the admin SDK.
// The admin SDK has no streaming listeners, so subscriptions poll their
// query and publish only when the result differs from the last one.
type Firebase struct {
	client   *db.Client
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewFirebase opens the database client of app. app must be configured with
// a DatabaseURL.
func NewFirebase(ctx context.Context, app *firebase.App, interval time.Duration, log *slog.Logger) (*Firebase, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: firebase database client: %w", err)
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Firebase{
		client:   client,
		interval: interval,
		log:      log,
		subs:     map[*Subscription]struct{}{},
	}, nil
}

func (f *Firebase) Create(ctx context.Context, collection string, data any) (string, error) {
	doc, err := toMap(data)
	if err != nil {
		return "", fmt.Errorf("gateway: encode document: %w", err)
	}
	ref, err := f.client.NewRef(collection).Push(ctx, nil)
	if err != nil {
		return "", err
	}
	doc["id"] = ref.Key
	if err := ref.Set(ctx, doc); err != nil {
		return "", err
	}
	return ref.Key, nil
}

// CreateBatch reserves a push key per item, then writes all of them in one
// multi-path update so the documents appear together.
func (f *Firebase) CreateBatch(ctx context.Context, collection string, items []any) ([]string, error) {
	parent := f.client.NewRef(collection)
	updates := make(map[string]interface{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		doc, err := toMap(item)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode document: %w", err)
		}
		ref, err := parent.Push(ctx, nil)
		if err != nil {
			return nil, err
		}
		doc["id"] = ref.Key
		updates[Path(collection, ref.Key)] = doc
		ids = append(ids, ref.Key)
	}
	if err := f.client.NewRef("/").Update(ctx, updates); err != nil {
		return nil, err
	}
	return ids, nil
}

func (f *Firebase) Get(ctx context.Context, path string, dest any) (bool, error) {
	if _, _, err := SplitPath(path); err != nil {
		return false, err
	}
	var raw json.RawMessage
	if err := f.client.NewRef(path).Get(ctx, &raw); err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *Firebase) Query(ctx context.Context, q Query) ([]Document, error) {
	var raw map[string]json.RawMessage
	ref := f.client.NewRef(q.Collection)
	if q.Field == "" {
		if err := ref.Get(ctx, &raw); err != nil {
			return nil, err
		}
	} else {
		if err := ref.OrderByChild(q.Field).EqualTo(q.Value).Get(ctx, &raw); err != nil {
			return nil, err
		}
	}

	// Push keys sort chronologically.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	docs := make([]Document, 0, len(keys))
	for _, k := range keys {
		var data map[string]any
		if err := json.Unmarshal(raw[k], &data); err != nil || data == nil {
			// Reserved keys whose batch write never landed hold a bare string.
			continue
		}
		data["id"] = k
		docs = append(docs, Document{ID: k, Data: data})
	}
	return docs, nil
}

func (f *Firebase) Update(ctx context.Context, path string, fields map[string]any) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	patch, err := toMap(fields)
	if err != nil {
		return fmt.Errorf("gateway: encode fields: %w", err)
	}
	return f.client.NewRef(path).Update(ctx, patch)
}

func (f *Firebase) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	return f.client.NewRef(path).Delete(ctx)
}

func (f *Firebase) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	docs, err := f.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	last, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("gateway: firebase gateway closed")
	}

	var sub *Subscription
	sub = newSubscription(ctx, func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	})
	f.subs[sub] = struct{}{}
	sub.publish(Snapshot{Query: q, Docs: docs, At: time.Now()})

	f.wg.Add(1)
	go f.poll(sub, q, last)
	return sub, nil
}

// Close ends every subscription and waits for the pollers to return.
func (f *Firebase) Close() error {
	f.mu.Lock()
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	f.wg.Wait()
	return nil
}

func (f *Firebase) poll(sub *Subscription, q Query, last []byte) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.Done():
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), f.interval*5)
		docs, err := f.Query(ctx, q)
		cancel()
		if err != nil {
			f.log.Warn("gateway: firebase poll", "query", q.String(), "error", err)
			continue
		}
		cur, err := json.Marshal(docs)
		if err != nil {
			continue
		}
		if bytes.Equal(cur, last) {
			continue
		}
		last = cur
		sub.publish(Snapshot{Query: q, Docs: docs, At: time.Now()})
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Package gateway is the Remote Data Gateway: a realtime document store with
// push-based subscriptions over slash-separated collection paths
// (shops, products/{shopId}, orders, users).
//
// Three adapters share the contract: an in-process Memory store, a Postgres
// document table with LISTEN/NOTIFY, and the Firebase Realtime Database.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Collection names used by PrePick.
const (
	Shops    = "shops"
	Products = "products"
	Orders   = "orders"
	Users    = "users"
)

// Gateway is the set of logical operations consumed from the document store.
type Gateway interface {
	// Create stores data under a freshly generated id inside collection and
	// returns the id. The id is also written into the document as "id".
	Create(ctx context.Context, collection string, data any) (string, error)

	// CreateBatch writes every item atomically and returns their ids in order.
	CreateBatch(ctx context.Context, collection string, items []any) ([]string, error)

	// Get decodes the document at path into dest. found is false when absent.
	Get(ctx context.Context, path string, dest any) (found bool, err error)

	// Query lists documents of a collection, optionally filtered by equality.
	Query(ctx context.Context, q Query) ([]Document, error)

	// Update shallow-merges fields into the document at path.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document at path. Deleting an absent path is a no-op.
	Delete(ctx context.Context, path string) error

	// Subscribe delivers a full snapshot of q immediately and again after
	// every change, until ctx is done or the subscription is closed.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)

	Close() error
}

// Document is one record of a collection.
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Decode converts the document into dest through its JSON form.
func (d Document) Decode(dest any) error {
	return remarshal(d.Data, dest)
}

// DecodeAll decodes every document into a slice of T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Query selects a collection, optionally narrowed to documents whose Field
// equals Value.
type Query struct {
	Collection string
	Field      string
	Value      any
}

// All selects every document of collection.
func All(collection string) Query { return Query{Collection: collection} }

// Where selects documents of collection whose field equals value.
func Where(collection, field string, value any) Query {
	return Query{Collection: collection, Field: field, Value: value}
}

func (q Query) String() string {
	if q.Field == "" {
		return q.Collection
	}
	return fmt.Sprintf("%s[%s=%v]", q.Collection, q.Field, q.Value)
}

// Matches reports whether data satisfies the equality filter.
func (q Query) Matches(data map[string]any) bool {
	if q.Field == "" {
		return true
	}
	got, ok := data[q.Field]
	if !ok {
		return false
	}
	var want any
	if err := remarshal(q.Value, &want); err != nil {
		return false
	}
	return reflect.DeepEqual(got, want)
}

// Snapshot is a complete point-in-time copy of a subscribed query.
type Snapshot struct {
	Query Query
	Docs  []Document
	At    time.Time
}

// Path joins segments into a document or collection path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitPath separates a document path into its collection and id.
func SplitPath(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("gateway: %q is not a document path", path)
	}
	return path[:i], path[i+1:], nil
}

// Fields converts a struct into the field map taken by Update.
func Fields(v any) (map[string]any, error) {
	return toMap(v)
}

// toMap converts a struct or map into the generic document form.
func toMap(v any) (map[string]any, error) {
	out := map[string]any{}
	if err := remarshal(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

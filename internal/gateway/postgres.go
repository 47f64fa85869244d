package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// notifyChannel carries the name of the collection touched by each write.
const notifyChannel = "prepick_documents"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_created_idx ON documents (collection, created_at);
`

// Postgres stores documents as JSONB rows of a single table. Subscriptions
// are driven by LISTEN/NOTIFY: every write notifies the collection name
// and each subscriber of that collection re-reads its query.
type Postgres struct {
	db       *sql.DB
	listener *pq.Listener
	log      *slog.Logger

	mu   sync.Mutex
	subs map[*Subscription]Query

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPostgres opens a LISTEN connection on dsn next to the pooled db.
func NewPostgres(db *sql.DB, dsn string, log *slog.Logger) (*Postgres, error) {
	p := &Postgres{
		db:   db,
		log:  log,
		subs: map[*Subscription]Query{},
		stop: make(chan struct{}),
	}
	p.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("gateway: postgres listener event", "event", ev, "error", err)
		}
	})
	if err := p.listener.Listen(notifyChannel); err != nil {
		p.listener.Close()
		return nil, fmt.Errorf("gateway: listen %s: %w", notifyChannel, err)
	}

	p.wg.Add(1)
	go p.dispatch()
	return p, nil
}

// Migrate creates the documents table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schemaSQL)
	return err
}

func (p *Postgres) Create(ctx context.Context, collection string, data any) (string, error) {
	ids, err := p.CreateBatch(ctx, collection, []any{data})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateBatch inserts every item inside a single transaction.
func (p *Postgres) CreateBatch(ctx context.Context, collection string, items []any) ([]string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		doc, err := toMap(item)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode document: %w", err)
		}
		id := uuid.New().String()
		doc["id"] = id
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
			collection, id, raw); err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
		ids = append(ids, id)
	}

	if err := notifyTx(ctx, tx, collection); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Postgres) Get(ctx context.Context, path string, dest any) (bool, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return false, err
	}
	var raw []byte
	err = p.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Document, error) {
	query := `SELECT id, data FROM documents WHERE collection=$1`
	args := []interface{}{q.Collection}
	if q.Field != "" {
		want, err := json.Marshal(map[string]any{q.Field: q.Value})
		if err != nil {
			return nil, err
		}
		query += ` AND data @> $2::jsonb`
		args = append(args, string(want))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc := Document{ID: id}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Update merges fields with the jsonb || operator, which is shallow. An
// update to an absent document creates it.
func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	patch, err := toMap(fields)
	if err != nil {
		return fmt.Errorf("gateway: encode fields: %w", err)
	}
	patch["id"] = id
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()`,
		collection, id, raw); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := notifyTx(ctx, tx, collection); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := notifyTx(ctx, tx, collection); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(ctx, func() {
		p.mu.Lock()
		delete(p.subs, sub)
		p.mu.Unlock()
	})

	p.mu.Lock()
	p.subs[sub] = q
	p.mu.Unlock()

	if err := p.refresh(ctx, sub, q); err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

// Close stops the dispatcher and the LISTEN connection. The pooled *sql.DB
// belongs to the caller.
func (p *Postgres) Close() error {
	close(p.stop)
	err := p.listener.Close()
	p.wg.Wait()

	p.mu.Lock()
	subs := make([]*Subscription, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return err
}

// ── dispatch ──────────────────────────────────────────────────────────────────

func (p *Postgres) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect: anything may have changed.
			collection := ""
			if n != nil {
				collection = n.Extra
			}
			p.refreshAll(collection)
		case <-time.After(90 * time.Second):
			go func() {
				if err := p.listener.Ping(); err != nil {
					p.log.Warn("gateway: postgres listener ping", "error", err)
				}
			}()
		}
	}
}

func (p *Postgres) refreshAll(collection string) {
	p.mu.Lock()
	targets := make(map[*Subscription]Query, len(p.subs))
	for s, q := range p.subs {
		if collection == "" || q.Collection == collection {
			targets[s] = q
		}
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for s, q := range targets {
		if err := p.refresh(ctx, s, q); err != nil {
			p.log.Error("gateway: refresh subscription", "query", q.String(), "error", err)
		}
	}
}

func (p *Postgres) refresh(ctx context.Context, s *Subscription, q Query) error {
	docs, err := p.Query(ctx, q)
	if err != nil {
		return err
	}
	s.publish(Snapshot{Query: q, Docs: docs, At: time.Now()})
	return nil
}

func notifyTx(ctx context.Context, tx *sql.Tx, collection string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		return fmt.Errorf("notify %s: %w", collection, err)
	}
	return nil
}

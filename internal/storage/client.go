package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/julianstephens/agenda/internal/logger"
)

// Client implements Provider on top of a Backend. It evaluates queries,
// resolves merge writes and fans snapshots out to subscribers.
//
// Snapshots for a subscription are delivered one at a time. After a local
// write commits, affected subscriptions are refreshed before the write
// returns. A subscriber callback must not call back into the Client.
type Client struct {
	backend Backend

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64

	closed atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

type subscription struct {
	query  Query
	fn     func(Snapshot)
	mu     sync.Mutex
	last   []byte
	closed atomic.Bool
}

var _ Provider = (*Client)(nil)

// NewClient wraps b and starts forwarding its external changes when b is a Watcher
func NewClient(b Backend) *Client {
	c := &Client{
		backend: b,
		subs:    make(map[uint64]*subscription),
	}

	if w, ok := b.(Watcher); ok {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := w.Changes(ctx)
		if err != nil {
			cancel()
			logger.Warn("Remote change notifications unavailable", "error", err)
		} else {
			c.cancel = cancel
			c.done = make(chan struct{})
			go c.watch(ctx, ch)
		}
	}

	return c
}

func (c *Client) watch(ctx context.Context, ch <-chan string) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case collection, ok := <-ch:
			if !ok {
				return
			}
			logger.Debug("Remote change", "collection", collection)
			c.refresh(ctx, collection)
		}
	}
}

func (c *Client) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	sub := &subscription{query: q, fn: fn}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[id] = sub
	c.mu.Unlock()

	unsubscribe := func() {
		sub.closed.Store(true)
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}

	if err := c.deliver(ctx, sub); err != nil {
		unsubscribe()
		return nil, err
	}
	return unsubscribe, nil
}

func (c *Client) Query(ctx context.Context, q Query) ([]Document, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	docs, err := c.backend.List(ctx, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", q.Collection, err)
	}
	return q.Run(docs), nil
}

func (c *Client) Get(ctx context.Context, path string) (Document, error) {
	if c.closed.Load() {
		return Document{}, ErrClosed
	}
	if err := ValidateDocument(path); err != nil {
		return Document{}, err
	}
	return c.backend.Get(ctx, path)
}

func (c *Client) Write(ctx context.Context, path string, fields Fields, opts WriteOptions) error {
	return c.Batch(ctx, []Mutation{{Op: OpSet, Path: path, Fields: fields, Merge: opts.Merge}})
}

// Update merges fields into an existing document. It returns ErrNotFound
// when the document is missing and writes nothing.
func (c *Client) Update(ctx context.Context, path string, fields Fields) error {
	return c.Batch(ctx, []Mutation{{Op: OpUpdate, Path: path, Fields: fields}})
}

func (c *Client) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := ValidateCollection(collection); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := c.Write(ctx, DocPath(collection, id), fields, WriteOptions{}); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Batch(ctx, []Mutation{{Op: OpDelete, Path: path}})
}

// Batch applies mutations atomically where the backend supports it. Merge
// sets see the effect of earlier mutations in the same batch. An OpUpdate
// on a missing document fails the whole batch with ErrNotFound.
func (c *Client) Batch(ctx context.Context, mutations []Mutation) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(mutations) == 0 {
		return nil
	}

	type state struct {
		fields  Fields
		deleted bool
	}
	staged := make(map[string]state)
	resolved := make([]Mutation, 0, len(mutations))
	touched := make(map[string]struct{})

	for _, m := range mutations {
		collection, _, err := SplitDocPath(m.Path)
		if err != nil {
			return err
		}
		touched[collection] = struct{}{}

		switch m.Op {
		case OpDelete:
			staged[m.Path] = state{deleted: true}
			resolved = append(resolved, Mutation{Op: OpDelete, Path: m.Path})
		case OpSet, OpUpdate:
			fields, err := Normalize(m.Fields)
			if err != nil {
				return err
			}
			if m.Merge || m.Op == OpUpdate {
				base, found := Fields{}, false
				if st, ok := staged[m.Path]; ok {
					if !st.deleted {
						base, found = st.fields, true
					}
				} else {
					existing, err := c.backend.Get(ctx, m.Path)
					switch {
					case err == nil:
						base, found = existing.Fields, true
					case errors.Is(err, ErrNotFound):
					default:
						return fmt.Errorf("failed to read %s for merge: %w", m.Path, err)
					}
				}
				if !found && m.Op == OpUpdate {
					// drop views still holding the missing document
					for collection := range touched {
						c.refresh(ctx, collection)
					}
					return fmt.Errorf("failed to update %s: %w", m.Path, ErrNotFound)
				}
				fields = Merge(base, fields)
			}
			staged[m.Path] = state{fields: fields}
			resolved = append(resolved, Mutation{Op: OpSet, Path: m.Path, Fields: fields})
		default:
			return fmt.Errorf("unknown mutation op %d", m.Op)
		}
	}

	if err := c.backend.Apply(ctx, resolved); err != nil {
		return fmt.Errorf("failed to apply %d mutation(s): %w", len(resolved), err)
	}

	for collection := range touched {
		c.refresh(ctx, collection)
	}
	return nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	c.mu.Lock()
	for id, sub := range c.subs {
		sub.closed.Store(true)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	return c.backend.Close()
}

// refresh re-runs every subscription on collection; an empty collection
// refreshes all of them
func (c *Client) refresh(ctx context.Context, collection string) {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		if collection == "" || sub.query.Collection == collection {
			subs = append(subs, sub)
		}
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if err := c.deliver(ctx, sub); err != nil {
			logger.Warn("Failed to refresh subscription", "collection", sub.query.Collection, "error", err)
		}
	}
}

func (c *Client) deliver(ctx context.Context, sub *subscription) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed.Load() {
		return nil
	}

	docs, err := c.Query(ctx, sub.query)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if sub.last != nil && bytes.Equal(encoded, sub.last) {
		return nil
	}
	sub.last = encoded

	sub.fn(Snapshot{Documents: docs})
	return nil
}

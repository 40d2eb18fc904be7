package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrClosed      = errors.New("store is closed")
)

// Fields is the JSON-shaped body of a document
type Fields map[string]any

// Document is a single record addressed by its slash-separated path
type Document struct {
	ID     string
	Path   string
	Fields Fields
}

// Snapshot is the complete result set of a subscribed query at one point in time
type Snapshot struct {
	Documents []Document
}

type Op int

const (
	OpSet Op = iota
	OpDelete
	// OpUpdate merges Fields into a document that must already exist
	OpUpdate
)

// Mutation is one write inside a batch. Merge only applies to OpSet.
type Mutation struct {
	Op     Op
	Path   string
	Fields Fields
	Merge  bool
}

type WriteOptions struct {
	// Merge deep-merges Fields into the existing document instead of replacing it
	Merge bool
}

// Unsubscribe stops deliveries for a subscription. Safe to call more than once.
type Unsubscribe func()

// Provider is the document-store contract consumed by the live views
type Provider interface {
	Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Get(ctx context.Context, path string) (Document, error)
	Write(ctx context.Context, path string, fields Fields, opts WriteOptions) error
	Update(ctx context.Context, path string, fields Fields) error
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Delete(ctx context.Context, path string) error
	Batch(ctx context.Context, mutations []Mutation) error
	Close() error
}

// Backend is the persistence surface a Client drives. Backends only ever
// receive full-document sets and deletes; merges and updates are resolved
// by the Client.
type Backend interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, path string) (Document, error)
	Apply(ctx context.Context, mutations []Mutation) error
	Close() error
}

// Watcher is implemented by backends that can observe writes made by other
// processes. Each value on the channel names a changed collection; an empty
// string means any collection may have changed.
type Watcher interface {
	Changes(ctx context.Context) (<-chan string, error)
}

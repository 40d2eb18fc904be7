// Package supabase stores documents in a Supabase "documents" table through PostgREST.
//
// The table mirrors migrations/postgres/001_documents.sql. Row level security
// should restrict rows to paths under users/{auth.uid()}.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/storage"
)

const table = "documents"

var (
	ErrMissingCredentials = errors.New("supabase URL and key are required")
	ErrMixedBatch         = errors.New("batch mixes sets and deletes")
)

type Store struct {
	client *supa.Client
	// PollInterval controls how often remote changes are checked for
	PollInterval time.Duration
}

type row struct {
	Path       string         `json:"path"`
	Collection string         `json:"collection,omitempty"`
	DocID      string         `json:"doc_id"`
	Data       storage.Fields `json:"data"`
	UpdatedAt  int64          `json:"updated_at,omitempty"`
}

var (
	_ storage.Backend = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)

// New connects with the project URL and anon key. When sessionToken is set
// requests run as that user so row level security applies.
func New(url, key, sessionToken string) (*Store, error) {
	if url == "" || key == "" {
		return nil, ErrMissingCredentials
	}

	opts := &supa.ClientOptions{}
	if sessionToken != "" {
		opts.Headers = map[string]string{
			"Authorization": "Bearer " + sessionToken,
		}
	}

	client, err := supa.NewClient(url, key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &Store{client: client, PollInterval: constants.DefaultPollInterval}, nil
}

func (s *Store) List(_ context.Context, collection string) ([]storage.Document, error) {
	resp, _, err := s.client.From(table).
		Select("path,doc_id,data", "", false).
		Eq("collection", collection).
		Order("path", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	return decodeRows(resp)
}

func (s *Store) Get(_ context.Context, path string) (storage.Document, error) {
	resp, _, err := s.client.From(table).
		Select("path,doc_id,data", "", false).
		Eq("path", path).
		Execute()
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	docs, err := decodeRows(resp)
	if err != nil {
		return storage.Document{}, err
	}
	if len(docs) == 0 {
		return storage.Document{}, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return docs[0], nil
}

// Apply sends all sets as one upsert request or all deletes as one delete
// request. PostgREST runs each request in its own transaction, so a batch
// mixing sets and deletes could half-apply and is rejected with
// ErrMixedBatch before anything is sent.
func (s *Store) Apply(_ context.Context, mutations []storage.Mutation) error {
	now := time.Now().UnixMilli()

	var (
		sets    []row
		deletes []string
	)
	for _, m := range mutations {
		switch m.Op {
		case storage.OpSet:
			collection, id, err := storage.SplitDocPath(m.Path)
			if err != nil {
				return err
			}
			data := m.Fields
			if data == nil {
				data = storage.Fields{}
			}
			sets = append(sets, row{Path: m.Path, Collection: collection, DocID: id, Data: data, UpdatedAt: now})
		case storage.OpDelete:
			deletes = append(deletes, m.Path)
		default:
			return fmt.Errorf("unsupported mutation op %d", m.Op)
		}
	}
	if len(sets) > 0 && len(deletes) > 0 {
		return fmt.Errorf("%w: %d set(s), %d delete(s)", ErrMixedBatch, len(sets), len(deletes))
	}

	if len(sets) > 0 {
		if _, _, err := s.client.From(table).Upsert(sets, "path", "minimal", "").Execute(); err != nil {
			return fmt.Errorf("failed to upsert %d document(s): %w", len(sets), err)
		}
	}
	if len(deletes) > 0 {
		if _, _, err := s.client.From(table).Delete("minimal", "").In("path", deletes).Execute(); err != nil {
			return fmt.Errorf("failed to delete %d document(s): %w", len(deletes), err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Changes polls on PollInterval and reports every tick as a possible change
// to all collections. Unchanged results are filtered out by the client.
func (s *Store) Changes(ctx context.Context) (<-chan string, error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}

	changes := make(chan string, 1)
	go func() {
		defer close(changes)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case changes <- "":
				default:
					logger.Debug("Skipping poll, previous refresh still pending")
				}
			}
		}
	}()
	return changes, nil
}

func decodeRows(resp []byte) ([]storage.Document, error) {
	var rows []row
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	docs := make([]storage.Document, 0, len(rows))
	for _, r := range rows {
		fields := r.Data
		if fields == nil {
			fields = storage.Fields{}
		}
		docs = append(docs, storage.Document{ID: r.DocID, Path: r.Path, Fields: fields})
	}
	return docs, nil
}

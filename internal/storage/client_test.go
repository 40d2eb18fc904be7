package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/storage/memory"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []storage.Snapshot
}

func (r *recorder) fn(s storage.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() storage.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func setupTestClient(t *testing.T) (*storage.Client, *memory.Store) {
	backend := memory.New()
	client := storage.NewClient(backend)
	t.Cleanup(func() { client.Close() })
	return client, backend
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	if err := client.Write(ctx, "users/u1/todos/a", storage.Fields{"text": "one"}, storage.WriteOptions{}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	rec := &recorder{}
	unsub, err := client.Subscribe(ctx, storage.NewQuery("users/u1/todos"), rec.fn)
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	defer unsub()

	if rec.count() != 1 {
		t.Fatalf("expected 1 initial snapshot, got %d", rec.count())
	}
	if docs := rec.last().Documents; len(docs) != 1 || docs[0].Fields["text"] != "one" {
		t.Errorf("unexpected initial snapshot: %+v", docs)
	}
}

func TestSubscribeEmptyCollection(t *testing.T) {
	client, _ := setupTestClient(t)

	rec := &recorder{}
	unsub, err := client.Subscribe(context.Background(), storage.NewQuery("users/u1/todos"), rec.fn)
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	defer unsub()

	if rec.count() != 1 || len(rec.last().Documents) != 0 {
		t.Errorf("expected one empty snapshot, got %d snapshots", rec.count())
	}
}

func TestWritesRefreshSubscribers(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	todos := &recorder{}
	unsub, err := client.Subscribe(ctx, storage.NewQuery("users/u1/todos").OrderAsc("order"), todos.fn)
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	defer unsub()

	other := &recorder{}
	unsubOther, err := client.Subscribe(ctx, storage.NewQuery("users/u1/journal"), other.fn)
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	defer unsubOther()

	id, err := client.Add(ctx, "users/u1/todos", storage.Fields{"text": "a", "order": 2})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned an empty id")
	}
	if todos.count() != 2 {
		t.Fatalf("expected snapshot after Add, got %d snapshots", todos.count())
	}
	if other.count() != 1 {
		t.Errorf("unrelated subscriber was refreshed: %d snapshots", other.count())
	}

	if err := client.Write(ctx, "users/u1/todos/"+id, storage.Fields{"text": "a", "order": 2}, storage.WriteOptions{}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if todos.count() != 2 {
		t.Errorf("identical snapshot should be suppressed, got %d snapshots", todos.count())
	}

	if err := client.Delete(ctx, "users/u1/todos/"+id); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if todos.count() != 3 || len(todos.last().Documents) != 0 {
		t.Errorf("expected empty snapshot after delete")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	rec := &recorder{}
	unsub, err := client.Subscribe(ctx, storage.NewQuery("users/u1/todos"), rec.fn)
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	unsub()
	unsub()

	if _, err := client.Add(ctx, "users/u1/todos", storage.Fields{"text": "a"}); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", rec.count())
	}
}

func TestMergeWrite(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	path := "users/u1"
	if err := client.Write(ctx, path, storage.Fields{"preferences": map[string]any{"theme": "dark"}}, storage.WriteOptions{Merge: true}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := client.Write(ctx, path, storage.Fields{"preferences": map[string]any{"language": "fr"}}, storage.WriteOptions{Merge: true}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	doc, err := client.Get(ctx, path)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	prefs, _ := doc.Fields["preferences"].(map[string]any)
	if prefs["theme"] != "dark" || prefs["language"] != "fr" {
		t.Errorf("merge lost keys: %v", doc.Fields)
	}

	if err := client.Write(ctx, path, storage.Fields{"other": 1}, storage.WriteOptions{}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	doc, _ = client.Get(ctx, path)
	if _, ok := doc.Fields["preferences"]; ok {
		t.Error("non-merge write should replace the document")
	}
}

func TestUpdateRequiresExistingDocument(t *testing.T) {
	client, backend := setupTestClient(t)
	ctx := context.Background()

	if err := client.Write(ctx, "users/u1/todos/a", storage.Fields{"text": "one", "order": 1}, storage.WriteOptions{}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := client.Update(ctx, "users/u1/todos/a", storage.Fields{"order": 2}); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	doc, err := client.Get(ctx, "users/u1/todos/a")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if doc.Fields["text"] != "one" || doc.Fields["order"] != float64(2) {
		t.Errorf("update should merge into the document: %v", doc.Fields)
	}

	tests := []struct {
		name      string
		mutations []storage.Mutation
	}{
		{"missing", []storage.Mutation{
			{Op: storage.OpUpdate, Path: "users/u1/todos/b", Fields: storage.Fields{"order": 1}},
		}},
		{"deleted earlier in the batch", []storage.Mutation{
			{Op: storage.OpDelete, Path: "users/u1/todos/a"},
			{Op: storage.OpUpdate, Path: "users/u1/todos/a", Fields: storage.Fields{"order": 3}},
		}},
		{"mixed with a valid update", []storage.Mutation{
			{Op: storage.OpUpdate, Path: "users/u1/todos/a", Fields: storage.Fields{"order": 4}},
			{Op: storage.OpUpdate, Path: "users/u1/todos/b", Fields: storage.Fields{"order": 5}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.Batch(ctx, tt.mutations); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if backend.Len() != 1 {
				t.Errorf("expected the store unchanged, got %d documents", backend.Len())
			}
			doc, err := client.Get(ctx, "users/u1/todos/a")
			if err != nil || doc.Fields["order"] != float64(2) {
				t.Errorf("failed batch changed a: %v %v", doc.Fields, err)
			}
		})
	}
}

func TestBatchMergeSeesEarlierMutations(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	err := client.Batch(ctx, []storage.Mutation{
		{Op: storage.OpSet, Path: "users/u1/habit_logs/h_1", Fields: storage.Fields{"value": 1}},
		{Op: storage.OpSet, Path: "users/u1/habit_logs/h_1", Fields: storage.Fields{"date": "2024-01-01"}, Merge: true},
		{Op: storage.OpSet, Path: "users/u1/habit_logs/h_2", Fields: storage.Fields{"value": 5}},
		{Op: storage.OpDelete, Path: "users/u1/habit_logs/h_2"},
	})
	if err != nil {
		t.Fatalf("failed to apply batch: %v", err)
	}

	doc, err := client.Get(ctx, "users/u1/habit_logs/h_1")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if doc.Fields["value"] != float64(1) || doc.Fields["date"] != "2024-01-01" {
		t.Errorf("unexpected merged fields: %v", doc.Fields)
	}
	if _, err := client.Get(ctx, "users/u1/habit_logs/h_2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted doc, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)
	if err := client.Delete(context.Background(), "users/u1/todos/missing"); err != nil {
		t.Errorf("deleting a missing document should succeed, got %v", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	if err := client.Write(ctx, "users/u1/todos", storage.Fields{}, storage.WriteOptions{}); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("Write to collection path: got %v, want ErrInvalidPath", err)
	}
	if _, err := client.Add(ctx, "users/u1", storage.Fields{}); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("Add to document path: got %v, want ErrInvalidPath", err)
	}
	if _, err := client.Subscribe(ctx, storage.NewQuery("users/u1"), func(storage.Snapshot) {}); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("Subscribe to document path: got %v, want ErrInvalidPath", err)
	}
}

func TestBackendFailureIsReturned(t *testing.T) {
	client, backend := setupTestClient(t)
	boom := errors.New("boom")
	backend.SetFailure(boom)

	err := client.Write(context.Background(), "users/u1/todos/a", storage.Fields{"text": "x"}, storage.WriteOptions{})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestClosedClient(t *testing.T) {
	client := storage.NewClient(memory.New())
	if err := client.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := client.Query(context.Background(), storage.NewQuery("users")); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

type watchingBackend struct {
	*memory.Store
	changes chan string
}

func (w *watchingBackend) Changes(ctx context.Context) (<-chan string, error) {
	return w.changes, nil
}

func TestRemoteChangesRefreshSubscribers(t *testing.T) {
	backend := &watchingBackend{Store: memory.New(), changes: make(chan string)}
	client := storage.NewClient(backend)
	defer client.Close()
	ctx := context.Background()

	delivered := make(chan storage.Snapshot, 4)
	unsub, err := client.Subscribe(ctx, storage.NewQuery("users/u1/todos"), func(s storage.Snapshot) {
		delivered <- s
	})
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	defer unsub()
	<-delivered

	// Another process writes straight to the backend.
	if err := backend.Apply(ctx, []storage.Mutation{{Op: storage.OpSet, Path: "users/u1/todos/x", Fields: storage.Fields{"text": "remote"}}}); err != nil {
		t.Fatalf("failed to apply: %v", err)
	}
	backend.changes <- ""

	snap := <-delivered
	if len(snap.Documents) != 1 || snap.Documents[0].ID != "x" {
		t.Errorf("unexpected remote snapshot: %+v", snap.Documents)
	}
}

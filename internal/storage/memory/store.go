// Package memory is an in-process document backend for tests and throwaway sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/julianstephens/agenda/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
	// FailApply makes every Apply return the error, for exercising write failures
	FailApply error
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) List(_ context.Context, collection string) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0)
	for p := range s.docs {
		c, _, err := storage.SplitDocPath(p)
		if err == nil && c == collection {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	docs := make([]storage.Document, 0, len(paths))
	for _, p := range paths {
		d, err := s.decode(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Store) Get(_ context.Context, path string) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.docs[path]; !ok {
		return storage.Document{}, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return s.decode(path)
}

func (s *Store) decode(path string) (storage.Document, error) {
	fields, err := storage.DecodeFields(s.docs[path])
	if err != nil {
		return storage.Document{}, err
	}
	_, id, _ := storage.SplitDocPath(path)
	return storage.Document{ID: id, Path: path, Fields: fields}, nil
}

func (s *Store) Apply(_ context.Context, mutations []storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailApply != nil {
		return s.FailApply
	}

	encoded := make([][]byte, len(mutations))
	for i, m := range mutations {
		if m.Op != storage.OpSet {
			continue
		}
		b, err := storage.EncodeFields(m.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", m.Path, err)
		}
		encoded[i] = b
	}

	for i, m := range mutations {
		switch m.Op {
		case storage.OpSet:
			s.docs[m.Path] = encoded[i]
		case storage.OpDelete:
			delete(s.docs, m.Path)
		}
	}
	return nil
}

// SetFailure toggles the injected Apply error
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	s.FailApply = err
	s.mu.Unlock()
}

// Len reports the number of stored documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) Close() error {
	return nil
}

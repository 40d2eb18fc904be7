package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/agenda/internal/storage"
)

func (s *Store) List(ctx context.Context, collection string) ([]storage.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, doc_id, data::text FROM documents WHERE collection = $1 ORDER BY path", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]storage.Document, 0)
	for rows.Next() {
		var path, id, data string
		if err := rows.Scan(&path, &id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := storage.DecodeFields([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		docs = append(docs, storage.Document{ID: id, Path: path, Fields: fields})
	}
	return docs, rows.Err()
}

func (s *Store) Get(ctx context.Context, path string) (storage.Document, error) {
	var id, data string
	err := s.db.QueryRowContext(ctx, "SELECT doc_id, data::text FROM documents WHERE path = $1", path).Scan(&id, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Document{}, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return storage.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	fields, err := storage.DecodeFields([]byte(data))
	if err != nil {
		return storage.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return storage.Document{ID: id, Path: path, Fields: fields}, nil
}

func (s *Store) Apply(ctx context.Context, mutations []storage.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, m := range mutations {
		switch m.Op {
		case storage.OpSet:
			collection, id, err := storage.SplitDocPath(m.Path)
			if err != nil {
				return err
			}
			data, err := storage.EncodeFields(m.Fields)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", m.Path, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO documents (path, collection, doc_id, data, updated_at)
				VALUES ($1, $2, $3, $4::jsonb, $5)
				ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
				m.Path, collection, id, string(data), now)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", m.Path, err)
			}
		case storage.OpDelete:
			if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = $1", m.Path); err != nil {
				return fmt.Errorf("failed to delete %s: %w", m.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

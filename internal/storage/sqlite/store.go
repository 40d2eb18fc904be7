package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/migration"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/migrations"
)

type Store struct {
	path string
	db   *sql.DB
}

var (
	_ storage.Backend   = (*Store)(nil)
	_ storage.Watcher   = (*Store)(nil)
	_ storage.Lifecycle = (*Store)(nil)
	_ storage.Migrator  = (*Store)(nil)
)

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) dsn() string {
	return "file:" + s.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps batches serialized within the process
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.Migrate(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
	}

	if err := s.open(); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if err := runner.ValidateVersion(); err != nil {
		return err
	}
	if _, err := runner.ApplyMigrations(func(msg string) { logger.Debug(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite)
}

func (s *Store) Migrate(logFn func(string)) (int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.ApplyMigrations(logFn)
}

func (s *Store) SchemaStatus() (migration.Status, error) {
	runner, err := s.runner()
	if err != nil {
		return migration.Status{}, err
	}
	return runner.Status()
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) List(ctx context.Context, collection string) ([]storage.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, doc_id, data FROM documents WHERE collection = ? ORDER BY path", collection)
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
	err := s.db.QueryRowContext(ctx, "SELECT doc_id, data FROM documents WHERE path = ?", path).Scan(&id, &data)
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
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
				m.Path, collection, id, string(data), now)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", m.Path, err)
			}
		case storage.OpDelete:
			if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", m.Path); err != nil {
				return fmt.Errorf("failed to delete %s: %w", m.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

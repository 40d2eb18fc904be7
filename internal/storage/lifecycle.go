package storage

import "github.com/julianstephens/agenda/internal/migration"

// Lifecycle is implemented by backends that need explicit setup. Init
// creates storage from scratch; Load opens storage that already exists.
type Lifecycle interface {
	Init() error
	Load() error
}

// Migrator is implemented by SQL backends with a versioned schema
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	SchemaStatus() (migration.Status, error)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/crypto"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/prefs"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/storage/memory"
	"github.com/julianstephens/agenda/internal/storage/postgres"
	"github.com/julianstephens/agenda/internal/storage/sqlite"
	"github.com/julianstephens/agenda/internal/storage/supabase"
	"github.com/julianstephens/agenda/internal/undo"
)

var ErrMissingSecret = errors.New("application secret is not configured")

// OpenBackend creates, without connecting, the backend named by cfg.Store
func OpenBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Store {
	case constants.StoreSQLite:
		return sqlite.NewStore(cfg.SQLitePath), nil
	case constants.StorePostgres:
		if cfg.PostgresURL == "" {
			return nil, apperrors.WithHint(postgres.ErrInvalidConnectionString,
				"set AGENDA_DB_CONNECTION or run 'agenda keyring set database-connection <url>'")
		}
		if valid, err := postgres.ValidateConnString(cfg.PostgresURL); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, apperrors.WithHint(err, "keep the password in ~/.pgpass or PGPASSWORD and drop it from the connection string")
			}
			return nil, err
		}
		return postgres.New(cfg.PostgresURL), nil
	case constants.StoreSupabase:
		s, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SessionToken)
		if err != nil {
			return nil, apperrors.WithHint(err, "set supabase_url in config.yaml and AGENDA_SUPABASE_KEY or 'agenda keyring set supabase-key <key>'")
		}
		return s, nil
	case constants.StoreMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("%w %q", config.ErrUnknownStore, cfg.Store)
}

// Location describes where a backend keeps its data, for messages
func Location(cfg *config.Config) string {
	switch cfg.Store {
	case constants.StoreSQLite:
		return cfg.SQLitePath
	case constants.StorePostgres:
		return "postgres"
	case constants.StoreSupabase:
		return cfg.SupabaseURL
	}
	return cfg.Store
}

// Open loads the backend and assembles a Context for cfg. A missing identity
// is replaced by a new local one that is saved to the config file.
func Open(ctx context.Context, cfg *config.Config) (*Context, error) {
	if cfg.AppSecret == "" {
		return nil, apperrors.WithHint(ErrMissingSecret, "run 'agenda init' or set AGENDA_APP_SECRET")
	}

	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	if lc, ok := backend.(storage.Lifecycle); ok {
		if err := lc.Load(); err != nil {
			return nil, err
		}
	}

	c := &Context{
		Config:  cfg,
		Backend: backend,
		Crypto:  crypto.New(cfg.AppSecret),
		Undo:    undo.New(),
		OnError: ReportError,
	}

	id, err := ResolveIdentity(cfg, c.now())
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	c.Identity = id
	c.Store = storage.NewClient(backend)

	local := prefs.OpenLocal(filepath.Join(cfg.DataDir, "prefs"))
	c.Prefs = prefs.New(local, c.Store, id.UserID)
	c.Focus = prefs.NewFocus(local, c.now)
	if id.Source == auth.SourceSession {
		if err := c.Prefs.Sync(ctx); err != nil {
			logger.Warn("Preference sync failed", "error", err)
		}
	}
	return c, nil
}

// ResolveIdentity reads the session token, falling back to a local identity
// that is created on first use
func ResolveIdentity(cfg *config.Config, now time.Time) (auth.Identity, error) {
	id, err := auth.Resolve(cfg.SessionToken, cfg.JWTSecret, cfg.UserID, now)
	if errors.Is(err, auth.ErrNoIdentity) {
		cfg.UserID = auth.NewLocalID()
		if err := cfg.Save(); err != nil {
			return auth.Identity{}, fmt.Errorf("failed to save local identity: %w", err)
		}
		logger.Info("Created local identity", "user", cfg.UserID)
		return auth.Resolve("", "", cfg.UserID, now)
	}
	if err != nil {
		return auth.Identity{}, apperrors.WithHint(err, "run 'agenda login <token>' with a fresh token or 'agenda logout'")
	}
	return id, nil
}

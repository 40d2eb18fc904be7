package system

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/storage"
)

type InitCmd struct {
	Store string `help:"Storage backend to use (sqlite|postgres|supabase|memory)."`
	Force bool   `help:"Delete an existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	if cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	if c.Store != "" {
		cfg.Store = c.Store
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if cfg.AppSecret == "" {
		secret, err := newSecret()
		if err != nil {
			return err
		}
		if err := keyring.Set(keyring.AppSecret, secret); err != nil {
			return apperrors.WithHint(err, fmt.Sprintf("set %s to a random string and run init again", config.EnvAppSecret))
		}
		cfg.AppSecret = secret
		ctx.Printf("%s Generated application secret and stored it in the OS keyring\n", cli.Done("✓"))
	}

	if c.Force && cfg.Store == constants.StoreSQLite {
		if _, err := os.Stat(cfg.SQLitePath); err == nil {
			if err := os.Remove(cfg.SQLitePath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", cfg.SQLitePath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	backend, err := cli.OpenBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	if lc, ok := backend.(storage.Lifecycle); ok {
		if err := lc.Init(); err != nil {
			return err
		}
	}

	if cfg.UserID == "" {
		cfg.UserID = auth.NewLocalID()
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	ctx.Printf("Initialized %s storage at: %s\n", constants.AppName, cli.Location(cfg))
	ctx.Printf("Configuration written to: %s\n", cfg.File())
	return nil
}

// newSecret returns 32 random bytes, base64 encoded
func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/crypto"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/storage"
)

var ErrChecksFailed = errors.New("one or more health checks failed")

type DoctorCmd struct{}

type check struct {
	name string
	// requiresStore checks are skipped when storage is unreachable
	requiresStore bool
	// warnOnly failures do not fail the command
	warnOnly bool
	run      func(*cli.Context) error
}

var checks = []check{
	{name: "Storage reachable", run: checkStoreReachable},
	{name: "Schema version", requiresStore: true, run: checkSchemaVersion},
	{name: "Identity", run: checkIdentity},
	{name: "Encrypted text", requiresStore: true, warnOnly: true, run: checkEncryption},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
	{name: "Clock/timezone", run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")

	hasError := false
	storeReachable := true
	for i, c := range checks {
		if c.requiresStore && !storeReachable {
			ctx.Printf("⊘ %s: SKIPPED (storage not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("%s %s: OK\n", cli.Done("✓"), c.name)
		case c.warnOnly:
			ctx.Printf("%s %s: WARNING\n", cli.Warn("⚠"), c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("%s %s: FAIL\n", cli.Fail("❌"), c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			if i == 0 {
				storeReachable = false
			}
		}
	}

	ctx.Printf("\n")
	if path := logger.Path(); path != "" {
		ctx.Printf("%s\n\n", cli.Muted("Log file: "+path))
	}
	if hasError {
		return ErrChecksFailed
	}
	ctx.Printf("All checks passed.\n")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if ctx.Store == nil {
		return fmt.Errorf("storage is not open")
	}
	q := storage.NewQuery(storage.UserCollection(ctx.Identity.UserID, constants.TodosCollection)).WithLimit(1)
	_, err := ctx.Store.Query(context.Background(), q)
	return err
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Backend.(storage.Migrator)
	if !ok {
		return nil
	}
	st, err := m.SchemaStatus()
	if err != nil {
		return err
	}
	if st.Current > st.Latest {
		return fmt.Errorf("schema version %d is newer than supported version %d", st.Current, st.Latest)
	}
	if len(st.Pending) > 0 {
		return fmt.Errorf("%d pending migration(s), run '%s migrate'", len(st.Pending), constants.AppName)
	}
	return nil
}

func checkIdentity(ctx *cli.Context) error {
	id := ctx.Identity
	if id.UserID == "" {
		return auth.ErrNoIdentity
	}
	if id.ExpiresAt != nil && id.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("session for %s expired at %s", id.UserID, id.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// checkEncryption reports task and journal text still stored as plaintext
func checkEncryption(ctx *cli.Context) error {
	plain := 0
	for _, name := range []string{constants.TodosCollection, constants.JournalCollection} {
		q := storage.NewQuery(storage.UserCollection(ctx.Identity.UserID, name))
		docs, err := ctx.Store.Query(context.Background(), q)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if text, ok := d.Fields["text"].(string); ok && text != "" && !crypto.IsEncrypted(text) {
				plain++
			}
		}
	}
	if plain > 0 {
		return fmt.Errorf("%d record(s) stored as plaintext; they are encrypted the next time they are edited", plain)
	}
	return nil
}

func checkKeyring(*cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClockTimezone(*cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

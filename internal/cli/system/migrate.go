package system

import (
	"fmt"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/storage"
)

type MigrateCmd struct {
	Status   bool `help:"Show schema status without applying migrations."`
	NoBackup bool `help:"Skip the SQLite backup taken before pending migrations run."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Backend.(storage.Migrator)
	if !ok {
		ctx.Printf("The %s backend has no schema to migrate.\n", ctx.Config.Store)
		return nil
	}

	if c.Status {
		st, err := m.SchemaStatus()
		if err != nil {
			return fmt.Errorf("failed to read schema status: %w", err)
		}
		ctx.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)
		for _, p := range st.Pending {
			ctx.Printf("  pending: %03d_%s\n", p.Version, p.Name)
		}
		return nil
	}

	if !c.NoBackup {
		if st, err := m.SchemaStatus(); err == nil && len(st.Pending) > 0 {
			backupBeforeMigrate(ctx)
		}
	}

	count, err := m.Migrate(func(msg string) {
		ctx.Printf("%s\n", msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Printf("No migrations to apply. Database is up to date.\n")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

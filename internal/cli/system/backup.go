package system

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/agenda/internal/backup"
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available snapshots."`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config == nil || ctx.Config.Store != constants.StoreSQLite {
		store := "unknown"
		if ctx.Config != nil {
			store = ctx.Config.Store
		}
		return nil, fmt.Errorf("backups are only supported for the sqlite store (current: %s)", store)
	}
	m := backup.NewManager(ctx.Config.SQLitePath)
	if ctx.Now != nil {
		m.Now = ctx.Now
	}
	return m, nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	m, err := backupManager(ctx)
	if err != nil {
		return err
	}
	info, err := m.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	ctx.Printf("%s Backup created: %s (%s)\n", cli.Done("✓"), info.Path, humanSize(info.Size))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	m, err := backupManager(ctx)
	if err != nil {
		return err
	}
	list, err := m.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.Printf("No backups found in %s\n", m.Dir())
		return nil
	}

	table := cli.NewTable("NAME", "CREATED", "SIZE")
	for _, b := range list {
		table.AddRow(b.Name(), b.Timestamp.Format("2006-01-02 15:04:05"), humanSize(b.Size))
	}
	ctx.Printf("%s\n", table)
	ctx.Printf("%s\n", cli.Muted(fmt.Sprintf("%d backup(s) in %s", len(list), m.Dir())))
	return nil
}

type BackupRestoreCmd struct {
	Backup string `arg:"" help:"Backup file name (from 'backup list') or path."`
	Yes    bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	m, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path := m.Resolve(c.Backup)

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Restore %s?", path)).
			Description("The current database is backed up first, then replaced.").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.Printf("Cancelled.\n")
			return nil
		}
	}

	safety, err := m.Restore(path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if safety != nil {
		ctx.Printf("Previous database saved as %s\n", safety.Name())
	}
	ctx.Printf("%s Restored %s\n", cli.Done("✓"), path)
	return nil
}

// backupBeforeMigrate snapshots a SQLite database that has pending migrations
func backupBeforeMigrate(ctx *cli.Context) {
	m, err := backupManager(ctx)
	if err != nil {
		return
	}
	info, err := m.Create()
	if err != nil {
		ctx.Printf("%s  Could not back up before migrating: %v\n", cli.Warn("⚠"), err)
		return
	}
	ctx.Printf("Backed up to %s\n", info.Name())
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

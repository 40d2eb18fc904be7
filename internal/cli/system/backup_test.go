package system

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/storage/sqlite"
)

func setupTestBackup(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "agenda.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	cur := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config: &config.Config{Store: constants.StoreSQLite, SQLitePath: dbPath},
		Now: func() time.Time {
			cur = cur.Add(time.Second)
			return cur
		},
		Out: out,
	}
	return ctx, out
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out := setupTestBackup(t)

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No backups found") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "Backup created") || !strings.Contains(out.String(), "agenda-20240315-090001.db") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "agenda-20240315-090001.db") || !strings.Contains(out.String(), "1 backup(s)") {
		t.Errorf("unexpected list output:\n%s", out.String())
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, out := setupTestBackup(t)

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}

	out.Reset()
	if err := (&BackupRestoreCmd{Backup: "agenda-20240315-090001.db", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "Previous database saved as agenda-20240315-090002.db") {
		t.Errorf("expected safety backup message:\n%s", s)
	}
	if !strings.Contains(s, "Restored") {
		t.Errorf("expected restore message:\n%s", s)
	}

	if err := (&BackupRestoreCmd{Backup: "agenda-19990101-000000.db", Yes: true}).Run(ctx); err == nil {
		t.Error("expected error for a missing backup")
	}
}

func TestBackupRequiresSQLite(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"memory", &config.Config{Store: constants.StoreMemory}},
		{"postgres", &config.Config{Store: constants.StorePostgres}},
		{"no config", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &cli.Context{Config: tt.cfg, Out: &bytes.Buffer{}}
			if err := (&BackupCreateCmd{}).Run(ctx); err == nil {
				t.Error("expected error for a non-sqlite store")
			}
		})
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.n); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

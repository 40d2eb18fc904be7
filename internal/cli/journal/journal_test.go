package journal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/crypto"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/storage/memory"
	"github.com/julianstephens/agenda/internal/undo"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer, *memory.Store) {
	t.Helper()
	backend := memory.New()
	client := storage.NewClient(backend)
	t.Cleanup(func() { _ = client.Close() })

	var (
		mu  sync.Mutex
		cur = fixedNow
	)
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config:   &config.Config{Store: constants.StoreMemory},
		Backend:  backend,
		Store:    client,
		Crypto:   crypto.New("test-secret"),
		Undo:     undo.New(),
		Identity: auth.Identity{UserID: "user-1", Source: auth.SourceLocal},
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			cur = cur.Add(time.Second)
			return cur
		},
		In:  strings.NewReader(""),
		Out: out,
	}
	return ctx, out, backend
}

func entries(t *testing.T, ctx *cli.Context, day *time.Time) []models.JournalEntry {
	t.Helper()
	v, err := live.NewJournal(context.Background(), ctx.Deps(), day)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer v.Close()
	return v.Items()
}

func addEntry(t *testing.T, ctx *cli.Context, date, text string) {
	t.Helper()
	cmd := &JournalAddCmd{Text: strings.Fields(text), Date: date}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("journal add failed: %v", err)
	}
}

func TestJournalAddAndList(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	addEntry(t, ctx, "today", "slept well")
	addEntry(t, ctx, "today", "long walk in the park")
	if !strings.Contains(out.String(), "2024-03-15") {
		t.Errorf("unexpected add output: %q", out.String())
	}

	day := fixedNow
	items := entries(t, ctx, &day)
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}
	if items[0].Text != "long walk in the park" {
		t.Errorf("expected newest entry first, got %q", items[0].Text)
	}

	out.Reset()
	if err := (&JournalListCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("journal list failed: %v", err)
	}
	if !strings.Contains(out.String(), "slept well") || !strings.Contains(out.String(), "long walk") {
		t.Errorf("unexpected list output:\n%s", out.String())
	}
}

func TestJournalAddPastDay(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	addEntry(t, ctx, "2024-03-10", "looking back")

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)
	items := entries(t, ctx, &day)
	if len(items) != 1 {
		t.Fatalf("expected 1 entry on 2024-03-10, got %d", len(items))
	}
	if items[0].Date.Day() != 10 || items[0].Date.Hour() != 12 {
		t.Errorf("expected the current wall time on the chosen day, got %v", items[0].Date)
	}

	today := fixedNow
	if got := entries(t, ctx, &today); len(got) != 0 {
		t.Errorf("expected no entries today, got %d", len(got))
	}
}

func TestJournalAddRejectsEmpty(t *testing.T) {
	ctx, _, _ := setupTestContext(t)

	if err := (&JournalAddCmd{Text: []string{""}, Date: "today"}).Run(ctx); err == nil {
		t.Error("expected error for empty entry")
	}
	if err := (&JournalAddCmd{Text: []string{"x"}, Date: "not-a-date"}).Run(ctx); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestJournalListArchive(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addEntry(t, ctx, "2024-02-20", "february thoughts")
	addEntry(t, ctx, "today", "march thoughts")

	out.Reset()
	if err := (&JournalListCmd{Archive: true, Full: true}).Run(ctx); err != nil {
		t.Fatalf("journal list failed: %v", err)
	}
	s := out.String()
	march := strings.Index(s, "March 2024")
	february := strings.Index(s, "February 2024")
	if march < 0 || february < 0 {
		t.Fatalf("expected month headings:\n%s", s)
	}
	if march > february {
		t.Errorf("expected newest month first:\n%s", s)
	}
}

func TestJournalListEmpty(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	if err := (&JournalListCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("journal list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No journal entries found") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestJournalEdit(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addEntry(t, ctx, "today", "first draft")

	day := fixedNow
	e := entries(t, ctx, &day)[0]

	cmd := &JournalEditCmd{ID: e.ID[:8], Text: []string{"second", "draft"}, Date: "today"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("journal edit failed: %v", err)
	}

	got := entries(t, ctx, &day)[0]
	if got.Text != "second draft" {
		t.Errorf("text = %q", got.Text)
	}
	if !got.Edited() {
		t.Error("expected entry to be marked edited")
	}
	if !got.Date.Equal(e.Date) {
		t.Errorf("edit changed the entry date from %v to %v", e.Date, got.Date)
	}

	out.Reset()
	if err := (&JournalListCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("journal list failed: %v", err)
	}
	if !strings.Contains(out.String(), "edited") {
		t.Errorf("expected edited marker:\n%s", out.String())
	}
}

func TestJournalDeleteUndo(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addEntry(t, ctx, "today", "keep me")

	day := fixedNow
	e := entries(t, ctx, &day)[0]
	ctx.In = strings.NewReader("u\n")

	if err := (&JournalDeleteCmd{ID: e.ID, Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("journal delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restored") {
		t.Errorf("expected restore message, got %q", out.String())
	}

	items := entries(t, ctx, &day)
	if len(items) != 1 || items[0].ID != e.ID || items[0].Text != "keep me" {
		t.Errorf("expected entry restored, got %+v", items)
	}
}

func TestJournalDeleteNoWait(t *testing.T) {
	ctx, _, backend := setupTestContext(t)
	addEntry(t, ctx, "today", "gone")

	day := fixedNow
	e := entries(t, ctx, &day)[0]

	if err := (&JournalDeleteCmd{ID: e.ID, Date: "today", NoWait: true}).Run(ctx); err != nil {
		t.Fatalf("journal delete failed: %v", err)
	}
	if backend.Len() != 0 {
		t.Errorf("expected entry removed, %d documents left", backend.Len())
	}
	if _, ok := ctx.Undo.Pending(); ok {
		t.Error("expected no pending undo")
	}
}

func TestJournalWriteFailure(t *testing.T) {
	ctx, _, backend := setupTestContext(t)
	backend.SetFailure(errors.New("offline"))

	err := (&JournalAddCmd{Text: []string{"lost"}, Date: "today"}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("expected write failure, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"multi\nline   text", 20, "multi line text"},
		{"abcdefghij", 5, "abcd…"},
	}
	for _, tt := range tests {
		if got := preview(tt.in, tt.n); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

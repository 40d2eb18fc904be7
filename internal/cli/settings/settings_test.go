package settings

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/prefs"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/storage/memory"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	client := storage.NewClient(memory.New())
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	clock := func() time.Time { return now }

	local := prefs.OpenLocal(t.TempDir())
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Store: client,
		Prefs: prefs.New(local, client, "user-1"),
		Focus: prefs.NewFocus(local, clock),
		Now:   clock,
		Out:   out,
	}
	return ctx, out
}

func strPtr(s string) *string { return &s }

func TestSettingsCmd_List(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&SettingsCmd{List: true}).Run(ctx); err != nil {
		t.Fatalf("settings list failed: %v", err)
	}
	for _, want := range []string{"Start of Week: monday", "Theme:         dark", "Language:      en"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestSettingsCmd_Update(t *testing.T) {
	ctx, out := setupTestContext(t)

	cmd := &SettingsCmd{StartOfWeek: strPtr(" Sunday "), Theme: strPtr("LIGHT")}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	if !strings.Contains(out.String(), "Settings updated successfully") {
		t.Errorf("unexpected output: %q", out.String())
	}

	p := ctx.Prefs.Get()
	if p.StartOfWeek != "sunday" || p.Theme != constants.ThemeLight {
		t.Errorf("unexpected preferences: %+v", p)
	}

	doc, err := ctx.Store.Get(context.Background(), storage.UserDoc("user-1"))
	if err != nil {
		t.Fatalf("expected remote preferences: %v", err)
	}
	if _, ok := doc.Fields[constants.PreferencesField]; !ok {
		t.Errorf("remote document missing preferences: %v", doc.Fields)
	}
}

func TestSettingsCmd_InvalidValue(t *testing.T) {
	ctx, _ := setupTestContext(t)

	tests := []struct {
		name string
		cmd  SettingsCmd
	}{
		{"start of week", SettingsCmd{StartOfWeek: strPtr("wednesday")}},
		{"theme", SettingsCmd{Theme: strPtr("neon")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected error for invalid value")
			}
		})
	}
	if p := ctx.Prefs.Get(); p.StartOfWeek != "monday" || p.Theme != constants.ThemeDark {
		t.Errorf("invalid update changed preferences: %+v", p)
	}
}

func TestSettingsCmd_NoChanges(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&SettingsCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if !strings.Contains(out.String(), "No changes specified") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestFocusCmd(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&FocusCmd{}).Run(ctx); err != nil {
		t.Fatalf("focus failed: %v", err)
	}
	if !strings.Contains(out.String(), "No focus set") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&FocusCmd{Text: []string{"ship", "the", "release"}}).Run(ctx); err != nil {
		t.Fatalf("focus set failed: %v", err)
	}
	if !strings.Contains(out.String(), "[ ] ship the release") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&FocusCmd{Done: true}).Run(ctx); err != nil {
		t.Fatalf("focus done failed: %v", err)
	}
	if !strings.Contains(out.String(), "[x] ship the release") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&FocusCmd{Clear: true}).Run(ctx); err != nil {
		t.Fatalf("focus clear failed: %v", err)
	}
	if f := ctx.Focus.Get(); f.Text != "" || f.Completed {
		t.Errorf("expected focus cleared, got %+v", f)
	}
}

func TestFocusCmd_DoneWithoutFocus(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&FocusCmd{Done: true}).Run(ctx); err != nil {
		t.Fatalf("focus done failed: %v", err)
	}
	if !strings.Contains(out.String(), "No focus set for today.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

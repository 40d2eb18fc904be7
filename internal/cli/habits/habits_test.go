package habits

import (
	"bytes"
	"context"
	"strings"
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

// fixedNow is a Friday
var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	client := storage.NewClient(memory.New())
	t.Cleanup(func() { _ = client.Close() })

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config:   &config.Config{Store: constants.StoreMemory},
		Store:    client,
		Crypto:   crypto.New("test-secret"),
		Undo:     undo.New(),
		Identity: auth.Identity{UserID: "user-1", Source: auth.SourceLocal},
		Now:      func() time.Time { return fixedNow },
		In:       strings.NewReader(""),
		Out:      out,
	}
	return ctx, out
}

func addHabit(t *testing.T, ctx *cli.Context, cmd HabitAddCmd) models.Habit {
	t.Helper()
	if cmd.Type == "" {
		cmd.Type = "count"
	}
	if cmd.Target == 0 {
		cmd.Target = 1
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	h, ok := habitNamed(t, ctx, strings.Join(cmd.Name, " "))
	if !ok {
		t.Fatalf("habit %q not found after add", strings.Join(cmd.Name, " "))
	}
	return h
}

func openToday(t *testing.T, ctx *cli.Context) *live.Habits {
	t.Helper()
	v, err := live.NewHabits(context.Background(), ctx.Deps(), fixedNow)
	if err != nil {
		t.Fatalf("failed to open habits: %v", err)
	}
	t.Cleanup(v.Close)
	return v
}

func habitNamed(t *testing.T, ctx *cli.Context, name string) (models.Habit, bool) {
	t.Helper()
	for _, h := range openToday(t, ctx).Items() {
		if h.Name == name {
			return h, true
		}
	}
	return models.Habit{}, false
}

func todayValue(t *testing.T, ctx *cli.Context, id string) int {
	t.Helper()
	return openToday(t, ctx).Value(id)
}

func TestHabitAdd(t *testing.T) {
	ctx, out := setupTestContext(t)

	h := addHabit(t, ctx, HabitAddCmd{Name: []string{"Drink", "water"}, Target: 8, Unit: "glasses", Days: "mon,wed,fri"})
	if h.Type != constants.HabitCount || h.Target != 8 || h.Unit != "glasses" {
		t.Errorf("unexpected habit: %+v", h)
	}
	if len(h.Frequency) != 3 {
		t.Errorf("expected 3 scheduled days, got %v", h.Frequency)
	}
	if !strings.Contains(out.String(), "Mon,Wed,Fri") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestHabitAddValidation(t *testing.T) {
	ctx, _ := setupTestContext(t)
	addHabit(t, ctx, HabitAddCmd{Name: []string{"Read"}})

	tests := []struct {
		name string
		cmd  HabitAddCmd
	}{
		{"duplicate name", HabitAddCmd{Name: []string{"read"}, Type: "count", Target: 1}},
		{"bad type", HabitAddCmd{Name: []string{"Run"}, Type: "streak", Target: 1}},
		{"zero target", HabitAddCmd{Name: []string{"Run"}, Type: "count", Target: 0}},
		{"bad days", HabitAddCmd{Name: []string{"Run"}, Type: "count", Target: 1, Days: "funday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHabitStepAndLog(t *testing.T) {
	ctx, out := setupTestContext(t)
	water := addHabit(t, ctx, HabitAddCmd{Name: []string{"Water"}, Target: 3})
	yoga := addHabit(t, ctx, HabitAddCmd{Name: []string{"Yoga"}, Type: "time", Target: 30})

	if err := (&HabitIncCmd{Habit: "water"}).Run(ctx); err != nil {
		t.Fatalf("habit inc failed: %v", err)
	}
	if err := (&HabitIncCmd{Habit: "Water", Amount: 2}).Run(ctx); err != nil {
		t.Fatalf("habit inc failed: %v", err)
	}
	if got := todayValue(t, ctx, water.ID); got != 3 {
		t.Errorf("water = %d, want 3", got)
	}

	if err := (&HabitIncCmd{Habit: "Yoga"}).Run(ctx); err != nil {
		t.Fatalf("habit inc failed: %v", err)
	}
	if got := todayValue(t, ctx, yoga.ID); got != constants.TimeHabitStep {
		t.Errorf("yoga = %d, want %d", got, constants.TimeHabitStep)
	}

	if err := (&HabitDecCmd{Habit: "Water"}).Run(ctx); err != nil {
		t.Fatalf("habit dec failed: %v", err)
	}
	if got := todayValue(t, ctx, water.ID); got != 2 {
		t.Errorf("water after dec = %d, want 2", got)
	}

	if err := (&HabitLogCmd{Habit: "Water", Value: 5, Date: "yesterday"}).Run(ctx); err != nil {
		t.Fatalf("habit log failed: %v", err)
	}
	if !strings.Contains(out.String(), "2024-03-14") {
		t.Errorf("expected logged date in output: %q", out.String())
	}
	if got := todayValue(t, ctx, water.ID); got != 2 {
		t.Errorf("logging yesterday changed today to %d", got)
	}

	if err := (&HabitResetCmd{Habit: "Water"}).Run(ctx); err != nil {
		t.Fatalf("habit reset failed: %v", err)
	}
	if got := todayValue(t, ctx, water.ID); got != 0 {
		t.Errorf("water after reset = %d, want 0", got)
	}

	if err := (&HabitLogCmd{Habit: "Water", Value: -1, Date: "today"}).Run(ctx); err == nil {
		t.Error("expected error for negative value")
	}
}

func TestHabitDecrementClampsAtZero(t *testing.T) {
	ctx, _ := setupTestContext(t)
	h := addHabit(t, ctx, HabitAddCmd{Name: []string{"Stretch"}})

	if err := (&HabitDecCmd{Habit: "Stretch"}).Run(ctx); err != nil {
		t.Fatalf("habit dec failed: %v", err)
	}
	if got := todayValue(t, ctx, h.ID); got != 0 {
		t.Errorf("value = %d, want 0", got)
	}
}

func TestHabitPauseBlocksSteps(t *testing.T) {
	ctx, _ := setupTestContext(t)
	h := addHabit(t, ctx, HabitAddCmd{Name: []string{"Meditate"}})

	if err := (&HabitPauseCmd{Habit: "Meditate"}).Run(ctx); err != nil {
		t.Fatalf("habit pause failed: %v", err)
	}
	if err := (&HabitIncCmd{Habit: "Meditate"}).Run(ctx); err == nil {
		t.Error("expected error stepping a paused habit")
	}
	if err := (&HabitResetCmd{Habit: "Meditate"}).Run(ctx); err == nil {
		t.Error("expected error resetting a paused habit")
	}

	if err := (&HabitLogCmd{Habit: "Meditate", Value: 1, Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("logging a paused habit should work: %v", err)
	}
	if got := todayValue(t, ctx, h.ID); got != 1 {
		t.Errorf("value = %d, want 1", got)
	}

	if err := (&HabitResumeCmd{Habit: "Meditate"}).Run(ctx); err != nil {
		t.Fatalf("habit resume failed: %v", err)
	}
	if err := (&HabitIncCmd{Habit: "Meditate"}).Run(ctx); err != nil {
		t.Errorf("habit inc after resume failed: %v", err)
	}
}

func TestHabitArchiveAndList(t *testing.T) {
	ctx, out := setupTestContext(t)
	addHabit(t, ctx, HabitAddCmd{Name: []string{"Journal"}})
	addHabit(t, ctx, HabitAddCmd{Name: []string{"Floss"}})

	if err := (&HabitArchiveCmd{Habit: "Floss"}).Run(ctx); err != nil {
		t.Fatalf("habit archive failed: %v", err)
	}

	out.Reset()
	if err := (&HabitListCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if strings.Contains(out.String(), "Floss") {
		t.Errorf("archived habit listed:\n%s", out.String())
	}

	out.Reset()
	if err := (&HabitListCmd{Date: "today", Archived: true}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Floss") || !strings.Contains(out.String(), "[ARCHIVED]") {
		t.Errorf("expected archived habit:\n%s", out.String())
	}

	if err := (&HabitArchiveCmd{Habit: "Floss", Restore: true}).Run(ctx); err != nil {
		t.Fatalf("habit restore failed: %v", err)
	}
	h, _ := habitNamed(t, ctx, "Floss")
	if h.Archived {
		t.Error("expected habit restored")
	}
}

func TestHabitDelete(t *testing.T) {
	ctx, out := setupTestContext(t)
	h := addHabit(t, ctx, HabitAddCmd{Name: []string{"Run"}})
	if err := (&HabitIncCmd{Habit: "Run"}).Run(ctx); err != nil {
		t.Fatalf("habit inc failed: %v", err)
	}

	if err := (&HabitDeleteCmd{Habit: h.ID[:8], Yes: true}).Run(ctx); err != nil {
		t.Fatalf("habit delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted habit: Run") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if _, ok := habitNamed(t, ctx, "Run"); ok {
		t.Error("expected habit removed")
	}
	if got := todayValue(t, ctx, h.ID); got != 1 {
		t.Errorf("expected the log to survive, got %d", got)
	}
	if _, ok := ctx.Undo.Pending(); ok {
		t.Error("habit delete should not be undoable")
	}
}

func TestHabitGrid(t *testing.T) {
	ctx, out := setupTestContext(t)
	addHabit(t, ctx, HabitAddCmd{Name: []string{"Read"}})
	if err := (&HabitLogCmd{Habit: "Read", Value: 1, Date: "2024-03-12"}).Run(ctx); err != nil {
		t.Fatalf("habit log failed: %v", err)
	}

	out.Reset()
	if err := (&HabitGridCmd{Weeks: 1}).Run(ctx); err != nil {
		t.Fatalf("habit grid failed: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "2024-03-11 to 2024-03-17") {
		t.Errorf("expected a monday-start week:\n%s", s)
	}
	if !strings.Contains(s, "●") {
		t.Errorf("expected a success marker:\n%s", s)
	}

	if err := (&HabitGridCmd{Weeks: 0}).Run(ctx); err == nil {
		t.Error("expected error for zero weeks")
	}
}

func TestHabitFindUnknown(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitIncCmd{Habit: "nothing"}).Run(ctx); err == nil {
		t.Error("expected error for unknown habit")
	}
}

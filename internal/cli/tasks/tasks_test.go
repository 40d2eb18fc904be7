package tasks

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

// tickingClock starts at fixedNow and advances a millisecond per call so
// creation order is stable
func tickingClock() func() time.Time {
	var (
		mu  sync.Mutex
		cur = fixedNow
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Millisecond)
		return cur
	}
}

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer, *memory.Store) {
	t.Helper()
	backend := memory.New()
	client := storage.NewClient(backend)
	t.Cleanup(func() { _ = client.Close() })

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config:   &config.Config{Store: constants.StoreMemory},
		Backend:  backend,
		Store:    client,
		Crypto:   crypto.New("test-secret"),
		Undo:     undo.New(),
		Identity: auth.Identity{UserID: "user-1", Source: auth.SourceLocal},
		Now:      tickingClock(),
		In:       strings.NewReader(""),
		Out:      out,
	}
	return ctx, out, backend
}

func todayTasks(t *testing.T, ctx *cli.Context) []models.Todo {
	t.Helper()
	v, err := live.NewTodos(context.Background(), ctx.Deps(), live.ForDay(fixedNow))
	if err != nil {
		t.Fatalf("failed to open todos: %v", err)
	}
	defer v.Close()
	return v.Items()
}

func addTask(t *testing.T, ctx *cli.Context, text string) models.Todo {
	t.Helper()
	cmd := &TaskAddCmd{Text: strings.Fields(text)}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	items := todayTasks(t, ctx)
	for _, td := range items {
		if td.Text == text {
			return td
		}
	}
	t.Fatalf("task %q not found after add", text)
	return models.Todo{}
}

func TestTaskAddAndList(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	addTask(t, ctx, "write report")
	cmd := &TaskAddCmd{Text: []string{"buy", "milk"}, Category: "errands"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	items := todayTasks(t, ctx)
	if len(items) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(items))
	}
	if items[0].Category != constants.DefaultCategory {
		t.Errorf("expected default category, got %q", items[0].Category)
	}
	if items[1].Category != "errands" {
		t.Errorf("expected category errands, got %q", items[1].Category)
	}

	out.Reset()
	if err := (&TaskListCmd{}).Run(ctx); err != nil {
		t.Fatalf("task list failed: %v", err)
	}
	for _, want := range []string{"write report", "buy milk", "errands", "today"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}
}

func TestTaskAddRejectsEmptyText(t *testing.T) {
	ctx, _, backend := setupTestContext(t)

	cmd := &TaskAddCmd{Text: []string{"   "}}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected error for empty text")
	}
	if backend.Len() != 0 {
		t.Errorf("expected nothing written, got %d documents", backend.Len())
	}
}

func TestTaskListEmpty(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	if err := (&TaskListCmd{}).Run(ctx); err != nil {
		t.Fatalf("task list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No tasks found") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestTaskRequiresIdentity(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	ctx.Identity = auth.Identity{}

	err := (&TaskListCmd{}).Run(ctx)
	if !errors.Is(err, auth.ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestTaskDoneByPrefix(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	td := addTask(t, ctx, "stretch")

	cmd := &TaskDoneCmd{ID: td.ID[:6]}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task done failed: %v", err)
	}
	if !strings.Contains(out.String(), "as done") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if items := todayTasks(t, ctx); !items[0].Completed {
		t.Error("expected task to be completed")
	}

	out.Reset()
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if !strings.Contains(out.String(), "not done") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if items := todayTasks(t, ctx); items[0].Completed {
		t.Error("expected task to be open again")
	}
}

func TestTaskDoneUnknownID(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	addTask(t, ctx, "stretch")

	if err := (&TaskDoneCmd{ID: "zzzz"}).Run(ctx); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestTaskEdit(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	td := addTask(t, ctx, "draft")

	text := "final draft"
	category := "work"
	cmd := &TaskEditCmd{ID: td.ID, Text: &text, Category: &category}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task edit failed: %v", err)
	}

	items := todayTasks(t, ctx)
	if items[0].Text != text || items[0].Category != category {
		t.Errorf("got %q/%q, want %q/%q", items[0].Text, items[0].Category, text, category)
	}

	if err := (&TaskEditCmd{ID: td.ID}).Run(ctx); err == nil {
		t.Error("expected error when nothing changes")
	}
	blank := " "
	if err := (&TaskEditCmd{ID: td.ID, Text: &blank}).Run(ctx); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestTaskDeleteUndo(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	td := addTask(t, ctx, "call mom")
	ctx.In = strings.NewReader("u\n")

	if err := (&TaskDeleteCmd{ID: td.ID}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restored") {
		t.Errorf("expected restore message, got %q", out.String())
	}

	items := todayTasks(t, ctx)
	if len(items) != 1 || items[0].ID != td.ID {
		t.Fatalf("expected task restored under the same id, got %+v", items)
	}
	if items[0].Text != "call mom" {
		t.Errorf("restored text = %q", items[0].Text)
	}
}

func TestTaskDeleteNoWait(t *testing.T) {
	ctx, out, backend := setupTestContext(t)
	td := addTask(t, ctx, "call mom")

	if err := (&TaskDeleteCmd{ID: td.ID, NoWait: true}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted task: call mom") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if _, ok := ctx.Undo.Pending(); ok {
		t.Error("expected no pending undo")
	}
	if backend.Len() != 0 {
		t.Errorf("expected document removed, %d left", backend.Len())
	}
}

func TestTaskMove(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	td := addTask(t, ctx, "water plants")

	if err := (&TaskMoveCmd{ID: td.ID, To: "tomorrow"}).Run(ctx); err != nil {
		t.Fatalf("task move failed: %v", err)
	}
	if items := todayTasks(t, ctx); len(items) != 0 {
		t.Errorf("expected no tasks today, got %d", len(items))
	}

	v, err := live.NewTodos(context.Background(), ctx.Deps(), live.ForDay(fixedNow.AddDate(0, 0, 1)))
	if err != nil {
		t.Fatalf("failed to open todos: %v", err)
	}
	defer v.Close()
	if items := v.Items(); len(items) != 1 || items[0].ID != td.ID {
		t.Errorf("expected task on tomorrow, got %+v", items)
	}

	if err := (&TaskMoveCmd{ID: td.ID, To: "someday"}).Run(ctx); err == nil {
		t.Error("expected error for invalid day")
	}
}

func TestTaskReorder(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	a := addTask(t, ctx, "a")
	b := addTask(t, ctx, "b")
	c := addTask(t, ctx, "c")

	if err := (&TaskReorderCmd{IDs: []string{c.ID, a.ID}, Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("task reorder failed: %v", err)
	}

	items := todayTasks(t, ctx)
	got := []string{items[0].ID, items[1].ID, items[2].ID}
	want := []string{c.ID, a.ID, b.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestArrange(t *testing.T) {
	items := []models.Todo{{ID: "aaa1"}, {ID: "bbb2"}, {ID: "ccc3"}}

	tests := []struct {
		name    string
		refs    []string
		want    []string
		wantErr bool
	}{
		{"no refs keeps order", nil, []string{"aaa1", "bbb2", "ccc3"}, false},
		{"moves referenced first", []string{"ccc"}, []string{"ccc3", "aaa1", "bbb2"}, false},
		{"full order", []string{"bbb2", "ccc3", "aaa1"}, []string{"bbb2", "ccc3", "aaa1"}, false},
		{"duplicate", []string{"aaa", "aaa1"}, nil, true},
		{"unknown", []string{"zzz"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := arrange(items, tt.refs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("arrange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("arrange() returned %d items, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestTaskIncomplete(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addTask(t, ctx, "today open")
	yesterday := &TaskAddCmd{Text: []string{"old", "chore"}, Date: "yesterday"}
	if err := yesterday.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	out.Reset()
	if err := (&TaskIncompleteCmd{}).Run(ctx); err != nil {
		t.Fatalf("task incomplete failed: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "old chore") || !strings.Contains(s, "today open") {
		t.Errorf("unexpected output:\n%s", s)
	}
	if strings.Index(s, "old chore") > strings.Index(s, "today open") {
		t.Errorf("expected oldest day first:\n%s", s)
	}
}

func TestTaskAddWriteFailure(t *testing.T) {
	ctx, _, backend := setupTestContext(t)
	backend.SetFailure(errors.New("disk full"))

	err := (&TaskAddCmd{Text: []string{"lost"}}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected write failure, got %v", err)
	}
}

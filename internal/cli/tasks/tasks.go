package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

type TaskCmd struct {
	Add        TaskAddCmd        `cmd:"" help:"Add a new task."`
	List       TaskListCmd       `cmd:"" help:"List tasks." default:"1"`
	Done       TaskDoneCmd       `cmd:"" help:"Toggle a task's completion."`
	Edit       TaskEditCmd       `cmd:"" help:"Edit a task's text or category."`
	Delete     TaskDeleteCmd     `cmd:"" help:"Delete a task (undoable for a few seconds)."`
	Move       TaskMoveCmd       `cmd:"" help:"Move a task to another day."`
	Reorder    TaskReorderCmd    `cmd:"" help:"Set the order of a day's tasks."`
	Incomplete TaskIncompleteCmd `cmd:"" help:"List unfinished tasks from every day."`
}

// openTodos opens the day view for date, or the default view when date is empty
func openTodos(ctx *cli.Context, deps live.Deps, date string) (*live.Todos, error) {
	filter := live.Unfiltered
	if date != "" {
		day, err := utils.ParseDay(date, ctx.Today())
		if err != nil {
			return nil, err
		}
		filter = live.ForDay(day)
	}
	return live.NewTodos(context.Background(), deps, filter)
}

func find(v *live.Todos, ref string) (models.Todo, error) {
	items := v.Items()
	ids := make([]string, len(items))
	for i, t := range items {
		ids[i] = t.ID
	}
	id, err := cli.ResolveID(ids, ref)
	if err != nil {
		return models.Todo{}, fmt.Errorf("task %w", err)
	}
	for _, t := range items {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Todo{}, fmt.Errorf("task %q not found", ref)
}

func checkbox(done bool) string {
	if done {
		return cli.Done("[x]")
	}
	return "[ ]"
}

type TaskAddCmd struct {
	Text     []string `arg:"" help:"Task text."`
	Category string   `short:"c" help:"Category (default: general)."`
	Date     string   `short:"d" help:"Day to add the task to (YYYY-MM-DD, today, tomorrow)."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	text := strings.Join(c.Text, " ")
	if !models.ValidText(text) {
		return fmt.Errorf("task text cannot be empty")
	}

	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	v.Add(text, c.Category)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Added task: %s\n", strings.TrimSpace(text))
	return nil
}

type TaskListCmd struct {
	Date string `short:"d" help:"Show one day (YYYY-MM-DD, today, yesterday, tomorrow). Default: today plus unfinished tasks."`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	v, err := openTodos(ctx, ctx.Deps(), c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	items := v.Items()
	if len(items) == 0 {
		ctx.Printf("No tasks found.\n")
		return nil
	}

	table := cli.NewTable("ID", "", "TASK", "CATEGORY", "DAY")
	for _, t := range items {
		day := utils.DateKey(t.CreatedAt)
		if utils.IsSameDay(t.CreatedAt, ctx.Today()) {
			day = "today"
		} else {
			day = cli.Warn(day)
		}
		table.AddRow(cli.ShortID(t.ID), checkbox(t.Completed), t.Text, cli.Muted(t.Category), day)
	}
	ctx.Printf("%s\n", table)
	return nil
}

type TaskDoneCmd struct {
	ID   string `arg:"" help:"Task ID or prefix."`
	Date string `short:"d" help:"Day the task belongs to."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	t, err := find(v, c.ID)
	if err != nil {
		return err
	}
	v.Toggle(t.ID)
	if err := failed(); err != nil {
		return err
	}
	state := "not done"
	if !t.Completed {
		state = "done"
	}
	ctx.Printf("Marked %q as %s\n", t.Text, state)
	return nil
}

type TaskEditCmd struct {
	ID       string  `arg:"" help:"Task ID or prefix."`
	Text     *string `short:"t" help:"New text."`
	Category *string `short:"c" help:"New category."`
	Date     string  `short:"d" help:"Day the task belongs to."`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	if c.Text == nil && c.Category == nil {
		return fmt.Errorf("nothing to change: pass --text or --category")
	}
	if c.Text != nil && !models.ValidText(*c.Text) {
		return fmt.Errorf("task text cannot be empty")
	}

	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	t, err := find(v, c.ID)
	if err != nil {
		return err
	}
	if c.Text != nil {
		v.UpdateText(t.ID, *c.Text)
	}
	if c.Category != nil {
		v.SetCategory(t.ID, strings.TrimSpace(*c.Category))
	}
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Updated task %s\n", cli.ShortID(t.ID))
	return nil
}

type TaskDeleteCmd struct {
	ID     string `arg:"" help:"Task ID or prefix."`
	Date   string `short:"d" help:"Day the task belongs to."`
	NoWait bool   `help:"Do not wait for an undo."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	t, err := find(v, c.ID)
	if err != nil {
		return err
	}
	v.Delete(t.ID)
	if err := failed(); err != nil {
		return err
	}
	if c.NoWait || ctx.Undo == nil {
		ctx.WaitForUndo(context.Background(), "", true)
		ctx.Printf("Deleted task: %s\n", t.Text)
		return nil
	}
	ctx.WaitForUndo(context.Background(), fmt.Sprintf("task %q", t.Text), false)
	return failed()
}

type TaskMoveCmd struct {
	ID   string `arg:"" help:"Task ID or prefix."`
	To   string `arg:"" help:"Target day (YYYY-MM-DD, today, tomorrow)."`
	Date string `short:"d" help:"Day the task currently belongs to."`
}

func (c *TaskMoveCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	to, err := utils.ParseDay(c.To, ctx.Today())
	if err != nil {
		return err
	}

	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	t, err := find(v, c.ID)
	if err != nil {
		return err
	}
	v.Reschedule(t.ID, to)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Moved %q to %s\n", t.Text, utils.DateKey(to))
	return nil
}

type TaskReorderCmd struct {
	IDs  []string `arg:"" help:"Task IDs in the desired order; unlisted tasks keep their relative order after them."`
	Date string   `short:"d" help:"Day to reorder (default: today)." default:"today"`
}

func (c *TaskReorderCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openTodos(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	ordered, err := arrange(v.Items(), c.IDs)
	if err != nil {
		return err
	}
	v.Reorder(ordered)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Reordered %d tasks\n", len(ordered))
	return nil
}

// arrange puts the referenced tasks first, in the given order, followed by
// the rest in their current order
func arrange(items []models.Todo, refs []string) ([]models.Todo, error) {
	ids := make([]string, len(items))
	byID := make(map[string]models.Todo, len(items))
	for i, t := range items {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	placed := make(map[string]bool, len(refs))
	ordered := make([]models.Todo, 0, len(items))
	for _, ref := range refs {
		id, err := cli.ResolveID(ids, ref)
		if err != nil {
			return nil, fmt.Errorf("task %w", err)
		}
		if placed[id] {
			return nil, fmt.Errorf("task %s listed twice", cli.ShortID(id))
		}
		placed[id] = true
		ordered = append(ordered, byID[id])
	}
	for _, t := range items {
		if !placed[t.ID] {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

type TaskIncompleteCmd struct{}

func (c *TaskIncompleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	v, err := live.NewIncompleteTodos(context.Background(), ctx.Deps())
	if err != nil {
		return err
	}
	defer v.Close()

	groups := v.Groups()
	if len(groups) == 0 {
		ctx.Printf("Nothing left to do.\n")
		return nil
	}
	for _, g := range groups {
		ctx.Printf("%s\n", cli.Heading(g.Date.Format("Mon Jan 2, 2006")))
		table := cli.NewTable()
		for _, t := range g.Todos {
			table.AddRow("  "+cli.ShortID(t.ID), "[ ]", t.Text, cli.Muted(t.Category))
		}
		ctx.Printf("%s\n\n", table)
	}
	return nil
}

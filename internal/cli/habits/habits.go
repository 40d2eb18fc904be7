package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"Show habits and today's progress." default:"1"`
	Log     HabitLogCmd     `cmd:"" help:"Set a habit's value for a day."`
	Inc     HabitIncCmd     `cmd:"" help:"Increase today's value by one step."`
	Dec     HabitDecCmd     `cmd:"" help:"Decrease today's value by one step."`
	Reset   HabitResetCmd   `cmd:"" help:"Reset today's value to zero."`
	Pause   HabitPauseCmd   `cmd:"" help:"Pause a habit."`
	Resume  HabitResumeCmd  `cmd:"" help:"Resume a paused habit."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit (or restore with --restore)."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit definition."`
	Grid    HabitGridCmd    `cmd:"" help:"Show a week of habit history."`
}

func openHabits(ctx *cli.Context, deps live.Deps, date string) (*live.Habits, error) {
	day, err := utils.ParseDay(date, ctx.Today())
	if err != nil {
		return nil, err
	}
	return live.NewHabits(context.Background(), deps, day)
}

// find matches a habit by case-insensitive name, then by id prefix
func find(v *live.Habits, ref string) (models.Habit, error) {
	items := v.Items()
	for _, h := range items {
		if strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			return h, nil
		}
	}
	ids := make([]string, len(items))
	for i, h := range items {
		ids[i] = h.ID
	}
	id, err := cli.ResolveID(ids, ref)
	if err != nil {
		return models.Habit{}, fmt.Errorf("habit %w", err)
	}
	for _, h := range items {
		if h.ID == id {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("habit %q not found", ref)
}

// Symbol renders a day status for listings
func Symbol(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return cli.Done("●")
	case models.StatusPartial:
		return cli.Warn("◐")
	case models.StatusOverage:
		return cli.Fail("▲")
	case models.StatusInactive:
		return cli.Muted(" ")
	default:
		return cli.Muted("·")
	}
}

func progress(h models.Habit, value int) string {
	s := fmt.Sprintf("%d/%d", value, h.Target)
	if h.Unit != "" {
		s += " " + h.Unit
	}
	return s
}

type HabitListCmd struct {
	Archived bool   `help:"Include archived habits."`
	Date     string `short:"d" help:"Day to show." default:"today"`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	v, err := openHabits(ctx, ctx.Deps(), c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	habits := v.Active()
	if c.Archived {
		habits = v.Items()
	}
	if len(habits) == 0 {
		ctx.Printf("No habits found.\n")
		return nil
	}

	table := cli.NewTable("ID", "", "HABIT", "TYPE", "PROGRESS", "DAYS", "")
	for _, h := range habits {
		value := v.Value(h.ID)
		flags := ""
		switch {
		case h.Archived:
			flags = cli.Muted("[ARCHIVED]")
		case h.Paused:
			flags = cli.Warn("[PAUSED]")
		}
		table.AddRow(cli.ShortID(h.ID), Symbol(h.StatusOn(v.Day(), value)), h.Name, string(h.Type),
			progress(h, value), models.FormatFrequency(h.Frequency), flags)
	}
	ctx.Printf("%s\n", table)
	return nil
}

type HabitLogCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
	Value int    `arg:"" help:"Value for the day."`
	Date  string `short:"d" help:"Day to log (YYYY-MM-DD, today, yesterday)." default:"today"`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	if c.Value < 0 {
		return fmt.Errorf("value cannot be negative")
	}
	deps, failed := ctx.Track()
	v, err := openHabits(ctx, deps, c.Date)
	if err != nil {
		return err
	}
	defer v.Close()

	h, err := find(v, c.Habit)
	if err != nil {
		return err
	}
	v.Log(h.ID, c.Value, v.Day())
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Logged %s for %q on %s\n", progress(h, c.Value), h.Name, utils.DateKey(v.Day()))
	return nil
}

type HabitIncCmd struct {
	Habit  string `arg:"" help:"Habit name or ID."`
	Amount int    `short:"n" help:"Add this amount instead of one step."`
}

func (c *HabitIncCmd) Run(ctx *cli.Context) error {
	return step(ctx, c.Habit, false, c.Amount)
}

type HabitDecCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitDecCmd) Run(ctx *cli.Context) error {
	return step(ctx, c.Habit, true, 0)
}

func step(ctx *cli.Context, ref string, down bool, amount int) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("amount cannot be negative")
	}
	deps, failed := ctx.Track()
	v, err := openHabits(ctx, deps, "today")
	if err != nil {
		return err
	}
	defer v.Close()

	h, err := find(v, ref)
	if err != nil {
		return err
	}
	if h.Paused {
		return fmt.Errorf("habit %q is paused", h.Name)
	}
	switch {
	case down:
		v.Decrement(h.ID)
	case amount > 0:
		v.AddManual(h.ID, amount)
	default:
		v.Increment(h.ID)
	}
	if err := failed(); err != nil {
		return err
	}
	value := v.Value(h.ID)
	ctx.Printf("%s %s %s\n", Symbol(h.StatusOn(v.Day(), value)), h.Name, progress(h, value))
	return nil
}

type HabitResetCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitResetCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openHabits(ctx, deps, "today")
	if err != nil {
		return err
	}
	defer v.Close()

	h, err := find(v, c.Habit)
	if err != nil {
		return err
	}
	if h.Paused {
		return fmt.Errorf("habit %q is paused", h.Name)
	}
	v.Reset(h.ID)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Reset %q for today\n", h.Name)
	return nil
}

type HabitPauseCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitPauseCmd) Run(ctx *cli.Context) error {
	return setPaused(ctx, c.Habit, true)
}

type HabitResumeCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitResumeCmd) Run(ctx *cli.Context) error {
	return setPaused(ctx, c.Habit, false)
}

func setPaused(ctx *cli.Context, ref string, paused bool) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openHabits(ctx, deps, "today")
	if err != nil {
		return err
	}
	defer v.Close()

	h, err := find(v, ref)
	if err != nil {
		return err
	}
	v.SetPaused(h.ID, paused)
	if err := failed(); err != nil {
		return err
	}
	if paused {
		ctx.Printf("Paused %q\n", h.Name)
	} else {
		ctx.Printf("Resumed %q\n", h.Name)
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit   string `arg:"" help:"Habit name or ID."`
	Restore bool   `help:"Unarchive instead."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openHabits(ctx, deps, "today")
	if err != nil {
		return err
	}
	defer v.Close()

	h, err := find(v, c.Habit)
	if err != nil {
		return err
	}
	v.SetArchived(h.ID, !c.Restore)
	if err := failed(); err != nil {
		return err
	}
	if c.Restore {
		ctx.Printf("Restored %q\n", h.Name)
	} else {
		ctx.Printf("Archived %q\n", h.Name)
	}
	return nil
}

type HabitGridCmd struct {
	Weeks int `short:"w" help:"Number of weeks to show." default:"1"`
}

func (c *HabitGridCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	if c.Weeks < 1 {
		return fmt.Errorf("weeks must be at least 1")
	}
	v, err := openHabits(ctx, ctx.Deps(), "today")
	if err != nil {
		return err
	}
	defer v.Close()

	startOfWeek := ""
	if ctx.Prefs != nil {
		startOfWeek = ctx.Prefs.Get().StartOfWeek
	}
	start := utils.WeekStart(ctx.Today(), startOfWeek).AddDate(0, 0, -7*(c.Weeks-1))
	end := start.AddDate(0, 0, 7*c.Weeks-1)
	if err := v.LoadRange(context.Background(), start, end); err != nil {
		return err
	}

	habits := v.Active()
	if len(habits) == 0 {
		ctx.Printf("No habits found.\n")
		return nil
	}

	header := []interface{}{"HABIT"}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		header = append(header, d.Format("Mon")[:2])
	}
	table := cli.NewTable(header...)
	logs := v.RangeLogs()
	for _, h := range habits {
		row := []interface{}{h.Name}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.After(ctx.Today()) {
				row = append(row, " ")
				continue
			}
			row = append(row, Symbol(h.StatusOn(d, logs[h.ID][utils.DateKey(d)])))
		}
		table.AddRow(row...)
	}
	ctx.Printf("%s to %s\n%s\n", utils.DateKey(start), utils.DateKey(end), table)
	return nil
}

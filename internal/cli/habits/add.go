package habits

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/models"
)

type HabitAddCmd struct {
	Name   []string `arg:"" optional:"" help:"Habit name. Omit to fill in a form."`
	Type   string   `short:"t" help:"Habit type (count|time|limit)." default:"count"`
	Target int      `short:"g" help:"Daily target (minutes for time habits)." default:"1"`
	Unit   string   `short:"u" help:"Unit label, e.g. glasses."`
	Days   string   `short:"w" help:"Comma-separated weekdays (default: every day)."`
}

// habitForm holds the string values edited by the interactive form
type habitForm struct {
	Name   string
	Type   constants.HabitType
	Target string
	Unit   string
	Days   string
}

func newHabitForm(fm *habitForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[constants.HabitType]().
				Title("Type").
				Options(
					huh.NewOption("Count", constants.HabitCount),
					huh.NewOption("Time (minutes)", constants.HabitTime),
					huh.NewOption("Limit (stay under)", constants.HabitLimit),
				).
				Value(&fm.Type),
			huh.NewInput().
				Title("Daily target").
				Value(&fm.Target).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if i <= 0 {
						return fmt.Errorf("target must be greater than zero")
					}
					return nil
				}),
			huh.NewInput().
				Title("Unit").
				Description("Optional, e.g. glasses or pages").
				Value(&fm.Unit),
			huh.NewInput().
				Title("Days").
				Description("Comma-separated weekdays, empty for every day").
				Value(&fm.Days).
				Validate(func(s string) error {
					_, err := cli.ParseWeekdays(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// input builds the habit definition from flags, or from the form when no
// name was given
func (c *HabitAddCmd) input() (models.HabitInput, error) {
	fm := habitForm{
		Name:   strings.Join(c.Name, " "),
		Type:   constants.HabitType(c.Type),
		Target: strconv.Itoa(c.Target),
		Unit:   c.Unit,
		Days:   c.Days,
	}
	if strings.TrimSpace(fm.Name) == "" {
		if err := newHabitForm(&fm).Run(); err != nil {
			return models.HabitInput{}, err
		}
	}

	typ, err := models.ParseHabitType(string(fm.Type))
	if err != nil {
		return models.HabitInput{}, err
	}
	target, err := strconv.Atoi(strings.TrimSpace(fm.Target))
	if err != nil {
		return models.HabitInput{}, fmt.Errorf("invalid target %q", fm.Target)
	}
	days, err := cli.ParseWeekdays(fm.Days)
	if err != nil {
		return models.HabitInput{}, err
	}
	in := models.HabitInput{
		Name:      strings.TrimSpace(fm.Name),
		Type:      typ,
		Target:    target,
		Unit:      strings.TrimSpace(fm.Unit),
		Frequency: days,
	}
	return in, in.Validate()
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	in, err := c.input()
	if err != nil {
		return err
	}

	deps, failed := ctx.Track()
	v, err := live.NewHabits(context.Background(), deps, ctx.Today())
	if err != nil {
		return err
	}
	defer v.Close()

	for _, h := range v.Items() {
		if strings.EqualFold(h.Name, in.Name) {
			return fmt.Errorf("habit with name %q already exists", in.Name)
		}
	}

	v.Add(in)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Added habit: %s (%s, target %d, %s)\n", in.Name, in.Type, in.Target, models.FormatFrequency(in.Frequency))
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
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

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete habit %q?", h.Name)).
			Description("Logged values are kept. This cannot be undone.").
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

	v.Delete(h.ID)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", h.Name)
	return nil
}

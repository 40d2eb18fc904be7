package settings

import (
	"strings"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/models"
)

// FocusCmd shows or sets today's focus
type FocusCmd struct {
	Text  []string `arg:"" optional:"" help:"New focus for today."`
	Done  bool     `help:"Toggle whether today's focus is complete."`
	Clear bool     `help:"Clear today's focus."`
}

func (c *FocusCmd) Run(ctx *cli.Context) error {
	var f models.Focus
	switch {
	case c.Clear:
		f = ctx.Focus.SetText("")
	case len(c.Text) > 0:
		f = ctx.Focus.SetText(strings.Join(c.Text, " "))
	default:
		f = ctx.Focus.Get()
	}
	if c.Done {
		if f.Text == "" {
			ctx.Printf("No focus set for today.\n")
			return nil
		}
		f = ctx.Focus.Toggle()
	}

	if f.Text == "" {
		ctx.Printf("No focus set for today. Use 'agenda focus <text>' to set one.\n")
		return nil
	}
	mark := cli.Muted("[ ]")
	if f.Completed {
		mark = cli.Done("[x]")
	}
	ctx.Printf("%s %s\n", mark, f.Text)
	return nil
}

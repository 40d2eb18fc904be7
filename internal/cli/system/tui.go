package system

import (
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps := ctx.Deps()
	// Failures show on the TUI status line instead of stderr
	deps.OnError = nil
	return tui.Run(tui.Options{
		Deps:  deps,
		Prefs: ctx.Prefs,
		Focus: ctx.Focus,
	})
}

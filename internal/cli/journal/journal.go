package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

type JournalCmd struct {
	Add    JournalAddCmd    `cmd:"" help:"Write a journal entry."`
	List   JournalListCmd   `cmd:"" help:"Show journal entries." default:"1"`
	Edit   JournalEditCmd   `cmd:"" help:"Rewrite an entry."`
	Delete JournalDeleteCmd `cmd:"" help:"Delete an entry (undoable for a few seconds)."`
}

// openJournal opens one day, or the whole archive when archive is set
func openJournal(ctx *cli.Context, deps live.Deps, date string, archive bool) (*live.Journal, error) {
	if archive {
		return live.NewJournal(context.Background(), deps, nil)
	}
	day, err := utils.ParseDay(date, ctx.Today())
	if err != nil {
		return nil, err
	}
	return live.NewJournal(context.Background(), deps, &day)
}

func find(v *live.Journal, ref string) (models.JournalEntry, error) {
	items := v.Items()
	ids := make([]string, len(items))
	for i, e := range items {
		ids[i] = e.ID
	}
	id, err := cli.ResolveID(ids, ref)
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("entry %w", err)
	}
	for _, e := range items {
		if e.ID == id {
			return e, nil
		}
	}
	return models.JournalEntry{}, fmt.Errorf("entry %q not found", ref)
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) <= n {
		return text
	}
	return string([]rune(text)[:n-1]) + "…"
}

type JournalAddCmd struct {
	Text []string `arg:"" help:"Entry text."`
	Date string   `short:"d" help:"Day to write for (YYYY-MM-DD, today, yesterday)." default:"today"`
}

func (c *JournalAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	text := strings.Join(c.Text, " ")
	if !models.ValidText(text) {
		return fmt.Errorf("entry text cannot be empty")
	}

	deps, failed := ctx.Track()
	v, err := openJournal(ctx, deps, c.Date, false)
	if err != nil {
		return err
	}
	defer v.Close()

	v.Add(text)
	if err := failed(); err != nil {
		return err
	}
	day, _ := v.Day()
	ctx.Printf("Added journal entry for %s\n", utils.DateKey(day))
	return nil
}

type JournalListCmd struct {
	Date    string `short:"d" help:"Day to show." default:"today"`
	Archive bool   `short:"a" help:"Show every entry grouped by month."`
	Full    bool   `short:"f" help:"Print full entry text."`
}

func (c *JournalListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	v, err := openJournal(ctx, ctx.Deps(), c.Date, c.Archive)
	if err != nil {
		return err
	}
	defer v.Close()

	if len(v.Items()) == 0 {
		ctx.Printf("No journal entries found.\n")
		return nil
	}

	if !c.Archive {
		for _, e := range v.Items() {
			c.printEntry(ctx, e, "15:04")
		}
		return nil
	}
	for _, g := range v.ByMonth() {
		ctx.Printf("%s\n", cli.Heading(g.Month))
		for _, e := range g.Entries {
			c.printEntry(ctx, e, "Mon Jan 2 15:04")
		}
		ctx.Printf("\n")
	}
	return nil
}

func (c *JournalListCmd) printEntry(ctx *cli.Context, e models.JournalEntry, layout string) {
	stamp := e.Date.Format(layout)
	if e.Edited() {
		stamp += cli.Muted(" (edited " + e.UpdatedAt.Format(time.Kitchen) + ")")
	}
	if c.Full {
		ctx.Printf("%s  %s\n%s\n\n", cli.ShortID(e.ID), stamp, e.Text)
		return
	}
	ctx.Printf("%s  %s  %s\n", cli.ShortID(e.ID), stamp, preview(e.Text, 60))
}

type JournalEditCmd struct {
	ID      string   `arg:"" help:"Entry ID or prefix."`
	Text    []string `arg:"" help:"New text."`
	Date    string   `short:"d" help:"Day the entry belongs to." default:"today"`
	Archive bool     `short:"a" help:"Look the entry up across all days."`
}

func (c *JournalEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	text := strings.Join(c.Text, " ")
	if !models.ValidText(text) {
		return fmt.Errorf("entry text cannot be empty")
	}

	deps, failed := ctx.Track()
	v, err := openJournal(ctx, deps, c.Date, c.Archive)
	if err != nil {
		return err
	}
	defer v.Close()

	e, err := find(v, c.ID)
	if err != nil {
		return err
	}
	v.Update(e.ID, text)
	if err := failed(); err != nil {
		return err
	}
	ctx.Printf("Updated entry %s\n", cli.ShortID(e.ID))
	return nil
}

type JournalDeleteCmd struct {
	ID      string `arg:"" help:"Entry ID or prefix."`
	Date    string `short:"d" help:"Day the entry belongs to." default:"today"`
	Archive bool   `short:"a" help:"Look the entry up across all days."`
	NoWait  bool   `help:"Do not wait for an undo."`
}

func (c *JournalDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireUser(); err != nil {
		return err
	}
	deps, failed := ctx.Track()
	v, err := openJournal(ctx, deps, c.Date, c.Archive)
	if err != nil {
		return err
	}
	defer v.Close()

	e, err := find(v, c.ID)
	if err != nil {
		return err
	}
	v.Delete(e.ID)
	if err := failed(); err != nil {
		return err
	}
	if c.NoWait || ctx.Undo == nil {
		ctx.WaitForUndo(context.Background(), "", true)
		ctx.Printf("Deleted entry %s\n", cli.ShortID(e.ID))
		return nil
	}
	ctx.WaitForUndo(context.Background(), "entry "+cli.ShortID(e.ID), false)
	return failed()
}

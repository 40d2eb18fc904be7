package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	StartOfWeek *string `help:"First day of the week (monday|sunday)."`
	Theme       *string `help:"Color theme (dark|light)."`
	Language    *string `help:"Display language code."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	if ctx.Prefs == nil {
		return fmt.Errorf("preferences are not available")
	}

	if c.List {
		p := ctx.Prefs.Get()
		ctx.Printf("Current Settings:\n")
		ctx.Printf("  Start of Week: %s\n", p.StartOfWeek)
		ctx.Printf("  Theme:         %s\n", p.Theme)
		ctx.Printf("  Language:      %s\n", p.Language)
		return nil
	}

	patch := make(map[string]string)
	if c.StartOfWeek != nil {
		patch[constants.SettingStartOfWeek] = strings.ToLower(strings.TrimSpace(*c.StartOfWeek))
	}
	if c.Theme != nil {
		patch[constants.SettingTheme] = strings.ToLower(strings.TrimSpace(*c.Theme))
	}
	if c.Language != nil {
		patch[constants.SettingLanguage] = strings.TrimSpace(*c.Language)
	}

	if len(patch) == 0 {
		ctx.Printf("No changes specified. Use --list to view settings or flags to update them.\n")
		return nil
	}
	if err := ctx.Prefs.Update(context.Background(), patch); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Printf("Settings updated successfully.\n")
	return nil
}

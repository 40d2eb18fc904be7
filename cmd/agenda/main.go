package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/cli/habits"
	"github.com/julianstephens/agenda/internal/cli/journal"
	"github.com/julianstephens/agenda/internal/cli/settings"
	"github.com/julianstephens/agenda/internal/cli/system"
	"github.com/julianstephens/agenda/internal/cli/tasks"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	DataDir string `help:"Data directory holding config.yaml, logs and the SQLite database." env:"AGENDA_CONFIG_DIR" placeholder:"~/.config/agenda"`
	Debug   bool   `help:"Enable debug logging."`
	Store   string `help:"Override the configured storage backend (sqlite|postgres|supabase|memory)."`

	Init     system.InitCmd       `cmd:"" help:"Initialize agenda storage and generate the application secret."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Backup   system.BackupCmd     `cmd:"" help:"Create, list and restore SQLite backups."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Login    system.LoginCmd      `cmd:"" help:"Sign in with a session token."`
	Logout   system.LogoutCmd     `cmd:"" help:"Remove the stored session token."`
	Whoami   system.WhoamiCmd     `cmd:"" help:"Show the current identity."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage secrets in the OS keyring."`
	Task     tasks.TaskCmd        `cmd:"" help:"Manage tasks."`
	Journal  journal.JournalCmd   `cmd:"" help:"Write and read journal entries."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits and habit tracking."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage synced preferences."`
	Focus    settings.FocusCmd    `cmd:"" help:"Show or set today's focus."`
}

// offline commands run without opening storage
var offline = map[string]bool{
	"backup":  true,
	"init":    true,
	"keyring": true,
	"login":   true,
	"logout":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Tasks, journal and habits for your day"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	command := strings.Fields(ctx.Command())[0]

	dataDir, err := config.DataDir(CLI.DataDir)
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug, DataDir: dataDir, Quiet: command == "tui"}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		apperrors.Fatal(err)
	}
	if cfg.Debug && !CLI.Debug {
		if err := logger.Init(logger.Config{Debug: true, DataDir: dataDir, Quiet: command == "tui"}); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
		}
	}
	if CLI.Store != "" {
		cfg.Store = strings.ToLower(CLI.Store)
		if err := cfg.Validate(); err != nil {
			apperrors.Fatal(err)
		}
	}

	appCtx := &cli.Context{Config: cfg}
	if !offline[command] {
		appCtx, err = cli.Open(context.Background(), cfg)
		if err != nil {
			apperrors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	if err != nil {
		apperrors.Fatal(err)
	}
	_ = logger.Close()
}

package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show a stored secret (masked)."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability and stored secrets." default:"1"`
}

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	Entry string `arg:"" help:"Secret name (database-connection|session-token|app-secret|supabase-key)."`
	Value string `arg:"" help:"Secret value."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.ParseEntry(cmd.Entry)
	if err != nil {
		return err
	}

	if entry == keyring.ConnectionString {
		if _, err := postgres.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			ctx.Printf("%s  Warning: Connection string contains embedded credentials.\n", cli.Warn("⚠"))
			ctx.Printf("   It will be stored as-is in the encrypted OS keyring.\n")
		}
	}

	if err := keyring.Set(entry, cmd.Value); err != nil {
		return err
	}
	ctx.Printf("%s %s stored successfully in OS keyring\n", cli.Done("✓"), entry)
	return nil
}

// KeyringGetCmd retrieves a secret from the OS keyring
type KeyringGetCmd struct {
	Entry string `arg:"" help:"Secret name."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.ParseEntry(cmd.Entry)
	if err != nil {
		return err
	}
	value, err := keyring.Get(entry)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring. Use '%s keyring set %s <value>' to store one", entry, constants.AppName, entry)
		}
		return fmt.Errorf("failed to retrieve %s from keyring: %w", entry, err)
	}

	if entry == keyring.ConnectionString {
		ctx.Printf("%s\n", maskPassword(value))
	} else {
		ctx.Printf("%s\n", maskSecret(value))
	}
	return nil
}

// KeyringDeleteCmd removes a secret from the OS keyring
type KeyringDeleteCmd struct {
	Entry string `arg:"" help:"Secret name."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.ParseEntry(cmd.Entry)
	if err != nil {
		return err
	}
	if err := keyring.Delete(entry); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", entry)
		}
		return err
	}
	ctx.Printf("%s %s deleted from OS keyring\n", cli.Done("✓"), entry)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Printf("%s OS keyring is not available on this system\n", cli.Fail("❌"))
		return keyring.ErrKeyringUnavailable
	}
	ctx.Printf("%s OS keyring is available\n", cli.Done("✓"))

	for _, entry := range keyring.Entries {
		_, err := keyring.Get(entry)
		switch {
		case err == nil:
			ctx.Printf("%s %s is stored\n", cli.Done("✓"), entry)
		case errors.Is(err, keyring.ErrNotFound):
			ctx.Printf("ℹ %s is not stored\n", entry)
		default:
			ctx.Printf("%s %s: %v\n", cli.Warn("⚠"), entry, err)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		masked := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				masked = append(masked, "password=****")
			} else {
				masked = append(masked, part)
			}
		}
		return strings.Join(masked, " ")
	}

	return connStr
}

// maskSecret keeps the first four characters of a token or key
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

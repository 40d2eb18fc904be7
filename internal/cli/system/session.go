package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/keyring"
)

// sessionTTL applies to tokens signed locally with --issue
const sessionTTL = 30 * 24 * time.Hour

// LoginCmd stores a session token so data is scoped to that user
type LoginCmd struct {
	Token string `arg:"" optional:"" help:"Session token (JWT) from the auth provider."`
	Issue string `help:"Sign a token for this user id with AGENDA_JWT_SECRET instead."`
	Email string `help:"Email claim for --issue."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	token := c.Token
	if c.Issue != "" {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("--issue requires %s", config.EnvJWTSecret)
		}
		t, err := auth.IssueToken(c.Issue, c.Email, cfg.JWTSecret, sessionTTL, time.Now())
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		token = t
	}
	if token == "" {
		return fmt.Errorf("a session token is required")
	}

	id, err := auth.ParseToken(token, cfg.JWTSecret, time.Now())
	if err != nil {
		return err
	}
	if err := keyring.Set(keyring.SessionToken, token); err != nil {
		return err
	}
	cfg.SessionToken = token

	ctx.Printf("%s Signed in as %s\n", cli.Done("✓"), describe(id))
	return nil
}

// LogoutCmd removes the stored session token; the local identity is kept
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.SessionToken); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			ctx.Printf("Not signed in.\n")
			return nil
		}
		return err
	}
	if ctx.Config != nil {
		ctx.Config.SessionToken = ""
	}
	ctx.Printf("%s Signed out\n", cli.Done("✓"))
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	if ctx.Identity.UserID == "" {
		return auth.ErrNoIdentity
	}
	ctx.Printf("%s\n", describe(ctx.Identity))
	if ctx.Identity.ExpiresAt != nil {
		ctx.Printf("Session expires: %s\n", ctx.Identity.ExpiresAt.Local().Format(time.RFC1123))
	}
	if ctx.Config != nil {
		ctx.Printf("Storage: %s (%s)\n", ctx.Config.Store, cli.Location(ctx.Config))
	}
	return nil
}

func describe(id auth.Identity) string {
	s := id.UserID
	if id.Email != "" {
		s = fmt.Sprintf("%s <%s>", id.Email, id.UserID)
	}
	return fmt.Sprintf("%s (%s)", s, id.Source)
}

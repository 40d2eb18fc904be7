package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/julianstephens/agenda/internal/auth"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/crypto"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/prefs"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/undo"
	"github.com/julianstephens/agenda/internal/utils"
)

// Context carries the collaborators every command runs against
type Context struct {
	Config   *config.Config
	Backend  storage.Backend
	Store    storage.Provider
	Crypto   *crypto.Adapter
	Undo     *undo.Coordinator
	Identity auth.Identity
	Prefs    *prefs.Manager
	Focus    *prefs.Focus

	// Now defaults to time.Now
	Now func() time.Time
	In  io.Reader
	Out io.Writer
	// OnError receives write failures swallowed by live views
	OnError func(op string, err error)
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Context) in() io.Reader {
	if c.In != nil {
		return c.In
	}
	return os.Stdin
}

// Printf writes to the command output
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

// Deps builds the live view dependencies for the signed-in user
func (c *Context) Deps() live.Deps {
	return live.Deps{
		Store:   c.Store,
		Crypto:  c.Crypto,
		Undo:    c.Undo,
		UserID:  c.Identity.UserID,
		Now:     c.now,
		OnError: c.OnError,
	}
}

// Track returns view dependencies whose write failures are captured, and a
// func reporting the first one
func (c *Context) Track() (live.Deps, func() error) {
	deps := c.Deps()
	var (
		mu    sync.Mutex
		first error
	)
	deps.OnError = func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if first == nil {
			first = fmt.Errorf("%s: %w", op, err)
		}
	}
	return deps, func() error {
		mu.Lock()
		defer mu.Unlock()
		return first
	}
}

// Today is local midnight of the current day
func (c *Context) Today() time.Time {
	return utils.StartOfDay(c.now())
}

// RequireUser fails commands that need an identity
func (c *Context) RequireUser() error {
	if c.Identity.UserID == "" {
		return fmt.Errorf("%w: run 'agenda login <token>' or 'agenda init'", auth.ErrNoIdentity)
	}
	if c.Store == nil {
		return fmt.Errorf("storage is not open")
	}
	return nil
}

// Close ends any pending undo window and releases the store
func (c *Context) Close() error {
	if c.Undo != nil {
		c.Undo.Dismiss()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// WaitForUndo keeps the process alive for the undo window and restores the
// deleted record when the user types u and Enter
func (c *Context) WaitForUndo(ctx context.Context, label string, noWait bool) bool {
	if c.Undo == nil {
		return false
	}
	if noWait {
		c.Undo.Dismiss()
		return false
	}
	remaining := c.Undo.Remaining()
	if remaining <= 0 {
		return false
	}

	c.Printf("Deleted %s. Type u and press Enter within %ds to undo.\n", label, int(remaining.Round(time.Second)/time.Second))

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.in()).ReadString('\n')
		lines <- strings.TrimSpace(line)
	}()

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case line := <-lines:
		if strings.EqualFold(line, "u") && c.Undo.Undo() {
			c.Printf("Restored %s.\n", label)
			return true
		}
		c.Undo.Dismiss()
	case <-timer.C:
	case <-ctx.Done():
		c.Undo.Dismiss()
	}
	return false
}

// NewTable returns a table formatted like the rest of the CLI output
func NewTable(headers ...interface{}) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	if len(headers) > 0 {
		table.AddRow(headers...)
	}
	return table
}

var (
	Done    = color.New(color.FgGreen).SprintFunc()
	Warn    = color.New(color.FgYellow).SprintFunc()
	Fail    = color.New(color.FgRed).SprintFunc()
	Muted   = color.New(color.Faint).SprintFunc()
	Heading = color.New(color.Bold).SprintFunc()
)

// ShortID is the prefix shown in listings
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ResolveID matches a full id or a unique prefix against ids
func ResolveID(ids []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("an id is required")
	}
	var matches []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no item matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", ref, len(matches))
	}
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), "daily") {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	seen := make(map[time.Weekday]bool)
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		wd, ok := dayMap[part]
		if !ok {
			// Try parsing as number (0=Sunday, 6=Saturday)
			num, err := strconv.Atoi(part)
			if err != nil || num < 0 || num > 6 {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			wd = time.Weekday(num)
		}
		if !seen[wd] {
			seen[wd] = true
			weekdays = append(weekdays, wd)
		}
	}

	return weekdays, nil
}

// ReportError is the default OnError sink for commands
func ReportError(op string, err error) {
	logger.Debug("Reported write failure", "op", op, "error", err)
	fmt.Fprintf(os.Stderr, "%s %s failed: %v\n", Fail("!"), op, err)
}

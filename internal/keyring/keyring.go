package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/agenda/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested entry
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Entry names a secret the application keeps in the OS keyring
type Entry string

const (
	ConnectionString Entry = constants.KeyringUserConnection
	SessionToken     Entry = constants.KeyringUserSession
	AppSecret        Entry = constants.KeyringUserAppSecret
	SupabaseKey      Entry = constants.KeyringUserSupabase
)

// Entries lists every secret the application may store
var Entries = []Entry{ConnectionString, SessionToken, AppSecret, SupabaseKey}

// Get retrieves a secret from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func Get(entry Entry) (string, error) {
	value, err := keyring.Get(constants.AppName, string(entry))
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores a secret in the OS keyring.
func Set(entry Entry, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", entry)
	}
	if err := keyring.Set(constants.AppName, string(entry), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", entry, err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func Delete(entry Entry) error {
	err := keyring.Delete(constants.AppName, string(entry))
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", entry, err)
	}
	return nil
}

// Lookup is Get that treats a missing or unavailable keyring as "no value"
func Lookup(entry Entry) string {
	value, err := Get(entry)
	if err != nil {
		return ""
	}
	return value
}

// ParseEntry resolves a user-supplied entry name
func ParseEntry(name string) (Entry, error) {
	for _, e := range Entries {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown keyring entry %q", name)
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}

// Package crypto encrypts user text before it leaves the device.
//
// Keys are derived per user from a shared application secret, so any client
// holding the secret can read a user's records once it knows the user id.
// Records written by older clients in the CryptoJS passphrase format remain
// readable; new writes always use AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"

	"github.com/julianstephens/agenda/internal/logger"
)

const (
	versionPrefix = "v1:"
	keyInfo       = "agenda text key v1"
	keySize       = 32
)

var (
	errMalformed = errors.New("malformed ciphertext")
	errNotText   = errors.New("decrypted bytes are not text")
)

// Outcome reports how a stored value was turned back into text
type Outcome int

const (
	// Recovered means the value was ciphertext and decrypted cleanly
	Recovered Outcome = iota
	// PassedThrough means the value was returned unchanged, either because it
	// was never encrypted or because it could not be decrypted
	PassedThrough
)

func (o Outcome) String() string {
	if o == Recovered {
		return "recovered"
	}
	return "passed-through"
}

// DecryptResult is the text produced by Open together with how it was obtained
type DecryptResult struct {
	Text    string
	Outcome Outcome
}

// Adapter encrypts and decrypts text fields for a given user id
type Adapter struct {
	secret string

	mu   sync.Mutex
	keys map[string][]byte
}

// New returns an adapter keyed by the application secret
func New(secret string) *Adapter {
	return &Adapter{
		secret: secret,
		keys:   make(map[string][]byte),
	}
}

// DeriveKey returns the 32-byte key for userID. The same inputs always yield
// the same key.
func (a *Adapter) DeriveKey(userID string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if key, ok := a.keys[userID]; ok {
		return key
	}
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(a.secret), []byte(userID), []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*32 bytes of output
		panic(fmt.Sprintf("crypto: derive key: %v", err))
	}
	a.keys[userID] = key
	return key
}

// Encrypt returns the ciphertext for plaintext. Empty text or an empty user id
// is returned unchanged. If encryption fails the plaintext is returned and the
// failure logged.
func (a *Adapter) Encrypt(plaintext, userID string) string {
	if plaintext == "" || userID == "" {
		return plaintext
	}
	out, err := a.seal(plaintext, userID)
	if err != nil {
		logger.Error("Failed to encrypt text", "error", err)
		return plaintext
	}
	return out
}

// Decrypt returns the plaintext for value, or value itself if it is not
// ciphertext this adapter can open.
func (a *Adapter) Decrypt(value, userID string) string {
	return a.Open(value, userID).Text
}

// Open decrypts value and reports whether anything was recovered. It never
// fails: legacy plaintext, foreign ciphertext and corrupt data all come back
// unchanged with Outcome PassedThrough.
func (a *Adapter) Open(value, userID string) DecryptResult {
	passed := DecryptResult{Text: value, Outcome: PassedThrough}
	if value == "" || userID == "" {
		return passed
	}

	var (
		text string
		err  error
	)
	switch {
	case strings.HasPrefix(value, versionPrefix):
		text, err = a.open(strings.TrimPrefix(value, versionPrefix), userID)
	case strings.HasPrefix(value, legacyPrefix):
		text, err = openLegacy(value, a.secret+"-"+userID)
	default:
		return passed
	}
	if err != nil {
		logger.Debug("Returning stored text unchanged", "reason", err)
		return passed
	}
	if text == "" {
		return passed
	}
	return DecryptResult{Text: text, Outcome: Recovered}
}

// IsEncrypted reports whether value carries a known ciphertext prefix
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, versionPrefix) || strings.HasPrefix(value, legacyPrefix)
}

func (a *Adapter) seal(plaintext, userID string) (string, error) {
	gcm, err := newGCM(a.DeriveKey(userID))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), []byte(userID))
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (a *Adapter) open(encoded, userID string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}
	gcm, err := newGCM(a.DeriveKey(userID))
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize()+gcm.Overhead() {
		return "", errMalformed
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, []byte(userID))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", errNotText
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

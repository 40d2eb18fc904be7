// Package auth resolves the current user id from a session token or a
// device-local identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for malformed, expired or badly signed tokens
	ErrInvalidToken = errors.New("invalid session token")
	// ErrNoSubject is returned when a token carries no sub claim
	ErrNoSubject = errors.New("session token has no subject")
	// ErrNoIdentity is returned when neither a token nor a local id is available
	ErrNoIdentity = errors.New("not signed in")
)

// Source describes where an identity came from
type Source string

const (
	SourceSession Source = "session"
	SourceLocal   Source = "local"
)

// Claims are the session token fields this application reads
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID    string
	Email     string
	Source    Source
	ExpiresAt *time.Time
}

// ParseToken extracts the identity from a session JWT. With a secret the
// HS256 signature is verified; without one the token is trusted as issued by
// the managed auth provider and only its expiry is checked.
func ParseToken(token, secret string, now time.Time) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	if secret != "" {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(func() time.Time { return now }),
		)
		if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}); err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenExpired)
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrNoSubject
	}

	id := Identity{UserID: sub, Email: claims.Email, Source: SourceSession}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		id.ExpiresAt = &exp
	}
	return id, nil
}

// Resolve prefers the session token and falls back to the local identity
func Resolve(token, secret, localID string, now time.Time) (Identity, error) {
	if strings.TrimSpace(token) != "" {
		return ParseToken(token, secret, now)
	}
	if localID != "" {
		return Identity{UserID: localID, Source: SourceLocal}, nil
	}
	return Identity{}, ErrNoIdentity
}

// NewLocalID generates a device identity for use without an account
func NewLocalID() string {
	return "local-" + uuid.NewString()
}

// IssueToken signs an HS256 session token for userID
func IssueToken(userID, email, secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("a signing secret is required")
	}
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

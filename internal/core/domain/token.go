package domain

import (
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
)

// TokenKind distinguishes the four credential flavours the core issues.
type TokenKind string

const (
	TokenKindAccess            TokenKind = "access"
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindPasswordReset     TokenKind = "password_reset"
	TokenKindEmailVerification TokenKind = "email_verification"
)

var (
	// ErrBlankTokenValue indicates construction with an empty opaque value.
	ErrBlankTokenValue = errors.New("token value must not be blank")
	// ErrInvalidTokenValidity indicates a non-positive validity window.
	ErrInvalidTokenValidity = errors.New("token validity must be positive")
)

// Token is a single-purpose, expiring, revocable credential tied to one
// account. Immutable: the only transition is Revoke, which returns a new
// value.
type Token struct {
	ID        string
	AccountID string
	Kind      TokenKind
	Value     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// NewAccessToken issues a short-lived API credential.
func NewAccessToken(accountID, value string, validity time.Duration) (Token, error) {
	return newToken(accountID, TokenKindAccess, value, validity)
}

// NewRefreshToken issues a long-lived credential exchanged for new access tokens.
func NewRefreshToken(accountID, value string, validity time.Duration) (Token, error) {
	return newToken(accountID, TokenKindRefresh, value, validity)
}

// NewPasswordResetToken issues a one-time password reset credential.
func NewPasswordResetToken(accountID, value string, validity time.Duration) (Token, error) {
	return newToken(accountID, TokenKindPasswordReset, value, validity)
}

// NewEmailVerificationToken issues a one-time email verification credential.
func NewEmailVerificationToken(accountID, value string, validity time.Duration) (Token, error) {
	return newToken(accountID, TokenKindEmailVerification, value, validity)
}

func newToken(accountID string, kind TokenKind, value string, validity time.Duration) (Token, error) {
	if strings.TrimSpace(value) == "" {
		return Token{}, ErrBlankTokenValue
	}
	if validity <= 0 {
		return Token{}, ErrInvalidTokenValidity
	}

	now := time.Now().UTC()
	return Token{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
	}, nil
}

// Revoke returns a revoked copy of the token. Revoking an already-revoked
// token returns the receiver unchanged, so the transition is idempotent.
func (t Token) Revoke() Token {
	if t.Revoked {
		return t
	}
	t.Revoked = true
	return t
}

// IsExpired reports whether the token has elapsed its validity window.
func (t Token) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// IsValid reports whether the token is neither revoked nor expired.
func (t Token) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}

// TTL returns the remaining lifetime. Negative once expired.
func (t Token) TTL() time.Duration {
	return time.Until(t.ExpiresAt)
}

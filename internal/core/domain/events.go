package domain

import (
	"time"

	uuid "github.com/google/uuid"
)

// Event is implemented by every identity domain event. The set of
// implementations is closed; consumers switch on EventType.
type Event interface {
	EventID() string
	AccountID() string
	OccurredAt() time.Time
	EventType() string
}

type eventHeader struct {
	ID        string
	Subject   string
	Timestamp time.Time
}

func newEventHeader(accountID string) eventHeader {
	return eventHeader{
		ID:        uuid.NewString(),
		Subject:   accountID,
		Timestamp: time.Now().UTC(),
	}
}

func (h eventHeader) EventID() string       { return h.ID }
func (h eventHeader) AccountID() string     { return h.Subject }
func (h eventHeader) OccurredAt() time.Time { return h.Timestamp }

// AccountRegistered is raised when a new account is created.
type AccountRegistered struct {
	eventHeader
	Email    string
	Provider AuthProvider
}

// NewAccountRegistered builds the event from a persisted account.
func NewAccountRegistered(account Account) AccountRegistered {
	return AccountRegistered{
		eventHeader: newEventHeader(account.ID),
		Email:       account.Email,
		Provider:    account.Provider,
	}
}

func (AccountRegistered) EventType() string { return "identity.account.registered" }

// AccountAuthenticated is raised after a successful login.
type AccountAuthenticated struct {
	eventHeader
	Provider AuthProvider
}

// NewAccountAuthenticated builds the event for a login.
func NewAccountAuthenticated(account Account) AccountAuthenticated {
	return AccountAuthenticated{
		eventHeader: newEventHeader(account.ID),
		Provider:    account.Provider,
	}
}

func (AccountAuthenticated) EventType() string { return "identity.account.authenticated" }

// TokensRefreshed is raised when a refresh token is rotated.
type TokensRefreshed struct {
	eventHeader
}

// NewTokensRefreshed builds the event for a rotation.
func NewTokensRefreshed(account Account) TokensRefreshed {
	return TokensRefreshed{eventHeader: newEventHeader(account.ID)}
}

func (TokensRefreshed) EventType() string { return "identity.token.refreshed" }

// AccountLoggedOut is raised when a session ends, either for one device or
// for every device.
type AccountLoggedOut struct {
	eventHeader
	AllDevices bool
}

// NewAccountLoggedOut builds the event for a single-device logout.
func NewAccountLoggedOut(accountID string) AccountLoggedOut {
	return AccountLoggedOut{eventHeader: newEventHeader(accountID)}
}

// NewAccountLoggedOutEverywhere builds the event for an all-devices logout.
func NewAccountLoggedOutEverywhere(accountID string) AccountLoggedOut {
	return AccountLoggedOut{eventHeader: newEventHeader(accountID), AllDevices: true}
}

func (AccountLoggedOut) EventType() string { return "identity.account.logged_out" }

// ProfileUpdated is raised when profile fields change.
type ProfileUpdated struct {
	eventHeader
	DisplayName string
}

// NewProfileUpdated builds the event from the updated account.
func NewProfileUpdated(account Account) ProfileUpdated {
	return ProfileUpdated{
		eventHeader: newEventHeader(account.ID),
		DisplayName: account.Profile.DisplayName,
	}
}

func (ProfileUpdated) EventType() string { return "identity.profile.updated" }

// PasswordChanged is raised when credential material is replaced, whether
// through the change-password or reset-password flow.
type PasswordChanged struct {
	eventHeader
}

// NewPasswordChanged builds the event for a credential replacement.
func NewPasswordChanged(account Account) PasswordChanged {
	return PasswordChanged{eventHeader: newEventHeader(account.ID)}
}

func (PasswordChanged) EventType() string { return "identity.password.changed" }

// PasswordResetRequested is raised when a reset token is issued. It carries
// the token id and expiry, never the opaque value.
type PasswordResetRequested struct {
	eventHeader
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// NewPasswordResetRequested builds the event from the issued token.
func NewPasswordResetRequested(account Account, token Token) PasswordResetRequested {
	return PasswordResetRequested{
		eventHeader: newEventHeader(account.ID),
		Email:       account.Email,
		TokenID:     token.ID,
		ExpiresAt:   token.ExpiresAt,
	}
}

func (PasswordResetRequested) EventType() string { return "identity.password.reset_requested" }

// EmailVerificationRequested is raised when a verification token is issued
// during local registration. It carries the token id and expiry, never the
// opaque value.
type EmailVerificationRequested struct {
	eventHeader
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// NewEmailVerificationRequested builds the event from the issued token.
func NewEmailVerificationRequested(account Account, token Token) EmailVerificationRequested {
	return EmailVerificationRequested{
		eventHeader: newEventHeader(account.ID),
		Email:       account.Email,
		TokenID:     token.ID,
		ExpiresAt:   token.ExpiresAt,
	}
}

func (EmailVerificationRequested) EventType() string { return "identity.email.verification_requested" }

// EmailVerified is raised when an account completes email verification.
type EmailVerified struct {
	eventHeader
	Email string
}

// NewEmailVerified builds the event from the verified account.
func NewEmailVerified(account Account) EmailVerified {
	return EmailVerified{
		eventHeader: newEventHeader(account.ID),
		Email:       account.Email,
	}
}

func (EmailVerified) EventType() string { return "identity.email.verified" }

package domain

import (
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderGoogle   AuthProvider = "google"
	ProviderApple    AuthProvider = "apple"
	ProviderFacebook AuthProvider = "facebook"
)

var (
	// ErrBlankEmail indicates the account email is empty.
	ErrBlankEmail = errors.New("email must not be blank")
	// ErrMissingPasswordHash indicates a local account without credential material.
	ErrMissingPasswordHash = errors.New("password hash is required for local accounts")
	// ErrMissingExternalID indicates an external account without a provider identity.
	ErrMissingExternalID = errors.New("external id is required for external providers")
	// ErrNotLocalProvider indicates a password operation on an externally authenticated account.
	ErrNotLocalProvider = errors.New("account does not use local authentication")
)

// Profile holds optional presentation attributes of an account.
// Locale and Timezone always carry a value, defaulting to "en" and "UTC".
type Profile struct {
	DisplayName string
	FirstName   string
	LastName    string
	AvatarURL   string
	Locale      string
	Timezone    string
}

// EmptyProfile returns a profile carrying only the defaults.
func EmptyProfile() Profile {
	return Profile{Locale: "en", Timezone: "UTC"}
}

// Normalize fills defaulted fields that arrived empty.
func (p Profile) Normalize() Profile {
	if p.Locale == "" {
		p.Locale = "en"
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	return p
}

// WithName replaces the name pair and recomputes the display name.
func (p Profile) WithName(firstName, lastName string) Profile {
	p.FirstName = firstName
	p.LastName = lastName
	p.DisplayName = BuildDisplayName(firstName, lastName)
	return p
}

// FullName returns the combined name, falling back to the display name.
func (p Profile) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.DisplayName
	}
	return BuildDisplayName(p.FirstName, p.LastName)
}

// BuildDisplayName joins the non-empty name parts with a space.
func BuildDisplayName(firstName, lastName string) string {
	switch {
	case firstName == "":
		return lastName
	case lastName == "":
		return firstName
	default:
		return firstName + " " + lastName
	}
}

// Account is the aggregate root for a platform identity. Values are
// immutable: every transition returns a new Account and never mutates the
// receiver, so a value read from a repository can be shared freely.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	Provider      AuthProvider
	ExternalID    string
	Profile       Profile
	Roles         map[Role]struct{}
	Permissions   map[Permission]struct{}
	EmailVerified bool
	Active        bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// uniqueness checks key on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewLocalAccount creates an account authenticating with email and password.
// The account starts unverified, active, with the user role.
func NewLocalAccount(email, passwordHash string) (Account, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return Account{}, ErrBlankEmail
	}
	if strings.TrimSpace(passwordHash) == "" {
		return Account{}, ErrMissingPasswordHash
	}

	now := time.Now().UTC()
	roles := map[Role]struct{}{RoleUser: {}}
	return Account{
		ID:            uuid.NewString(),
		Email:         normalized,
		PasswordHash:  passwordHash,
		Provider:      ProviderLocal,
		Profile:       EmptyProfile(),
		Roles:         roles,
		Permissions:   DerivePermissions(roles),
		EmailVerified: false,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewExternalAccount creates an account backed by an external identity
// provider. The provider has already verified the email, so the account is
// born verified.
func NewExternalAccount(email string, provider AuthProvider, externalID string, profile Profile) (Account, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return Account{}, ErrBlankEmail
	}
	if provider == ProviderLocal {
		return Account{}, ErrMissingExternalID
	}
	if strings.TrimSpace(externalID) == "" {
		return Account{}, ErrMissingExternalID
	}

	now := time.Now().UTC()
	roles := map[Role]struct{}{RoleUser: {}}
	return Account{
		ID:            uuid.NewString(),
		Email:         normalized,
		Provider:      provider,
		ExternalID:    externalID,
		Profile:       profile.Normalize(),
		Roles:         roles,
		Permissions:   DerivePermissions(roles),
		EmailVerified: true,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// WithProfile replaces the profile.
func (a Account) WithProfile(profile Profile) Account {
	a.Profile = profile.Normalize()
	return a.touched()
}

// WithPasswordHash replaces the credential material. Only local accounts
// carry a password hash.
func (a Account) WithPasswordHash(passwordHash string) (Account, error) {
	if a.Provider != ProviderLocal {
		return Account{}, ErrNotLocalProvider
	}
	if strings.TrimSpace(passwordHash) == "" {
		return Account{}, ErrMissingPasswordHash
	}
	a.PasswordHash = passwordHash
	return a.touched(), nil
}

// WithRoles replaces the role set and recomputes the derived permissions.
func (a Account) WithRoles(roles map[Role]struct{}) Account {
	a.Roles = copyRoles(roles)
	a.Permissions = DerivePermissions(a.Roles)
	return a.touched()
}

// AddRole grants a role. Granting an already-held role is a no-op that
// returns the receiver unchanged.
func (a Account) AddRole(role Role) Account {
	if _, ok := a.Roles[role]; ok {
		return a
	}
	roles := copyRoles(a.Roles)
	roles[role] = struct{}{}
	return a.WithRoles(roles)
}

// RemoveRole revokes a role. Revoking an absent role is a no-op.
func (a Account) RemoveRole(role Role) Account {
	if _, ok := a.Roles[role]; !ok {
		return a
	}
	roles := copyRoles(a.Roles)
	delete(roles, role)
	return a.WithRoles(roles)
}

// AddPermission grants an ad-hoc permission on top of the role-derived set.
func (a Account) AddPermission(permission Permission) Account {
	if _, ok := a.Permissions[permission]; ok {
		return a
	}
	permissions := make(map[Permission]struct{}, len(a.Permissions)+1)
	for p := range a.Permissions {
		permissions[p] = struct{}{}
	}
	permissions[permission] = struct{}{}
	a.Permissions = permissions
	return a.touched()
}

// MarkEmailVerified records a completed email verification. Verifying an
// already-verified account returns the receiver unchanged so callers can
// short-circuit duplicate side effects.
func (a Account) MarkEmailVerified() Account {
	if a.EmailVerified {
		return a
	}
	a.EmailVerified = true
	return a.touched()
}

// RecordLogin stamps the last-login timestamp.
func (a Account) RecordLogin() Account {
	now := time.Now().UTC()
	a.LastLoginAt = &now
	a.UpdatedAt = now
	return a
}

// Activate re-enables a deactivated account.
func (a Account) Activate() Account {
	if a.Active {
		return a
	}
	a.Active = true
	return a.touched()
}

// Deactivate disables the account. Deactivated accounts cannot log in.
func (a Account) Deactivate() Account {
	if !a.Active {
		return a
	}
	a.Active = false
	return a.touched()
}

// CanLogin reports whether the account may authenticate: it must be active,
// and local accounts must additionally have a verified email.
func (a Account) CanLogin() bool {
	return a.Active && (a.Provider != ProviderLocal || a.EmailVerified)
}

// IsLocal reports whether the account authenticates with a password.
func (a Account) IsLocal() bool {
	return a.Provider == ProviderLocal
}

// HasRole reports whether the account holds the role.
func (a Account) HasRole(role Role) bool {
	_, ok := a.Roles[role]
	return ok
}

// HasPermission reports whether the account holds the permission.
func (a Account) HasPermission(permission Permission) bool {
	_, ok := a.Permissions[permission]
	return ok
}

// HasAllPermissions reports whether the account holds every listed permission.
func (a Account) HasAllPermissions(permissions ...Permission) bool {
	for _, permission := range permissions {
		if !a.HasPermission(permission) {
			return false
		}
	}
	return true
}

// IsAdmin reports whether the account holds the admin role.
func (a Account) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// IsPremium reports whether the account holds the premium role.
func (a Account) IsPremium() bool {
	return a.HasRole(RolePremium)
}

// RoleNames returns the role set as sorted-independent string slice for
// serialization.
func (a Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for role := range a.Roles {
		names = append(names, string(role))
	}
	return names
}

func (a Account) touched() Account {
	a.UpdatedAt = time.Now().UTC()
	return a
}

func copyRoles(roles map[Role]struct{}) map[Role]struct{} {
	copied := make(map[Role]struct{}, len(roles))
	for role := range roles {
		copied[role] = struct{}{}
	}
	return copied
}

package port

import "github.com/lifeinventory/inventory-identity/internal/core/domain"

// PasswordHasher hashes and verifies secrets using a deliberately slow,
// salted one-way function. The encoded form is opaque to the core.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenIssuer mints tokens for an account. The opaque value encoding (signed
// structure, random string, ...) is entirely the adapter's choice; the core
// only relies on the typed fields of the returned Token.
type TokenIssuer interface {
	IssueAccess(account domain.Account) (domain.Token, error)
	IssueRefresh(account domain.Account) (domain.Token, error)
	IssuePasswordReset(account domain.Account) (domain.Token, error)
	IssueEmailVerification(account domain.Account) (domain.Token, error)
}

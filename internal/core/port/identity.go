package port

import (
	"context"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

// ExternalIdentity is the verified result of an external provider sign-in.
// The core treats it as already-trusted input.
type ExternalIdentity struct {
	Provider   domain.AuthProvider
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
	Locale     string
}

// ExternalIdentityVerifier validates a provider credential (e.g. an OAuth ID
// token) and returns the identity it asserts, or an error when the
// credential cannot be trusted.
type ExternalIdentityVerifier interface {
	Verify(ctx context.Context, provider domain.AuthProvider, credential string) (*ExternalIdentity, error)
}

package port

import (
	"context"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

// AccountRepository exposes persistence behaviour for accounts. Lookups key
// on the normalized email invariant; Save performs create-or-replace.
type AccountRepository interface {
	Save(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByProviderExternalID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, page, size int) ([]domain.Account, error)
	Count(ctx context.Context) (int64, error)
}

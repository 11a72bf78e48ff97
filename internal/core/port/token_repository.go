package port

import (
	"context"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

// TokenRepository manages persisted tokens of every kind. Value lookups take
// the opaque value as presented by the caller; how the adapter indexes it
// (hashed or plain) is its own concern.
type TokenRepository interface {
	Save(ctx context.Context, token domain.Token) error
	GetByID(ctx context.Context, id string) (*domain.Token, error)
	GetByValue(ctx context.Context, value string) (*domain.Token, error)
	GetByValueAndKind(ctx context.Context, value string, kind domain.TokenKind) (*domain.Token, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Token, error)
	ListByAccountAndKind(ctx context.Context, accountID string, kind domain.TokenKind) ([]domain.Token, error)
	DeleteByValue(ctx context.Context, value string) error
	DeleteAllForAccount(ctx context.Context, accountID string) error
	DeleteAllForAccountByKind(ctx context.Context, accountID string, kind domain.TokenKind) error
	DeleteAllExpired(ctx context.Context) (int64, error)
	RevokeAllForAccount(ctx context.Context, accountID string) (int64, error)
	RevokeAllForAccountByKind(ctx context.Context, accountID string, kind domain.TokenKind) (int64, error)
}

package port

import (
	"context"
	"time"
)

// RevocationCache records a per-account cutoff instant after an all-devices
// logout or a password change, so the transport layer can reject access
// JWTs issued before the cutoff while they are still within their lifetime.
// Best-effort: services log cache failures and continue.
type RevocationCache interface {
	MarkAccountRevoked(ctx context.Context, accountID string, reason string, ttl time.Duration) error
	RevokedSince(ctx context.Context, accountID string) (time.Time, bool, error)
	ClearAccountRevocation(ctx context.Context, accountID string) error
}

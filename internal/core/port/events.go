package port

import (
	"context"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

// EventPublisher delivers identity domain events to the message bus.
// Publishing is fire-and-forget relative to the primary transaction: a
// delivery failure must never fail the user-facing operation.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	PublishAll(ctx context.Context, events []domain.Event) error
}

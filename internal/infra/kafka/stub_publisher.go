package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Publish logs the event.
func (p *StubPublisher) Publish(_ context.Context, event domain.Event) error {
	p.logger.Info("Stub event published",
		zap.String("event_id", event.EventID()),
		zap.String("event_type", event.EventType()),
		zap.String("account_id", event.AccountID()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.Any("payload", eventPayload(event)),
	)
	return nil
}

// PublishAll logs every event.
func (p *StubPublisher) PublishAll(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

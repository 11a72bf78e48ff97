package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka. Each event type
// maps to its own topic under the configured prefix; messages are keyed by
// account so per-account ordering holds within a partition.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// Publish delivers a single event to its topic.
func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   event.EventID(),
		EventType: event.EventType(),
		AccountID: event.AccountID(),
		Timestamp: event.OccurredAt().UTC(),
		Version:   schemaVersion,
		Payload:   eventPayload(event),
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(event.EventType()),
		Key:   sarama.StringEncoder(event.AccountID()),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAll delivers every event, collecting failures instead of stopping at
// the first one.
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", event.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

// eventPayload maps each closed event type onto its wire payload.
func eventPayload(event domain.Event) any {
	switch e := event.(type) {
	case domain.AccountRegistered:
		return map[string]any{
			"email":    e.Email,
			"provider": string(e.Provider),
		}
	case domain.AccountAuthenticated:
		return map[string]any{
			"provider": string(e.Provider),
		}
	case domain.AccountLoggedOut:
		return map[string]any{
			"all_devices": e.AllDevices,
		}
	case domain.ProfileUpdated:
		return map[string]any{
			"display_name": e.DisplayName,
		}
	case domain.PasswordResetRequested:
		return map[string]any{
			"email":      e.Email,
			"token_id":   e.TokenID,
			"expires_at": e.ExpiresAt.UTC(),
		}
	case domain.EmailVerificationRequested:
		return map[string]any{
			"email":      e.Email,
			"token_id":   e.TokenID,
			"expires_at": e.ExpiresAt.UTC(),
		}
	case domain.EmailVerified:
		return map[string]any{
			"email": e.Email,
		}
	default:
		// TokensRefreshed and PasswordChanged carry no fields beyond the envelope.
		return map[string]any{}
	}
}

var _ port.EventPublisher = (*EventPublisher)(nil)

package ports

import (
	"context"

	"golang-sms-gateway/internal/domain"

	"github.com/google/uuid"
)

// MessagePublisher publishes claimed outgoing messages to the send queue.
type MessagePublisher interface {
	// Publish enqueues the ID of an outgoing message for dispatch.
	Publish(ctx context.Context, msg domain.OutgoingMessage) error
}

// MessageConsumer consumes outgoing message IDs from the send queue.
type MessageConsumer interface {
	// Consume starts delivery of messages; each is passed to the handler.
	// Blocks until ctx is cancelled or a fatal error occurs.
	Consume(ctx context.Context, handler func(ctx context.Context, id uuid.UUID) error) error
}

// EventPublisher fans gateway events out to downstream consumers.
type EventPublisher interface {
	PublishIncoming(ctx context.Context, msg domain.IncomingMessage) error
	PublishSyncEvents(ctx context.Context, events []domain.SyncEvent) error
}

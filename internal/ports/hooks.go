package ports

import (
	"context"

	"golang-sms-gateway/internal/domain"
)

// Payload is a provider callback reduced to its first value per field.
type Payload map[string]string

// ReplyContributor adds <Message> lines to the webhook reply.
type ReplyContributor interface {
	ReplyLines(ctx context.Context, payload Payload) []string
}

// RecordVoter votes on whether a callback should be persisted.
type RecordVoter interface {
	ShouldRecord(ctx context.Context, payload Payload) bool
}

// IncomingProcessor runs after an incoming message is persisted.
type IncomingProcessor interface {
	OnIncoming(ctx context.Context, msg domain.IncomingMessage)
}

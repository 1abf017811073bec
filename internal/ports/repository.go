package ports

import (
	"context"

	"golang-sms-gateway/internal/domain"

	"github.com/google/uuid"
)

// MessageRepository defines persistence for inbound and outbound messages.
type MessageRepository interface {
	// IsSenderBlocked reports whether sender is in the blocked set.
	IsSenderBlocked(ctx context.Context, sender string) (bool, error)

	// BlockSender adds sender to the blocked set. Adding twice is a no-op.
	BlockSender(ctx context.Context, sender string) error

	// CreateIncomingMessage atomically inserts one incoming message.
	CreateIncomingMessage(ctx context.Context, msg domain.IncomingMessage) error

	// EncryptSender seals the stored sender of an incoming message in place
	// and returns the sealed value.
	EncryptSender(ctx context.Context, id uuid.UUID) (string, error)

	// CreateIncomingMedia inserts one media row for an incoming message.
	CreateIncomingMedia(ctx context.Context, media domain.IncomingMessageMedia) error

	// AttachMediaFile records the locally cached file of a media row.
	AttachMediaFile(ctx context.Context, mediaID uuid.UUID, path string) error

	// SaveOutgoingMessage persists a new outgoing message in the outbox.
	SaveOutgoingMessage(ctx context.Context, msg domain.OutgoingMessage) error

	// GetOutgoingMessage loads an outgoing message with its media.
	GetOutgoingMessage(ctx context.Context, id uuid.UUID) (*domain.OutgoingMessage, error)

	// ClaimPendingMessages moves up to limit pending messages to queued and
	// returns them. Concurrent callers never receive the same message.
	ClaimPendingMessages(ctx context.Context, limit int) ([]domain.OutgoingMessage, error)

	// TransitionStatus moves a message from one status to another and
	// reports false when the message was not in the from status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (bool, error)

	// UpdateMessageStatus sets the status unconditionally.
	UpdateMessageStatus(ctx context.Context, id uuid.UUID, status domain.Status) error

	// AppendTransmissionMetadata merges values into the stored metadata.
	AppendTransmissionMetadata(ctx context.Context, id uuid.UUID, values map[string]any) error

	// UpsertSyncEvents stores events keyed by provider SID, skipping known
	// SIDs, and returns how many were new.
	UpsertSyncEvents(ctx context.Context, events []domain.SyncEvent) (int, error)
}

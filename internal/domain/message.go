package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an outgoing message.
type Status string

const (
	StatusPending       Status = "pending"        // Saved to outbox, not yet queued
	StatusQueued        Status = "queued"         // Published to message queue
	StatusSending       Status = "sending"        // Claimed by a sender worker
	StatusSent          Status = "sent"           // Accepted by the provider
	StatusFailed        Status = "failed"         // Provider rejected at least one send
	StatusNotConfigured Status = "not_configured" // No credentials resolved at dispatch time
)

// MetadataProviderSID is the transmission metadata key holding provider SIDs.
const MetadataProviderSID = "twilio_sid"

// ImagePrefix marks a message body that is a single image URL.
const ImagePrefix = "image:"

// OutgoingMessage is owned by the application. The gateway only appends to
// its transmission metadata.
type OutgoingMessage struct {
	ID                   uuid.UUID
	Destination          string
	Message              string
	Media                []OutgoingMedia
	TransmissionMetadata string
	Status               Status
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OutgoingMedia is an attachment sent ahead of the message text.
type OutgoingMedia struct {
	URL         string
	ContentType string
	Index       int
}

// NewOutgoingMessage creates a new pending OutgoingMessage.
func NewOutgoingMessage(destination, body string, media []OutgoingMedia) OutgoingMessage {
	now := time.Now().UTC()
	return OutgoingMessage{
		ID:          uuid.New(),
		Destination: destination,
		Message:     body,
		Media:       media,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CurrentDestination resolves where the message should be delivered.
func (m OutgoingMessage) CurrentDestination() string {
	return m.Destination
}

// IsImageShorthand reports whether the body uses the "image:<url>" form.
func (m OutgoingMessage) IsImageShorthand() bool {
	return strings.HasPrefix(m.Message, ImagePrefix)
}

// OrderedMedia returns the attachments sorted by index.
func (m OutgoingMessage) OrderedMedia() []OutgoingMedia {
	out := make([]OutgoingMedia, len(m.Media))
	copy(out, m.Media)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ParsedMetadata decodes the transmission metadata. Malformed or empty JSON
// yields an empty map.
func (m OutgoingMessage) ParsedMetadata() map[string]any {
	meta := map[string]any{}
	if strings.TrimSpace(m.TransmissionMetadata) == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(m.TransmissionMetadata), &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}

// IncomingMessage is one accepted webhook callback.
type IncomingMessage struct {
	ID                   uuid.UUID
	Sender               string
	Recipient            string
	Message              string
	ReceiveDate          time.Time
	TransmissionMetadata string
}

// NewIncomingMessage creates an IncomingMessage received now.
func NewIncomingMessage(sender, recipient, body, metadata string) IncomingMessage {
	return IncomingMessage{
		ID:                   uuid.New(),
		Sender:               sender,
		Recipient:            recipient,
		Message:              body,
		ReceiveDate:          time.Now().UTC(),
		TransmissionMetadata: metadata,
	}
}

// IncomingMessageMedia is one media item reported by the provider. ContentFile
// stays empty until the media fetch succeeds.
type IncomingMessageMedia struct {
	ID          uuid.UUID
	MessageID   uuid.UUID
	ContentURL  string
	ContentType string
	Index       int
	ContentFile string
}

// BlockedSender is an opaque sender identifier denied ingestion.
type BlockedSender struct {
	Sender    string
	CreatedAt time.Time
}

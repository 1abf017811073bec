package postgres

import (
	"time"

	"golang-sms-gateway/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IncomingMessageRow is the incoming_messages table.
type IncomingMessageRow struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sender               string    `gorm:"not null"`
	Recipient            string    `gorm:"not null;index"`
	Message              string    `gorm:"type:text"`
	ReceiveDate          time.Time `gorm:"not null;index"`
	TransmissionMetadata datatypes.JSON
	Media                []IncomingMediaRow `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (IncomingMessageRow) TableName() string { return "incoming_messages" }

// IncomingMediaRow is the incoming_message_media table.
type IncomingMediaRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ContentURL  string    `gorm:"not null"`
	ContentType string
	Index       int     `gorm:"column:media_index;not null"`
	ContentFile *string
}

func (IncomingMediaRow) TableName() string { return "incoming_message_media" }

// BlockedSenderRow is the blocked_senders table.
type BlockedSenderRow struct {
	Sender    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (BlockedSenderRow) TableName() string { return "blocked_senders" }

// OutgoingMessageRow is the outgoing_messages table.
type OutgoingMessageRow struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Destination          string    `gorm:"not null"`
	Message              string    `gorm:"type:text"`
	TransmissionMetadata datatypes.JSON
	Status               string             `gorm:"not null;index"`
	CreatedAt            time.Time          `gorm:"not null;index"`
	UpdatedAt            time.Time          `gorm:"not null"`
	Media                []OutgoingMediaRow `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (OutgoingMessageRow) TableName() string { return "outgoing_messages" }

// OutgoingMediaRow is the outgoing_message_media table.
type OutgoingMediaRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID   uuid.UUID `gorm:"type:uuid;not null;index"`
	URL         string    `gorm:"not null"`
	ContentType string
	Index       int `gorm:"column:media_index;not null"`
}

func (OutgoingMediaRow) TableName() string { return "outgoing_message_media" }

// SyncEventRow is the sync_events table, keyed by provider SID.
type SyncEventRow struct {
	TwilioSID string    `gorm:"primaryKey"`
	ChannelID string    `gorm:"index"`
	Direction string    `gorm:"not null"`
	SentAt    time.Time `gorm:"index"`
	Payload   datatypes.JSON
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SyncEventRow) TableName() string { return "sync_events" }

// ChannelRow is the channels table backing the dynamic channel registry.
type ChannelRow struct {
	ID            string `gorm:"primaryKey"`
	PackageName   string `gorm:"not null;index"`
	Configuration datatypes.JSON
	Active        bool `gorm:"not null;default:true"`
}

func (ChannelRow) TableName() string { return "channels" }

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&IncomingMessageRow{},
		&IncomingMediaRow{},
		&BlockedSenderRow{},
		&OutgoingMessageRow{},
		&OutgoingMediaRow{},
		&SyncEventRow{},
		&ChannelRow{},
	}
}

func outgoingFromRow(r OutgoingMessageRow) domain.OutgoingMessage {
	msg := domain.OutgoingMessage{
		ID:                   r.ID,
		Destination:          r.Destination,
		Message:              r.Message,
		TransmissionMetadata: string(r.TransmissionMetadata),
		Status:               domain.Status(r.Status),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	for _, m := range r.Media {
		msg.Media = append(msg.Media, domain.OutgoingMedia{URL: m.URL, ContentType: m.ContentType, Index: m.Index})
	}
	return msg
}

func outgoingToRow(m domain.OutgoingMessage) OutgoingMessageRow {
	row := OutgoingMessageRow{
		ID:          m.ID,
		Destination: m.Destination,
		Message:     m.Message,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.TransmissionMetadata != "" {
		row.TransmissionMetadata = datatypes.JSON(m.TransmissionMetadata)
	}
	for _, media := range m.Media {
		row.Media = append(row.Media, OutgoingMediaRow{
			ID:          uuid.New(),
			MessageID:   m.ID,
			URL:         media.URL,
			ContentType: media.ContentType,
			Index:       media.Index,
		})
	}
	return row
}

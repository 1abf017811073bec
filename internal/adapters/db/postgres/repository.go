package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Repository implements ports.MessageRepository using PostgreSQL via gorm.
type Repository struct {
	db     *gorm.DB
	cipher ports.SenderCipher
}

// New opens a PostgreSQL connection and returns a Repository.
func New(dsn string, cipher ports.SenderCipher) (*Repository, error) {
	db, err := Open(dsn, logger.Warn)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, cipher: cipher}, nil
}

// Open connects gorm to PostgreSQL and tunes the pool.
func Open(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// DB exposes the gorm handle for adapters sharing the connection.
func (r *Repository) DB() *gorm.DB { return r.db }

// Close closes the underlying database connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsSenderBlocked checks the blocked_senders table.
func (r *Repository) IsSenderBlocked(ctx context.Context, sender string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&BlockedSenderRow{}).Where("sender = ?", sender).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count blocked sender: %w", err)
	}
	return n > 0, nil
}

// BlockSender inserts sender, ignoring duplicates.
func (r *Repository) BlockSender(ctx context.Context, sender string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&BlockedSenderRow{Sender: sender}).Error
	if err != nil {
		return fmt.Errorf("insert blocked sender: %w", err)
	}
	return nil
}

// CreateIncomingMessage inserts one incoming message row.
func (r *Repository) CreateIncomingMessage(ctx context.Context, msg domain.IncomingMessage) error {
	row := IncomingMessageRow{
		ID:                   msg.ID,
		Sender:               msg.Sender,
		Recipient:            msg.Recipient,
		Message:              msg.Message,
		ReceiveDate:          msg.ReceiveDate,
		TransmissionMetadata: datatypes.JSON(msg.TransmissionMetadata),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert incoming message: %w", err)
	}
	return nil
}

// EncryptSender seals the sender column of one incoming message in place.
func (r *Repository) EncryptSender(ctx context.Context, id uuid.UUID) (string, error) {
	if r.cipher == nil {
		return "", errors.New("no sender cipher configured")
	}
	var sealed string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row IncomingMessageRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMessageNotFound
		}
		if err != nil {
			return fmt.Errorf("load incoming message: %w", err)
		}

		sealed, err = r.cipher.Seal(row.Sender)
		if err != nil {
			return fmt.Errorf("seal sender: %w", err)
		}
		if err := tx.Model(&row).Update("sender", sealed).Error; err != nil {
			return fmt.Errorf("update sender: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sealed, nil
}

// CreateIncomingMedia inserts one media row without a cached file.
func (r *Repository) CreateIncomingMedia(ctx context.Context, media domain.IncomingMessageMedia) error {
	row := IncomingMediaRow{
		ID:          media.ID,
		MessageID:   media.MessageID,
		ContentURL:  media.ContentURL,
		ContentType: media.ContentType,
		Index:       media.Index,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert incoming media: %w", err)
	}
	return nil
}

// AttachMediaFile records the cached file path on a media row.
func (r *Repository) AttachMediaFile(ctx context.Context, mediaID uuid.UUID, path string) error {
	res := r.db.WithContext(ctx).Model(&IncomingMediaRow{}).Where("id = ?", mediaID).Update("content_file", path)
	if res.Error != nil {
		return fmt.Errorf("attach media file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMediaNotFound
	}
	return nil
}

// SaveOutgoingMessage inserts a message and its media in one transaction.
func (r *Repository) SaveOutgoingMessage(ctx context.Context, msg domain.OutgoingMessage) error {
	row := outgoingToRow(msg)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert outgoing message: %w", err)
	}
	return nil
}

// GetOutgoingMessage loads one outgoing message with its media.
func (r *Repository) GetOutgoingMessage(ctx context.Context, id uuid.UUID) (*domain.OutgoingMessage, error) {
	var row OutgoingMessageRow
	err := r.db.WithContext(ctx).Preload("Media").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load outgoing message: %w", err)
	}
	msg := outgoingFromRow(row)
	return &msg, nil
}

// ClaimPendingMessages locks up to limit pending rows, oldest first, and marks
// them queued in the same transaction.
func (r *Repository) ClaimPendingMessages(ctx context.Context, limit int) ([]domain.OutgoingMessage, error) {
	var rows []OutgoingMessageRow

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", string(domain.StatusPending)).
			Order("created_at ASC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("query pending: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		now := time.Now().UTC()
		err = tx.Model(&OutgoingMessageRow{}).Where("id IN ?", ids).
			Updates(map[string]any{"status": string(domain.StatusQueued), "updated_at": now}).Error
		if err != nil {
			return fmt.Errorf("mark queued: %w", err)
		}
		for i := range rows {
			rows[i].Status = string(domain.StatusQueued)
			rows[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.OutgoingMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, outgoingFromRow(row))
	}
	return msgs, nil
}

// TransitionStatus is a compare-and-set on the status column.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&OutgoingMessageRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("transition status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateMessageStatus sets the status of an outgoing message.
func (r *Repository) UpdateMessageStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	res := r.db.WithContext(ctx).Model(&OutgoingMessageRow{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// AppendTransmissionMetadata merges values into the stored JSON metadata.
func (r *Repository) AppendTransmissionMetadata(ctx context.Context, id uuid.UUID, values map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row OutgoingMessageRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMessageNotFound
		}
		if err != nil {
			return fmt.Errorf("load outgoing message: %w", err)
		}

		meta := outgoingFromRow(row).ParsedMetadata()
		for k, v := range values {
			meta[k] = v
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		err = tx.Model(&row).Updates(map[string]any{
			"transmission_metadata": datatypes.JSON(raw),
			"updated_at":            time.Now().UTC(),
		}).Error
		if err != nil {
			return fmt.Errorf("update metadata: %w", err)
		}
		return nil
	})
}

// UpsertSyncEvents inserts events, skipping SIDs already stored.
func (r *Repository) UpsertSyncEvents(ctx context.Context, events []domain.SyncEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rows := make([]SyncEventRow, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return 0, fmt.Errorf("marshal sync event %s: %w", ev.TwilioSID, err)
		}
		rows = append(rows, SyncEventRow{
			TwilioSID: ev.TwilioSID,
			ChannelID: ev.ChannelID,
			Direction: string(ev.Direction),
			SentAt:    ev.SentAt,
			Payload:   datatypes.JSON(payload),
		})
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "twilio_sid"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("upsert sync events: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

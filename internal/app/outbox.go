package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang-sms-gateway/internal/dialog"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/google/uuid"
)

// MetadataChannel is the transmission metadata key naming the channel an
// outgoing message should be sent from.
const MetadataChannel = "channel"

// ErrMediaDisabled is returned when media is attached while media sending is off.
var ErrMediaDisabled = errors.New("media attachments are disabled")

// OutboxService moves outgoing messages through the outbox: it queues them,
// publishes claimed messages and dispatches them one at a time.
type OutboxService struct {
	repo       ports.MessageRepository
	publisher  ports.MessagePublisher
	dispatcher *Dispatcher
	channels   ports.ChannelSource
	log        *slog.Logger
}

// NewOutboxService wires the service. publisher is only needed by
// PublishPendingMessages and channels may be nil.
func NewOutboxService(
	repo ports.MessageRepository,
	publisher ports.MessagePublisher,
	dispatcher *Dispatcher,
	channels ports.ChannelSource,
	log *slog.Logger,
) *OutboxService {
	return &OutboxService{
		repo:       repo,
		publisher:  publisher,
		dispatcher: dispatcher,
		channels:   channels,
		log:        log,
	}
}

// QueueMessageRequest is the input for queueing one outgoing message.
type QueueMessageRequest struct {
	Destination string
	Body        string
	MediaURLs   []string
	ChannelID   string
}

// QueueMessage persists a new outgoing message to the outbox.
func (s *OutboxService) QueueMessage(ctx context.Context, req QueueMessageRequest) (domain.OutgoingMessage, error) {
	if len(req.MediaURLs) > 0 && !s.dispatcher.MediaEnabled() {
		return domain.OutgoingMessage{}, ErrMediaDisabled
	}

	media := make([]domain.OutgoingMedia, 0, len(req.MediaURLs))
	for i, u := range req.MediaURLs {
		media = append(media, domain.OutgoingMedia{URL: u, Index: i})
	}

	msg := domain.NewOutgoingMessage(req.Destination, req.Body, media)
	if req.ChannelID != "" {
		msg.TransmissionMetadata = fmt.Sprintf(`{%q:%q}`, MetadataChannel, req.ChannelID)
	}

	if err := s.repo.SaveOutgoingMessage(ctx, msg); err != nil {
		return domain.OutgoingMessage{}, fmt.Errorf("save outgoing message: %w", err)
	}

	s.log.Info("message queued in outbox", "msg_id", msg.ID, "media", len(media))
	return msg, nil
}

// QueueEcho turns an echo exit action from a dialog into an outgoing message.
// A media-only action becomes an image shorthand message.
func (s *OutboxService) QueueEcho(ctx context.Context, destination string, action dialog.ExitAction) (domain.OutgoingMessage, error) {
	if action.Type != dialog.ActionEcho {
		return domain.OutgoingMessage{}, fmt.Errorf("queue echo: unsupported action %q", action.Type)
	}

	req := QueueMessageRequest{Destination: destination}
	if action.Message != nil {
		req.Body = *action.Message
	}
	if action.MediaURL != nil && *action.MediaURL != "" {
		if strings.TrimSpace(req.Body) == "" {
			req.Body = domain.ImagePrefix + *action.MediaURL
		} else {
			req.MediaURLs = []string{*action.MediaURL}
		}
	}
	return s.QueueMessage(ctx, req)
}

// PublishPendingMessages claims pending outbox messages and publishes them to the queue.
// This is called by the outbox-publisher binary on a poll interval.
func (s *OutboxService) PublishPendingMessages(ctx context.Context, batchSize int) (int, error) {
	msgs, err := s.repo.ClaimPendingMessages(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim pending messages: %w", err)
	}

	published := 0
	for _, msg := range msgs {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			// Roll back to pending so the next poll retries it.
			if _, rbErr := s.repo.TransitionStatus(ctx, msg.ID, domain.StatusQueued, domain.StatusPending); rbErr != nil {
				s.log.Error("rollback to pending failed", "msg_id", msg.ID, "err", rbErr)
			}
			s.log.Error("publish failed", "msg_id", msg.ID, "err", err)
			continue
		}

		published++
		s.log.Info("message published", "msg_id", msg.ID)
	}

	return published, nil
}

// SendMessage dispatches one queued message. The queued→sending transition
// is the single-writer claim: a message that is no longer queued is skipped,
// so redelivered queue entries never send twice.
func (s *OutboxService) SendMessage(ctx context.Context, id uuid.UUID) error {
	claimed, err := s.repo.TransitionStatus(ctx, id, domain.StatusQueued, domain.StatusSending)
	if err != nil {
		return fmt.Errorf("claim message: %w", err)
	}
	if !claimed {
		s.log.Warn("message not queued, skipping", "msg_id", id)
		return nil
	}

	msg, err := s.repo.GetOutgoingMessage(ctx, id)
	if err != nil {
		s.markStatus(ctx, id, domain.StatusFailed)
		return fmt.Errorf("load message: %w", err)
	}

	ov, err := s.overrides(ctx, *msg)
	if err != nil {
		s.markStatus(ctx, id, domain.StatusFailed)
		return err
	}

	metadata, dispatchErr := s.dispatcher.Dispatch(ctx, *msg, ov)
	if metadata == nil && dispatchErr == nil {
		s.markStatus(ctx, id, domain.StatusNotConfigured)
		s.log.Warn("message not sent, provider not configured", "msg_id", id)
		return nil
	}

	if sids, ok := metadata[domain.MetadataProviderSID]; ok {
		if err := s.repo.AppendTransmissionMetadata(ctx, id, map[string]any{domain.MetadataProviderSID: sids}); err != nil {
			s.log.Error("record provider sids failed", "msg_id", id, "err", err)
		}
	}

	if dispatchErr != nil {
		// Earlier sends already went out; retrying would duplicate them.
		s.markStatus(ctx, id, domain.StatusFailed)
		s.log.Error("dispatch failed", "msg_id", id, "err", dispatchErr)
		return nil
	}

	if err := s.repo.UpdateMessageStatus(ctx, id, domain.StatusSent); err != nil {
		return fmt.Errorf("update status sent: %w", err)
	}

	s.log.Info("message sent", "msg_id", id)
	return nil
}

// overrides resolves the channel named in the message metadata. Unknown or
// unconfigured channels are an error; no channel means static configuration.
func (s *OutboxService) overrides(ctx context.Context, msg domain.OutgoingMessage) (Overrides, error) {
	channelID, _ := msg.ParsedMetadata()[MetadataChannel].(string)
	if channelID == "" || channelID == domain.DefaultChannelID || s.channels == nil {
		return Overrides{}, nil
	}

	registered, err := s.channels.Channels(ctx)
	if err != nil {
		return Overrides{}, fmt.Errorf("load channels: %w", err)
	}
	for _, ch := range registered {
		if ch.ID != channelID {
			continue
		}
		if !ch.Configured() {
			return Overrides{}, fmt.Errorf("channel %q: %w", channelID, domain.ErrConfigurationMissing)
		}
		return Overrides{
			ClientID:    ch.ClientID,
			AuthToken:   ch.AuthToken,
			PhoneNumber: ch.PhoneNumber,
			Extra:       map[string]any{MetadataChannel: ch.ID},
		}, nil
	}
	return Overrides{}, fmt.Errorf("channel %q: %w", channelID, domain.ErrConfigurationMissing)
}

func (s *OutboxService) markStatus(ctx context.Context, id uuid.UUID, status domain.Status) {
	if err := s.repo.UpdateMessageStatus(ctx, id, status); err != nil {
		s.log.Error("update status failed", "msg_id", id, "status", status, "err", err)
	}
}

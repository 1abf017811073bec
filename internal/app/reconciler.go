package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/phone"
	"golang-sms-gateway/internal/ports"
)

// mediaDetailSuffix is stripped from provider media URIs to get the content URL.
const mediaDetailSuffix = ".json"

// ChannelSyncError marks a channel whose history could not be listed.
type ChannelSyncError struct {
	ChannelID string `json:"channel"`
	Error     string `json:"error"`
}

// Reconciliation is the outcome of one Reconcile call. A channel appears in
// Failed instead of contributing events when its listing fails.
type Reconciliation struct {
	Events []domain.SyncEvent `json:"events"`
	Failed []ChannelSyncError `json:"failed,omitempty"`
}

// Reconciler rebuilds SyncEvents from the provider's message history.
type Reconciler struct {
	cfg       config.Config
	providers ports.ProviderFactory
	channels  ports.ChannelSource
	log       *slog.Logger
}

// NewReconciler wires the reconciler. channels may be nil.
func NewReconciler(cfg config.Config, providers ports.ProviderFactory, channels ports.ChannelSource, log *slog.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, providers: providers, channels: channels, log: log}
}

// Channels returns every fully configured channel: registry entries first,
// then the default channel from static configuration.
func (r *Reconciler) Channels(ctx context.Context) []domain.Channel {
	return configuredChannels(ctx, r.cfg, r.channels, r.log)
}

// Reconcile lists messages sent after since on every configured channel.
// A failing channel is reported in Failed and the others still reconcile;
// the only error returned is the context's.
func (r *Reconciler) Reconcile(ctx context.Context, since time.Time) (Reconciliation, error) {
	var rec Reconciliation
	for _, ch := range r.Channels(ctx) {
		if err := ctx.Err(); err != nil {
			return rec, err
		}
		chEvents, err := r.reconcileChannel(ctx, ch, since)
		if err != nil {
			r.log.Error("channel sync failed", "channel", ch.ID, "err", err)
			rec.Failed = append(rec.Failed, ChannelSyncError{ChannelID: ch.ID, Error: err.Error()})
			continue
		}
		rec.Events = append(rec.Events, chEvents...)
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	r.log.Info("sync reconciled", "since", since, "events", len(rec.Events), "failed_channels", len(rec.Failed))
	return rec, nil
}

func (r *Reconciler) reconcileChannel(ctx context.Context, ch domain.Channel, since time.Time) ([]domain.SyncEvent, error) {
	number, err := phone.Normalize(ch.PhoneNumber, ch.CountryCode)
	if err != nil {
		return nil, err
	}

	provider := r.providers.ForCredentials(ports.Credentials{ClientID: ch.ClientID, AuthToken: ch.AuthToken})

	incoming, err := provider.ListMessages(ctx, ports.MessageFilter{To: number, SentAfter: since})
	if err != nil {
		return nil, fmt.Errorf("list incoming: %w", err)
	}
	outgoing, err := provider.ListMessages(ctx, ports.MessageFilter{From: number, SentAfter: since})
	if err != nil {
		return nil, fmt.Errorf("list outgoing: %w", err)
	}

	events := make([]domain.SyncEvent, 0, len(incoming)+len(outgoing))
	for _, m := range incoming {
		events = append(events, r.toEvent(ch.ID, m, domain.DirectionIncoming))
	}
	for _, m := range outgoing {
		events = append(events, r.toEvent(ch.ID, m, domain.DirectionOutgoing))
	}
	return events, nil
}

func (r *Reconciler) toEvent(channelID string, m ports.ProviderMessage, dir domain.Direction) domain.SyncEvent {
	media := make([]domain.MediaDescriptor, 0, len(m.Media))
	for _, item := range m.Media {
		media = append(media, domain.MediaDescriptor{
			ContentType: item.ContentType,
			URL:         r.mediaURL(item.URI),
		})
	}
	return domain.SyncEvent{
		CallbackID: m.SID,
		TwilioSID:  m.SID,
		ChannelID:  channelID,
		To:         m.To,
		From:       m.From,
		Body:       m.Body,
		SentAt:     m.DateSent,
		Direction:  dir,
		Status: domain.SyncStatus{
			ErrorCode:      m.ErrorCode,
			ErrorMessage:   m.ErrorMessage,
			DeliveryStatus: m.Status,
		},
		Media: media,
	}
}

func (r *Reconciler) mediaURL(uri string) string {
	return strings.TrimRight(r.cfg.Twilio.APIBaseURL, "/") + strings.TrimSuffix(uri, mediaDetailSuffix)
}

// configuredChannels collects registry channels of this provider package and
// the static default channel, keeping only fully configured ones.
func configuredChannels(ctx context.Context, cfg config.Config, source ports.ChannelSource, log *slog.Logger) []domain.Channel {
	var out []domain.Channel
	if source != nil {
		registered, err := source.Channels(ctx)
		if err != nil {
			log.Warn("channel registry unavailable", "err", err)
		}
		for _, ch := range registered {
			if ch.PackageName != "" && ch.PackageName != domain.TwilioPackage {
				continue
			}
			if !ch.Configured() {
				log.Debug("channel skipped, incomplete configuration", "channel", ch.ID)
				continue
			}
			out = append(out, ch)
		}
	}

	def := domain.Channel{
		ID:          domain.DefaultChannelID,
		PackageName: domain.TwilioPackage,
		PhoneNumber: cfg.Twilio.PhoneNumber,
		CountryCode: cfg.CountryCode,
		ClientID:    cfg.Twilio.ClientID,
		AuthToken:   cfg.Twilio.AuthToken,
	}
	if def.Configured() {
		out = append(out, def)
	}
	return out
}

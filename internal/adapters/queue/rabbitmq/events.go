package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang-sms-gateway/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const eventsExchange = "sms.events"

// Routing keys on the events exchange.
const (
	RoutingIncoming = "incoming.received"
	RoutingSync     = "sync.event"
)

// IncomingEvent announces a stored incoming message. The sender stays sealed.
type IncomingEvent struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Recipient   string    `json:"recipient"`
	Message     string    `json:"message"`
	ReceiveDate time.Time `json:"receive_date"`
}

// EventPublisher implements ports.EventPublisher on a topic exchange. It is
// also an inbound hook: registered with the hook registry it announces every
// stored incoming message.
type EventPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *slog.Logger
}

// NewEventPublisher dials RabbitMQ and declares the events exchange.
func NewEventPublisher(amqpURL string, log *slog.Logger) (*EventPublisher, error) {
	conn, ch, err := open(amqpURL)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return &EventPublisher{conn: conn, channel: ch, log: log}, nil
}

// PublishIncoming announces one incoming message.
func (p *EventPublisher) PublishIncoming(ctx context.Context, msg domain.IncomingMessage) error {
	return p.publish(ctx, RoutingIncoming, msg.ID.String(), IncomingEvent{
		ID:          msg.ID.String(),
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Message:     msg.Message,
		ReceiveDate: msg.ReceiveDate,
	})
}

// PublishSyncEvents publishes each event separately, keyed by provider SID.
func (p *EventPublisher) PublishSyncEvents(ctx context.Context, events []domain.SyncEvent) error {
	for _, ev := range events {
		if err := p.publish(ctx, RoutingSync, ev.TwilioSID, ev); err != nil {
			return fmt.Errorf("publish sync event %s: %w", ev.TwilioSID, err)
		}
	}
	return nil
}

// OnIncoming publishes msg and logs failures; inbound processing never waits
// on the broker's verdict.
func (p *EventPublisher) OnIncoming(ctx context.Context, msg domain.IncomingMessage) {
	if err := p.PublishIncoming(ctx, msg); err != nil {
		p.log.Error("publish incoming event failed", "msg_id", msg.ID, "err", err)
	}
}

func (p *EventPublisher) publish(ctx context.Context, key, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, eventsExchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close cleanly shuts down the channel and connection.
func (p *EventPublisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

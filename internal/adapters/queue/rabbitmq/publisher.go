package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-sms-gateway/internal/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Send queue topology. Rejected deliveries land in the dead-letter queue.
const (
	exchangeName   = "sms"
	queueName      = "sms.send"
	routingKey     = "sms.send"
	deadExchange   = "sms.dead"
	deadQueueName  = "sms.send.dead"
	jobContentType = "application/json"
	jobType        = "outgoing.send"
)

// sendJob is the queue payload. Workers reload the message from the store,
// so only the ID travels.
type sendJob struct {
	ID uuid.UUID `json:"id"`
}

// Publisher implements ports.MessagePublisher using RabbitMQ.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher dials RabbitMQ, declares the exchange and queue, and binds them.
func NewPublisher(amqpURL string) (*Publisher, error) {
	conn, ch, err := open(amqpURL)
	if err != nil {
		return nil, err
	}

	if err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

// Publish sends the ID of an outgoing message to the send queue.
func (p *Publisher) Publish(ctx context.Context, msg domain.OutgoingMessage) error {
	body, err := json.Marshal(sendJob{ID: msg.ID})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return p.channel.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  jobContentType,
			Type:         jobType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Close cleanly shuts down the channel and connection.
func (p *Publisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

func open(amqpURL string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return conn, ch, nil
}

// declare idempotently sets up the send queue and its dead-letter queue.
func declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(deadExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(deadQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(deadQueueName, "", deadExchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	args := amqp.Table{"x-dead-letter-exchange": deadExchange}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer implements ports.MessageConsumer using RabbitMQ.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *slog.Logger
}

// NewConsumer dials RabbitMQ, declares topology, and returns a Consumer.
func NewConsumer(amqpURL string, log *slog.Logger) (*Consumer, error) {
	conn, ch, err := open(amqpURL)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	if err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, channel: ch, log: log}, nil
}

// Consume registers a consumer on the queue and calls handler for each delivery.
// It acknowledges the message only if the handler returns nil.
// It blocks until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, id uuid.UUID) error) error {
	deliveries, err := c.channel.Consume(
		queueName,
		"",    // auto-generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq: deliveries channel closed")
			}

			id, err := decodeJob(d.Body)
			if err != nil {
				c.log.Error("decode send job", "delivery_tag", d.DeliveryTag, "err", err)
				_ = d.Nack(false, false)
				continue
			}
			log := c.log.With("msg_id", id, "redelivered", d.Redelivered)

			if err := handler(ctx, id); err != nil {
				log.Error("send job failed, requeueing", "err", err)
				// queued→sending claim in the store makes redelivery safe.
				_ = d.Nack(false, true)
				continue
			}
			log.Debug("send job done")

			_ = d.Ack(false)
		}
	}
}

// Close cleanly shuts down the channel and connection.
func (c *Consumer) Close() {
	c.channel.Close()
	c.conn.Close()
}

package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgevents "github.com/floroz/bazaar/pkg/events"
)

const ChangesQueue = "market_changes"

// EventProcessor handles one decoded broker event idempotently.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, env *pkgevents.Envelope) error
}

// ChangeConsumer consumes market events and turns them into change notifications
type ChangeConsumer struct {
	conn      *amqp.Connection
	processor EventProcessor
	exchange  string
	logger    *slog.Logger
	// retry delays requeues while processing keeps failing
	retry backoff.BackOff
}

// NewChangeConsumer creates a new change consumer
func NewChangeConsumer(conn *amqp.Connection, processor EventProcessor, exchange string, logger *slog.Logger) *ChangeConsumer {
	return &ChangeConsumer{
		conn:      conn,
		processor: processor,
		exchange:  exchange,
		logger:    logger,
		retry:     newRequeueBackOff(),
	}
}

func newRequeueBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run starts the consumer loop
func (c *ChangeConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		ChangesQueue, // queue
		"",           // consumer tag
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for market events...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *ChangeConsumer) handle(ctx context.Context, d amqp.Delivery) {
	env, err := pkgevents.UnmarshalEnvelope(d.Body)
	if err != nil {
		c.logger.Error("Failed to unmarshal event", "routing_key", d.RoutingKey, "error", err)
		// A malformed payload will never parse; drop it
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if err := c.processor.ProcessEvent(ctx, env); err != nil {
		wait := c.retry.NextBackOff()
		c.logger.Error("Failed to process event", "event_id", env.ID, "type", env.Type, "requeue_in", wait, "error", err)
		// Hold the delivery so an unavailable dependency does not spin the queue
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
		}
		return
	}
	c.retry.Reset()

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to Ack message", "error", ackErr)
	}
	c.logger.Debug("Processed event", "event_id", env.ID, "type", env.Type)
}

func (c *ChangeConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	if err := pkgevents.DeclareExchange(ch, c.exchange); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		ChangesQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	for _, key := range []string{
		pkgevents.EventTypeBidPlaced,
		pkgevents.EventTypeAuctionCreated,
		pkgevents.EventTypeAuctionEnded,
	} {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

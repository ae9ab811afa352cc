//go:build integration

package events_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/floroz/bazaar/pkg/database"
	pkgevents "github.com/floroz/bazaar/pkg/events"
	"github.com/floroz/bazaar/pkg/testhelpers"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/database"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/events"
	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
	"github.com/floroz/bazaar/services/market-service/migrations"
)

const exchange = "market.events"

// TestChangePipeline follows a bid.placed event from the outbox through
// RabbitMQ and Redis to an in-process subscriber.
func TestChangePipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	td := testhelpers.NewTestDatabase(t, migrations.FS)
	amqpURL := testhelpers.NewTestRabbitMQ(t)
	rdb := testhelpers.NewTestRedis(t)

	conn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer conn.Close()

	// Redis -> hub
	hub := changes.NewHub()
	feed := events.NewRedisChangeFeed(rdb, logger)
	go func() { _ = feed.Run(ctx, hub) }()

	bidChanges := make(chan string, 4)
	unsubscribe := changes.SubscribeToBidChanges(hub, func(id string) { bidChanges <- id })
	defer unsubscribe()

	// RabbitMQ -> change service -> Redis
	txManager := pkgdb.NewPostgresTransactionManager(td.Pool, time.Second)
	service := changes.NewService(database.NewPostgresProcessedEventRepository(), txManager, feed, nil, logger)
	consumer := events.NewChangeConsumer(conn, service, exchange, logger)
	go func() { _ = consumer.Run(ctx) }()

	// outbox -> RabbitMQ
	producer, err := events.NewMarketEventsProducer(td.Pool, conn, events.ProducerConfig{
		Exchange:    exchange,
		BatchSize:   10,
		Interval:    50 * time.Millisecond,
		LockTimeout: time.Second,
	}, logger)
	require.NoError(t, err)
	defer producer.Close()

	// Let the consumer bind its queue before anything is published
	time.Sleep(time.Second)
	go func() { _ = producer.Run(ctx) }()

	auctionID := uuid.New()
	event, err := pkgevents.NewOutboxEvent(pkgevents.NewEnvelope(pkgevents.EventTypeBidPlaced, auctionID, map[string]any{"amount": 150}))
	require.NoError(t, err)
	tx, err := td.Pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, database.NewPostgresOutboxRepository(td.Pool).SaveEvent(ctx, tx, event))
	require.NoError(t, tx.Commit(ctx))

	select {
	case id := <-bidChanges:
		assert.Equal(t, auctionID.String(), id)
	case <-time.After(15 * time.Second):
		t.Fatal("Timeout waiting for bid change")
	}

	require.Eventually(t, func() bool {
		var processed bool
		err := td.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)`, event.ID).Scan(&processed)
		return err == nil && processed
	}, 5*time.Second, 100*time.Millisecond, "event should be recorded as processed")

	var status string
	require.NoError(t, td.Pool.QueryRow(ctx, `SELECT status FROM outbox_events WHERE id = $1`, event.ID).Scan(&status))
	assert.Equal(t, string(pkgevents.OutboxStatusPublished), status)
}

func TestChangeConsumer_DropsMalformedPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	amqpURL := testhelpers.NewTestRabbitMQ(t)
	conn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer conn.Close()

	processor := &recordingProcessor{seen: make(chan *pkgevents.Envelope, 1)}
	consumer := events.NewChangeConsumer(conn, processor, exchange, logger)
	go func() { _ = consumer.Run(ctx) }()
	time.Sleep(time.Second)

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.PublishWithContext(ctx, exchange, pkgevents.EventTypeAuctionEnded, false, false,
		amqp.Publishing{Body: []byte("garbage")}))

	env := pkgevents.NewEnvelope(pkgevents.EventTypeAuctionEnded, uuid.New(), nil)
	body, err := env.Marshal()
	require.NoError(t, err)
	require.NoError(t, ch.PublishWithContext(ctx, exchange, pkgevents.EventTypeAuctionEnded, false, false,
		amqp.Publishing{Body: body}))

	select {
	case got := <-processor.seen:
		assert.Equal(t, env.ID, got.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for valid event")
	}
}

type recordingProcessor struct {
	seen chan *pkgevents.Envelope
}

func (p *recordingProcessor) ProcessEvent(_ context.Context, env *pkgevents.Envelope) error {
	p.seen <- env
	return nil
}

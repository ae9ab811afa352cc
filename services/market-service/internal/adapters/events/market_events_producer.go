package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgdb "github.com/floroz/bazaar/pkg/database"
	pkgevents "github.com/floroz/bazaar/pkg/events"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/database"
)

// ProducerConfig tunes the outbox relay.
type ProducerConfig struct {
	Exchange    string
	BatchSize   int
	Interval    time.Duration
	LockTimeout time.Duration
}

// MarketEventsProducer relays market events from the outbox to RabbitMQ
type MarketEventsProducer struct {
	relay     *pkgevents.OutboxRelay
	publisher *pkgevents.RabbitMQPublisher
}

// NewMarketEventsProducer creates a new producer
func NewMarketEventsProducer(pool *pgxpool.Pool, conn *amqp.Connection, cfg ProducerConfig, logger *slog.Logger) (*MarketEventsProducer, error) {
	publisher, err := pkgevents.NewRabbitMQPublisher(conn, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	relay := pkgevents.NewOutboxRelay(
		database.NewPostgresOutboxRepository(pool),
		publisher,
		pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout),
		cfg.BatchSize,
		cfg.Interval,
		cfg.Exchange,
		logger,
	)

	return &MarketEventsProducer{
		relay:     relay,
		publisher: publisher,
	}, nil
}

// Run starts the relay loop
func (p *MarketEventsProducer) Run(ctx context.Context) error {
	return p.relay.Run(ctx)
}

// Close closes the publisher channel
func (p *MarketEventsProducer) Close() error {
	return p.publisher.Close()
}

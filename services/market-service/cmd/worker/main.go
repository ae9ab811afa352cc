package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	pkgdb "github.com/floroz/bazaar/pkg/database"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/cache"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/database"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/events"
	"github.com/floroz/bazaar/services/market-service/internal/config"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DBURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		logger.Error("Unable to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Connect to RabbitMQ and Redis
	amqpConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Dependencies
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	auctionsCache := cache.NewActiveAuctionsCache(rdb, cfg.ActiveAuctionsTTL, logger)
	auctionService := auctions.NewAuctionService(
		txManager,
		database.NewPostgresAuctionRepository(pool),
		database.NewPostgresBidRepository(pool),
		database.NewPostgresOutboxRepository(pool),
		auctionsCache,
	)
	changeService := changes.NewService(
		database.NewPostgresProcessedEventRepository(),
		txManager,
		events.NewRedisChangeFeed(rdb, logger),
		auctionsCache,
		logger,
	)

	producer, err := events.NewMarketEventsProducer(pool, amqpConn, events.ProducerConfig{
		Exchange:    cfg.Exchange,
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxInterval,
		LockTimeout: cfg.LockTimeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to create events producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	consumer := events.NewChangeConsumer(amqpConn, changeService, cfg.Exchange, logger)

	// 4. Run the loops until one fails or we are told to stop
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting outbox relay...")
		return producer.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting auction expiry sweeper...", "interval", cfg.ExpirySweepInterval)
		return sweepExpired(gctx, auctionService, cfg.ExpirySweepInterval, logger)
	})
	g.Go(func() error {
		logger.Info("Starting change consumer...")
		return consumer.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Market worker stopped")
}

// sweepExpired closes auctions past their end time every interval.
func sweepExpired(ctx context.Context, service *auctions.AuctionService, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := service.ExpireEnded(ctx)
			if err != nil {
				logger.Error("Failed to expire auctions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired auctions", "count", n)
			}
		}
	}
}

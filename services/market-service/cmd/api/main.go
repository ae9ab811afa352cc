package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/floroz/bazaar/pkg/auth"
	pkgdb "github.com/floroz/bazaar/pkg/database"
	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/api"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/cache"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/database"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/events"
	"github.com/floroz/bazaar/services/market-service/internal/config"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
	"github.com/floroz/bazaar/services/market-service/internal/domain/contacts"
	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
	"github.com/floroz/bazaar/services/market-service/internal/domain/profile"
	"github.com/floroz/bazaar/services/market-service/internal/domain/users"
	"github.com/floroz/bazaar/services/market-service/migrations"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Keys
	signer, err := cfg.Signer()
	if err != nil {
		logger.Error("Failed to create signer", "error", err)
		os.Exit(1)
	}
	if cfg.EphemeralKeys() {
		logger.Warn("No key pair configured, using a generated one; tokens will not survive a restart")
	}

	// 2. Initialize Postgres Connection Pool and schema
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

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	if err := pkgdb.Migrate(ctx, cfg.DBURL, migrations.FS); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 3. Check RabbitMQ; the API only writes to the outbox
	amqpConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	// 4. Redis carries the change feed and the active auctions cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed (live updates and caching unavailable)", "error", err)
	} else {
		logger.Info("Redis Connected")
	}

	// 5. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	userRepo := database.NewPostgresUserRepository(pool)
	itemRepo := database.NewPostgresItemRepository(pool)
	contactRepo := database.NewPostgresContactRepository(pool)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)
	auctionsCache := cache.NewActiveAuctionsCache(rdb, cfg.ActiveAuctionsTTL, logger)

	// 6. Initialize Services (Domain Layer)
	userService := users.NewService(userRepo, signer)
	listingService := listings.NewService(itemRepo)
	contactService := contacts.NewService(contactRepo, listingService)
	auctionService := auctions.NewAuctionService(txManager, auctionRepo, bidRepo, outboxRepo, auctionsCache)
	profileService := profile.NewService(userService, listingService, contactService, auctionService)

	// 7. Fan Redis change notifications out to watchers
	hub := changes.NewHub()
	feed := events.NewRedisChangeFeed(rdb, logger)
	go func() {
		logger.Info("Starting change feed...")
		if err := feed.Listen(ctx, hub); err != nil {
			logger.Error("Change feed stopped", "error", err)
		}
	}()

	// 8. Initialize API Handler (ConnectRPC)
	marketHandler := api.NewMarketServiceHandler(api.Services{
		Users:    userService,
		Listings: listingService,
		Contacts: contactService,
		Auctions: auctionService,
		Profile:  profileService,
		Changes:  hub,
	}, logger)
	path, handler := api.NewMarketServiceMux(marketHandler,
		connect.WithInterceptors(auth.NewAuthInterceptor(signer, marketv1.PublicProcedures...)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// 9. Start Server
	logger.Info("Starting Market Service API", "addr", cfg.HTTPAddr)

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down Market Service API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Market Service API stopped")
}

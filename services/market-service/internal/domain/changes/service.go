package changes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/database"
	"github.com/floroz/bazaar/pkg/events"
)

// Service turns broker events into change notifications exactly once per
// event id.
type Service struct {
	repo      ProcessedEventRepository
	txManager database.TransactionManager
	publisher Publisher
	cache     CacheInvalidator
	logger    *slog.Logger
}

// NewService creates the change service. cache may be nil.
func NewService(
	repo ProcessedEventRepository,
	txManager database.TransactionManager,
	publisher Publisher,
	cache CacheInvalidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// ChangesFor maps an event to the changes it causes. Unknown event types
// cause none.
func ChangesFor(env *events.Envelope) []Change {
	id := env.AggregateID.String()
	switch env.Type {
	case events.EventTypeBidPlaced:
		return []Change{{Table: TableBids, ID: id}, {Table: TableAuctions, ID: id}}
	case events.EventTypeAuctionCreated, events.EventTypeAuctionEnded:
		return []Change{{Table: TableAuctions, ID: id}}
	default:
		return nil
	}
}

// ProcessEvent publishes the changes for env. Publication happens before
// the ledger commit, so a failed publish is retried on redelivery.
func (s *Service) ProcessEvent(ctx context.Context, env *events.Envelope) error {
	return database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		processed, err := s.repo.IsEventProcessed(ctx, tx, env.ID)
		if err != nil {
			return apperr.Remote("failed to check idempotency", err)
		}
		if processed {
			s.logger.Debug("Skipping processed event", "event_id", env.ID)
			return nil
		}

		if err := s.repo.MarkEventProcessed(ctx, tx, env.ID); err != nil {
			return apperr.Remote("failed to mark event as processed", err)
		}

		changes := ChangesFor(env)
		for _, change := range changes {
			if err := s.publisher.Publish(ctx, change); err != nil {
				return apperr.Remote(fmt.Sprintf("failed to publish %s change", change.Table), err)
			}
		}
		if s.cache != nil && len(changes) > 0 {
			s.cache.Invalidate(ctx)
		}
		return nil
	})
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bazaar/pkg/apperr"
	pkgevents "github.com/floroz/bazaar/pkg/events"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
)

// PostgresOutboxRepository stores market events next to the auction and
// bid rows they describe, and serves them to the relay.
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

var (
	_ pkgevents.OutboxRepository = (*PostgresOutboxRepository)(nil)
	_ auctions.OutboxRepository  = (*PostgresOutboxRepository)(nil)
)

func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

// SaveEvent must run in the transaction of the change. The row always
// starts pending, whatever event.Status says.
func (r *PostgresOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *pkgevents.OutboxEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)`,
		event.ID, event.EventType, event.Payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.EventType, err)
	}
	return nil
}

// GetPendingEvents locks up to limit pending events, oldest first. Rows
// locked by another relay are skipped rather than waited for.
func (r *PostgresOutboxRepository) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*pkgevents.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_type, payload, status, created_at, processed_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}

	pending, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[pkgevents.OutboxEvent])
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}
	return pending, nil
}

// UpdateEventStatus moves an event along. processed_at is stamped by the
// database the first time the event reaches published or failed, and a
// final event never moves again.
func (r *PostgresOutboxRepository) UpdateEventStatus(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, status pkgevents.OutboxStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = $1::outbox_status,
		    processed_at = CASE
		        WHEN $1::outbox_status IN ('published', 'failed') THEN COALESCE(processed_at, NOW())
		    END
		WHERE id = $2
		  AND status NOT IN ('published', 'failed')`,
		status, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, fmt.Sprintf("no open outbox event %s", eventID))
	}
	return nil
}

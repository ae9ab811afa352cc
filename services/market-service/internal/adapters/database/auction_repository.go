package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
)

const auctionColumns = `id, seller_username, title, description, start_price, current_price,
	COALESCE(image_url, ''), end_time, is_active, created_at, updated_at`

// PostgresAuctionRepository implements auctions.AuctionRepository
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

func scanAuction(row pgx.Row) (*auctions.Auction, error) {
	var a auctions.Auction
	err := row.Scan(
		&a.ID,
		&a.SellerUsername,
		&a.Title,
		&a.Description,
		&a.StartPrice,
		&a.CurrentPrice,
		&a.ImageURL,
		&a.EndTime,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAuctions(rows pgx.Rows) ([]*auctions.Auction, error) {
	defer rows.Close()

	result := []*auctions.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return result, nil
}

func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, a *auctions.Auction) error {
	query := `
		INSERT INTO auctions (id, seller_username, title, description, start_price, current_price, image_url, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)
	`
	_, err := tx.Exec(ctx, query,
		a.ID,
		a.SellerUsername,
		a.Title,
		a.Description,
		a.StartPrice,
		a.CurrentPrice,
		a.ImageURL,
		a.EndTime,
		a.IsActive,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(r.pool.QueryRow(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

func (r *PostgresAuctionRepository) GetAuctionsByIDs(ctx context.Context, auctionIDs []uuid.UUID) ([]*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, auctionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	return collectAuctions(rows)
}

func (r *PostgresAuctionRepository) ListActiveAuctions(ctx context.Context) ([]*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE is_active = TRUE ORDER BY end_time ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active auctions: %w", err)
	}
	return collectAuctions(rows)
}

// RaisePrice is the only write path for current_price. Concurrent bidders
// fenced on the same expected price serialize on the row lock; the second
// re-evaluates the WHERE clause against the committed price and matches
// nothing.
func (r *PostgresAuctionRepository) RaisePrice(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, amount, expected int64, now time.Time) (*auctions.Auction, error) {
	query := `
		UPDATE auctions
		SET current_price = $2, updated_at = $4
		WHERE id = $1
		  AND is_active = TRUE
		  AND end_time > $4
		  AND current_price = $3
		  AND $2 > current_price
		RETURNING ` + auctionColumns
	a, err := scanAuction(tx.QueryRow(ctx, query, auctionID, amount, expected, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to raise auction price: %w", err)
	}
	return a, nil
}

func (r *PostgresAuctionRepository) DeactivateEnded(ctx context.Context, tx pgx.Tx, now time.Time) ([]*auctions.Auction, error) {
	query := `
		UPDATE auctions
		SET is_active = FALSE, updated_at = $1
		WHERE is_active = TRUE AND end_time <= $1
		RETURNING ` + auctionColumns
	rows, err := tx.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate ended auctions: %w", err)
	}
	return collectAuctions(rows)
}

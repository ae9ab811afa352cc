package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
)

// PostgresBidRepository implements auctions.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid saves a bid inside the transaction that raised the price
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *auctions.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, bidder_username, bid_amount, bid_time)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderUsername,
		bid.Amount,
		bid.BidTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBidsByAuctionID retrieves all bids for an auction, newest first
func (r *PostgresBidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*auctions.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_username, bid_amount, bid_time
		FROM bids
		WHERE auction_id = $1
		ORDER BY bid_time DESC
	`
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	result := []*auctions.Bid{}
	for rows.Next() {
		var bid auctions.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderUsername,
			&bid.Amount,
			&bid.BidTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}

// GetBidderSummaries returns the bidder's highest bid per auction, most
// recently bid first
func (r *PostgresBidRepository) GetBidderSummaries(ctx context.Context, bidder string) ([]*auctions.BidderSummary, error) {
	query := `
		SELECT auction_id, MAX(bid_amount)
		FROM bids
		WHERE bidder_username = $1
		GROUP BY auction_id
		ORDER BY MAX(bid_time) DESC
	`
	rows, err := r.pool.Query(ctx, query, bidder)
	if err != nil {
		return nil, fmt.Errorf("failed to query bidder summaries: %w", err)
	}
	defer rows.Close()

	result := []*auctions.BidderSummary{}
	for rows.Next() {
		var s auctions.BidderSummary
		if err := rows.Scan(&s.AuctionID, &s.HighestBid); err != nil {
			return nil, fmt.Errorf("failed to scan bidder summary: %w", err)
		}
		result = append(result, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bidder summaries: %w", err)
	}
	return result, nil
}

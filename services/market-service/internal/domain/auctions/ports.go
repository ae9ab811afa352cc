package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bazaar/pkg/events"
)

type AuctionRepository interface {
	CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error

	// GetAuctionByID returns nil, nil when the auction does not exist
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetAuctionsByIDs returns the auctions that exist among auctionIDs
	GetAuctionsByIDs(ctx context.Context, auctionIDs []uuid.UUID) ([]*Auction, error)

	// ListActiveAuctions returns active auctions ending soonest first
	ListActiveAuctions(ctx context.Context) ([]*Auction, error)

	// RaisePrice sets current_price to amount in a single conditional update.
	// The row only changes while the auction is active, has not reached its
	// end time at now, still has current_price equal to expected and amount
	// is above it. It returns nil, nil when the condition did not hold.
	RaisePrice(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, amount, expected int64, now time.Time) (*Auction, error)

	// DeactivateEnded flips is_active off for auctions whose end time has
	// passed at now and returns them
	DeactivateEnded(ctx context.Context, tx pgx.Tx, now time.Time) ([]*Auction, error)
}

type BidRepository interface {
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetBidsByAuctionID returns bids newest first
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)

	// GetBidderSummaries returns the bidder's highest bid per auction
	GetBidderSummaries(ctx context.Context, bidder string) ([]*BidderSummary, error)
}

type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// ActiveAuctionsCache holds the active-auction list between changes.
// Implementations log and swallow their own failures; a miss falls back
// to the repository.
type ActiveAuctionsCache interface {
	// Get returns the cached list, or on a miss a generation token for Set.
	Get(ctx context.Context) (list []*Auction, generation string, ok bool)
	// Set stores auctions unless Invalidate ran since the Get that returned
	// generation, so a slow fill never overwrites a newer invalidation.
	Set(ctx context.Context, generation string, auctions []*Auction)
	Invalidate(ctx context.Context)
}

package auctions

import (
	"time"

	"github.com/google/uuid"
)

// Auction is a timed ascending sale. CurrentPrice is the highest accepted
// bid (or the start price before any bid) and never decreases.
type Auction struct {
	ID             uuid.UUID `db:"id"`
	SellerUsername string    `db:"seller_username"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	StartPrice     int64     `db:"start_price"`
	CurrentPrice   int64     `db:"current_price"`
	ImageURL       string    `db:"image_url"`
	EndTime        time.Time `db:"end_time"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// HasEnded reports whether the auction stopped accepting bids at now.
func (a *Auction) HasEnded(now time.Time) bool {
	return !a.IsActive || !now.Before(a.EndTime)
}

func (a *Auction) IsOwnedBy(username string) bool {
	return a.SellerUsername == username
}

// Bid is append-only.
type Bid struct {
	ID             uuid.UUID `db:"id"`
	AuctionID      uuid.UUID `db:"auction_id"`
	BidderUsername string    `db:"bidder_username"`
	Amount         int64     `db:"bid_amount"`
	BidTime        time.Time `db:"bid_time"`
}

// BidResult is returned by an accepted bid.
type BidResult struct {
	Bid     *Bid
	Auction *Auction
}

// BidderSummary is a bidder's highest bid on one auction.
type BidderSummary struct {
	AuctionID  uuid.UUID
	HighestBid int64
}

// BidderAuction is an auction the user bid on, with their standing.
type BidderAuction struct {
	Auction         *Auction
	HighestBid      int64
	IsHighestBidder bool
}

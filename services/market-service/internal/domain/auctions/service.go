package auctions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/database"
	"github.com/floroz/bazaar/pkg/events"
)

type CreateAuctionCommand struct {
	SellerUsername  string
	Title           string
	Description     string
	StartPrice      int64
	ImageURL        string
	DurationMinutes int
}

// PlaceBidCommand places Amount on an auction. ExpectedPrice is the price
// the bidder was looking at; when nil the price read at the start of the
// call is used as the fence.
type PlaceBidCommand struct {
	AuctionID      uuid.UUID
	BidderUsername string
	Amount         int64
	ExpectedPrice  *int64
}

// AuctionService implements the auction lifecycle
type AuctionService struct {
	txManager   database.TransactionManager
	auctionRepo AuctionRepository
	bidRepo     BidRepository
	outboxRepo  OutboxRepository
	cache       ActiveAuctionsCache
	now         func() time.Time
}

// NewAuctionService creates a new auction service. cache may be nil.
func NewAuctionService(
	txManager database.TransactionManager,
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	outboxRepo OutboxRepository,
	cache ActiveAuctionsCache,
) *AuctionService {
	if cache == nil {
		cache = noCache{}
	}
	return &AuctionService{
		txManager:   txManager,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		outboxRepo:  outboxRepo,
		cache:       cache,
		now:         time.Now,
	}
}

// CreateAuction opens an auction ending DurationMinutes from now
func (s *AuctionService) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (*Auction, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if cmd.StartPrice <= 0 {
		return nil, ErrInvalidStartPrice
	}
	if cmd.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	now := s.now().UTC()
	auction := &Auction{
		ID:             uuid.New(),
		SellerUsername: cmd.SellerUsername,
		Title:          title,
		Description:    cmd.Description,
		StartPrice:     cmd.StartPrice,
		CurrentPrice:   cmd.StartPrice,
		ImageURL:       cmd.ImageURL,
		EndTime:        now.Add(time.Duration(cmd.DurationMinutes) * time.Minute),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		if err := s.auctionRepo.CreateAuction(ctx, tx, auction); err != nil {
			return apperr.Remote("failed to create auction", err)
		}

		event, err := events.NewOutboxEvent(events.NewEnvelope(events.EventTypeAuctionCreated, auction.ID, map[string]any{
			"seller":      auction.SellerUsername,
			"title":       auction.Title,
			"start_price": auction.StartPrice,
			"end_time":    auction.EndTime.Format(time.RFC3339),
		}))
		if err != nil {
			return err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return apperr.Remote("failed to save outbox event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return auction, nil
}

// GetAuction retrieves an auction by ID
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	auction, err := s.auctionRepo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, apperr.Remote("failed to get auction", err)
	}
	if auction == nil {
		return nil, ErrAuctionNotFound
	}
	return auction, nil
}

// ListActiveAuctions returns active auctions ending soonest first
func (s *AuctionService) ListActiveAuctions(ctx context.Context) ([]*Auction, error) {
	cached, generation, ok := s.cache.Get(ctx)
	if ok {
		return cached, nil
	}

	list, err := s.auctionRepo.ListActiveAuctions(ctx)
	if err != nil {
		return nil, apperr.Remote("failed to list auctions", err)
	}

	s.cache.Set(ctx, generation, list)
	return list, nil
}

// GetBids returns the bid history of an auction, newest first
func (s *AuctionService) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	bids, err := s.bidRepo.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, apperr.Remote("failed to get bids", err)
	}
	return bids, nil
}

// PlaceBid accepts a bid through one conditional price update. The bid row
// and its bid.placed event are written in the same transaction, so a
// rejected bid leaves no trace.
func (s *AuctionService) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*BidResult, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidBidAmount
	}

	auction, err := s.GetAuction(ctx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	if auction.IsOwnedBy(cmd.BidderUsername) {
		return nil, ErrSellerCannotBid
	}

	now := s.now()
	if auction.HasEnded(now) {
		return nil, rejectBid(ErrAuctionEnded, auction.CurrentPrice)
	}

	expected := auction.CurrentPrice
	if cmd.ExpectedPrice != nil {
		if *cmd.ExpectedPrice != auction.CurrentPrice {
			return nil, rejectBid(ErrBidConflict, auction.CurrentPrice)
		}
		expected = *cmd.ExpectedPrice
	}

	if cmd.Amount <= expected {
		return nil, rejectBid(ErrBidTooLow, auction.CurrentPrice)
	}

	bid := &Bid{
		ID:             uuid.New(),
		AuctionID:      cmd.AuctionID,
		BidderUsername: cmd.BidderUsername,
		Amount:         cmd.Amount,
		BidTime:        now.UTC(),
	}

	var updated *Auction
	err = database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		var err error
		updated, err = s.auctionRepo.RaisePrice(ctx, tx, cmd.AuctionID, cmd.Amount, expected, now)
		if err != nil {
			return apperr.Remote("failed to update auction price", err)
		}
		if updated == nil {
			return s.classifyLostBid(ctx, cmd.AuctionID, now)
		}

		if err := s.bidRepo.SaveBid(ctx, tx, bid); err != nil {
			return apperr.Remote("failed to save bid", err)
		}

		event, err := events.NewOutboxEvent(events.NewEnvelope(events.EventTypeBidPlaced, bid.AuctionID, map[string]any{
			"bid_id":         bid.ID.String(),
			"bidder":         bid.BidderUsername,
			"amount":         bid.Amount,
			"previous_price": expected,
		}))
		if err != nil {
			return err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return apperr.Remote("failed to save outbox event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return &BidResult{Bid: bid, Auction: updated}, nil
}

// classifyLostBid explains why the conditional update matched no row.
func (s *AuctionService) classifyLostBid(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	current, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if current.HasEnded(now) {
		return rejectBid(ErrAuctionEnded, current.CurrentPrice)
	}
	return rejectBid(ErrBidConflict, current.CurrentPrice)
}

// ExpireEnded deactivates every auction past its end time and emits one
// auction.ended event per auction. It returns how many were closed.
func (s *AuctionService) ExpireEnded(ctx context.Context) (int, error) {
	var ended []*Auction
	err := database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		var err error
		ended, err = s.auctionRepo.DeactivateEnded(ctx, tx, s.now())
		if err != nil {
			return apperr.Remote("failed to deactivate ended auctions", err)
		}

		for _, auction := range ended {
			event, err := events.NewOutboxEvent(events.NewEnvelope(events.EventTypeAuctionEnded, auction.ID, map[string]any{
				"seller":      auction.SellerUsername,
				"final_price": auction.CurrentPrice,
			}))
			if err != nil {
				return err
			}
			if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
				return apperr.Remote(fmt.Sprintf("failed to save auction.ended for %s", auction.ID), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(ended) == 0 {
		return 0, nil
	}

	s.cache.Invalidate(ctx)
	return len(ended), nil
}

// ListBidderAuctions returns every auction the bidder bid on with their
// highest bid. They are the highest bidder while the current price has not
// moved above that bid.
func (s *AuctionService) ListBidderAuctions(ctx context.Context, bidder string) ([]*BidderAuction, error) {
	summaries, err := s.bidRepo.GetBidderSummaries(ctx, bidder)
	if err != nil {
		return nil, apperr.Remote("failed to get bidder summaries", err)
	}
	if len(summaries) == 0 {
		return []*BidderAuction{}, nil
	}

	ids := make([]uuid.UUID, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.AuctionID)
	}

	found, err := s.auctionRepo.GetAuctionsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Remote("failed to get auctions", err)
	}
	byID := make(map[uuid.UUID]*Auction, len(found))
	for _, auction := range found {
		byID[auction.ID] = auction
	}

	result := make([]*BidderAuction, 0, len(summaries))
	for _, summary := range summaries {
		auction, ok := byID[summary.AuctionID]
		if !ok {
			continue
		}
		result = append(result, &BidderAuction{
			Auction:         auction,
			HighestBid:      summary.HighestBid,
			IsHighestBidder: auction.CurrentPrice <= summary.HighestBid,
		})
	}
	return result, nil
}

type noCache struct{}

func (noCache) Get(context.Context) ([]*Auction, string, bool) { return nil, "", false }
func (noCache) Set(context.Context, string, []*Auction)        {}
func (noCache) Invalidate(context.Context)                     {}

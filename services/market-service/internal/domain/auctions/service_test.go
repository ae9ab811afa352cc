package auctions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/events"
	"github.com/floroz/bazaar/pkg/testhelpers"
)

type MockAuctionRepository struct {
	mock.Mock
}

func (m *MockAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error {
	args := m.Called(ctx, tx, auction)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetAuctionsByIDs(ctx context.Context, auctionIDs []uuid.UUID) ([]*Auction, error) {
	args := m.Called(ctx, auctionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Auction), args.Error(1)
}

func (m *MockAuctionRepository) ListActiveAuctions(ctx context.Context) ([]*Auction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Auction), args.Error(1)
}

func (m *MockAuctionRepository) RaisePrice(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, amount, expected int64, now time.Time) (*Auction, error) {
	args := m.Called(ctx, tx, auctionID, amount, expected, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockAuctionRepository) DeactivateEnded(ctx context.Context, tx pgx.Tx, now time.Time) ([]*Auction, error) {
	args := m.Called(ctx, tx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Auction), args.Error(1)
}

type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error {
	args := m.Called(ctx, tx, bid)
	return args.Error(0)
}

func (m *MockBidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Bid), args.Error(1)
}

func (m *MockBidRepository) GetBidderSummaries(ctx context.Context, bidder string) ([]*BidderSummary, error) {
	args := m.Called(ctx, bidder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*BidderSummary), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context) ([]*Auction, string, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Bool(2)
	}
	return args.Get(0).([]*Auction), args.String(1), args.Bool(2)
}

func (m *MockCache) Set(ctx context.Context, generation string, auctions []*Auction) {
	m.Called(ctx, generation, auctions)
}

func (m *MockCache) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type fixture struct {
	tx       *testhelpers.FakeTxManager
	auctions *MockAuctionRepository
	bids     *MockBidRepository
	outbox   *MockOutboxRepository
	cache    *MockCache
	service  *AuctionService
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		tx:       testhelpers.NewFakeTxManager(),
		auctions: new(MockAuctionRepository),
		bids:     new(MockBidRepository),
		outbox:   new(MockOutboxRepository),
		cache:    new(MockCache),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewAuctionService(f.tx, f.auctions, f.bids, f.outbox, f.cache)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.auctions.AssertExpectations(t)
	f.bids.AssertExpectations(t)
	f.outbox.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func openAuction(id uuid.UUID, price int64, now time.Time) *Auction {
	return &Auction{
		ID:             id,
		SellerUsername: "seller",
		Title:          "Lamp",
		StartPrice:     100,
		CurrentPrice:   price,
		EndTime:        now.Add(time.Hour),
		IsActive:       true,
	}
}

func isEventType(eventType string) any {
	return mock.MatchedBy(func(e *events.OutboxEvent) bool {
		return e.EventType == eventType && e.Status == events.OutboxStatusPending
	})
}

func TestAuctionService_PlaceBid(t *testing.T) {
	auctionID := uuid.New()
	int64Ptr := func(v int64) *int64 { return &v }

	tests := []struct {
		name       string
		cmd        PlaceBidCommand
		setupMocks func(*fixture)
		wantErr    error
		wantPrice  int64
		committed  bool
	}{
		{
			name: "accepts a bid above the current price",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
				f.auctions.On("RaisePrice", mock.Anything, f.tx.Tx, auctionID, int64(150), int64(100), f.now).
					Return(openAuction(auctionID, 150, f.now), nil)
				f.bids.On("SaveBid", mock.Anything, f.tx.Tx, mock.MatchedBy(func(b *Bid) bool {
					return b.Amount == 150 && b.BidderUsername == "bob" && b.AuctionID == auctionID
				})).Return(nil)
				f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, isEventType(events.EventTypeBidPlaced)).Return(nil)
				f.cache.On("Invalidate", mock.Anything).Return()
			},
			committed: true,
		},
		{
			name: "accepts a bid fenced on the price the bidder saw",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 120, ExpectedPrice: int64Ptr(100)},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
				f.auctions.On("RaisePrice", mock.Anything, f.tx.Tx, auctionID, int64(120), int64(100), f.now).
					Return(openAuction(auctionID, 120, f.now), nil)
				f.bids.On("SaveBid", mock.Anything, f.tx.Tx, mock.Anything).Return(nil)
				f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, mock.Anything).Return(nil)
				f.cache.On("Invalidate", mock.Anything).Return()
			},
			committed: true,
		},
		{
			name: "rejects a bid at or below the current price",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 90},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
			},
			wantErr:   ErrBidTooLow,
			wantPrice: 100,
		},
		{
			name: "rejects a bid equal to the current price",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 100},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
			},
			wantErr:   ErrBidTooLow,
			wantPrice: 100,
		},
		{
			name: "rejects a stale expected price",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150, ExpectedPrice: int64Ptr(100)},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 140, f.now), nil)
			},
			wantErr:   ErrBidConflict,
			wantPrice: 140,
		},
		{
			name: "losing the conditional update reports the winning price",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil).Once()
				f.auctions.On("RaisePrice", mock.Anything, f.tx.Tx, auctionID, int64(150), int64(100), f.now).Return(nil, nil)
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 200, f.now), nil).Once()
			},
			wantErr:   ErrBidConflict,
			wantPrice: 200,
		},
		{
			name: "auction ended between read and update",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil).Once()
				f.auctions.On("RaisePrice", mock.Anything, f.tx.Tx, auctionID, int64(150), int64(100), f.now).Return(nil, nil)
				closed := openAuction(auctionID, 100, f.now)
				closed.IsActive = false
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(closed, nil).Once()
			},
			wantErr:   ErrAuctionEnded,
			wantPrice: 100,
		},
		{
			name: "rejects bids after the end time",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				a := openAuction(auctionID, 100, f.now)
				a.EndTime = f.now
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(a, nil)
			},
			wantErr:   ErrAuctionEnded,
			wantPrice: 100,
		},
		{
			name: "seller cannot bid",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "seller", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
			},
			wantErr: ErrSellerCannotBid,
		},
		{
			name:       "non-positive amount",
			cmd:        PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 0},
			setupMocks: func(f *fixture) {},
			wantErr:    ErrInvalidBidAmount,
		},
		{
			name: "unknown auction",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(nil, nil)
			},
			wantErr: ErrAuctionNotFound,
		},
		{
			name: "outbox failure aborts the bid",
			cmd:  PlaceBidCommand{AuctionID: auctionID, BidderUsername: "bob", Amount: 150},
			setupMocks: func(f *fixture) {
				f.auctions.On("GetAuctionByID", mock.Anything, auctionID).Return(openAuction(auctionID, 100, f.now), nil)
				f.auctions.On("RaisePrice", mock.Anything, f.tx.Tx, auctionID, int64(150), int64(100), f.now).
					Return(openAuction(auctionID, 150, f.now), nil)
				f.bids.On("SaveBid", mock.Anything, f.tx.Tx, mock.Anything).Return(nil)
				f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, mock.Anything).Return(errors.New("disk full"))
			},
			wantErr: apperr.ErrRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			result, err := f.service.PlaceBid(context.Background(), tt.cmd)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				if tt.wantPrice != 0 {
					var rejected *BidRejectedError
					require.ErrorAs(t, err, &rejected)
					assert.Equal(t, tt.wantPrice, rejected.CurrentPrice)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.cmd.Amount, result.Bid.Amount)
				assert.Equal(t, tt.cmd.Amount, result.Auction.CurrentPrice)
			}
			assert.Equal(t, tt.committed, f.tx.Tx.Committed)

			f.assertExpectations(t)
		})
	}
}

func TestBidConflict_IsValidationAndConflict(t *testing.T) {
	err := rejectBid(ErrBidConflict, 200)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "current price 200")
}

func TestAuctionService_CreateAuction(t *testing.T) {
	tests := []struct {
		name       string
		cmd        CreateAuctionCommand
		setupMocks func(*fixture)
		wantErr    error
	}{
		{
			name: "opens an auction",
			cmd:  CreateAuctionCommand{SellerUsername: "seller", Title: " Lamp ", StartPrice: 100, DurationMinutes: 60},
			setupMocks: func(f *fixture) {
				f.auctions.On("CreateAuction", mock.Anything, f.tx.Tx, mock.AnythingOfType("*auctions.Auction")).Return(nil)
				f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, isEventType(events.EventTypeAuctionCreated)).Return(nil)
				f.cache.On("Invalidate", mock.Anything).Return()
			},
		},
		{
			name:       "requires a title",
			cmd:        CreateAuctionCommand{SellerUsername: "seller", StartPrice: 100, DurationMinutes: 60},
			setupMocks: func(f *fixture) {},
			wantErr:    ErrTitleRequired,
		},
		{
			name:       "requires a positive start price",
			cmd:        CreateAuctionCommand{SellerUsername: "seller", Title: "Lamp", DurationMinutes: 60},
			setupMocks: func(f *fixture) {},
			wantErr:    ErrInvalidStartPrice,
		},
		{
			name:       "requires a duration",
			cmd:        CreateAuctionCommand{SellerUsername: "seller", Title: "Lamp", StartPrice: 100},
			setupMocks: func(f *fixture) {},
			wantErr:    ErrInvalidDuration,
		},
		{
			name: "commit failure is remote",
			cmd:  CreateAuctionCommand{SellerUsername: "seller", Title: "Lamp", StartPrice: 100, DurationMinutes: 60},
			setupMocks: func(f *fixture) {
				f.tx.Tx.CommitErr = errors.New("connection reset")
				f.auctions.On("CreateAuction", mock.Anything, f.tx.Tx, mock.Anything).Return(nil)
				f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, mock.Anything).Return(nil)
			},
			wantErr: apperr.ErrRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			auction, err := f.service.CreateAuction(context.Background(), tt.cmd)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, auction)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Lamp", auction.Title)
				assert.Equal(t, auction.StartPrice, auction.CurrentPrice)
				assert.True(t, auction.IsActive)
				assert.Equal(t, f.now.Add(time.Hour), auction.EndTime)
				assert.True(t, f.tx.Tx.Committed)
			}

			f.assertExpectations(t)
		})
	}
}

func TestAuctionService_ListActiveAuctions(t *testing.T) {
	list := []*Auction{{ID: uuid.New(), Title: "Lamp"}}

	t.Run("serves from cache", func(t *testing.T) {
		f := newFixture()
		f.cache.On("Get", mock.Anything).Return(list, "3", true)

		got, err := f.service.ListActiveAuctions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, list, got)
		f.assertExpectations(t)
	})

	t.Run("fills cache on miss", func(t *testing.T) {
		f := newFixture()
		f.cache.On("Get", mock.Anything).Return(nil, "3", false)
		f.auctions.On("ListActiveAuctions", mock.Anything).Return(list, nil)
		f.cache.On("Set", mock.Anything, "3", list).Return()

		got, err := f.service.ListActiveAuctions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, list, got)
		f.assertExpectations(t)
	})

	t.Run("works without a cache", func(t *testing.T) {
		repo := new(MockAuctionRepository)
		repo.On("ListActiveAuctions", mock.Anything).Return(list, nil)
		service := NewAuctionService(testhelpers.NewFakeTxManager(), repo, nil, nil, nil)

		got, err := service.ListActiveAuctions(context.Background())

		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestAuctionService_ExpireEnded(t *testing.T) {
	t.Run("emits one event per ended auction", func(t *testing.T) {
		f := newFixture()
		ended := []*Auction{{ID: uuid.New(), CurrentPrice: 300}, {ID: uuid.New(), CurrentPrice: 120}}
		f.auctions.On("DeactivateEnded", mock.Anything, f.tx.Tx, f.now).Return(ended, nil)
		f.outbox.On("SaveEvent", mock.Anything, f.tx.Tx, isEventType(events.EventTypeAuctionEnded)).Return(nil).Twice()
		f.cache.On("Invalidate", mock.Anything).Return()

		n, err := f.service.ExpireEnded(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, f.tx.Tx.Committed)
		f.assertExpectations(t)
	})

	t.Run("nothing to expire", func(t *testing.T) {
		f := newFixture()
		f.auctions.On("DeactivateEnded", mock.Anything, f.tx.Tx, f.now).Return([]*Auction{}, nil)

		n, err := f.service.ExpireEnded(context.Background())

		require.NoError(t, err)
		assert.Zero(t, n)
		f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
		f.assertExpectations(t)
	})
}

func TestAuctionService_ListBidderAuctions(t *testing.T) {
	f := newFixture()
	leading, outbid, gone := uuid.New(), uuid.New(), uuid.New()

	f.bids.On("GetBidderSummaries", mock.Anything, "bob").Return([]*BidderSummary{
		{AuctionID: leading, HighestBid: 200},
		{AuctionID: outbid, HighestBid: 150},
		{AuctionID: gone, HighestBid: 90},
	}, nil)
	f.auctions.On("GetAuctionsByIDs", mock.Anything, []uuid.UUID{leading, outbid, gone}).Return([]*Auction{
		{ID: outbid, CurrentPrice: 180},
		{ID: leading, CurrentPrice: 200},
	}, nil)

	got, err := f.service.ListBidderAuctions(context.Background(), "bob")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, leading, got[0].Auction.ID)
	assert.True(t, got[0].IsHighestBidder)
	assert.Equal(t, outbid, got[1].Auction.ID)
	assert.False(t, got[1].IsHighestBidder)
	assert.Equal(t, int64(150), got[1].HighestBid)
	f.assertExpectations(t)
}

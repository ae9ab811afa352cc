//go:build integration

package auctions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/database"
	"github.com/floroz/bazaar/pkg/testhelpers"
	infradb "github.com/floroz/bazaar/services/market-service/internal/adapters/database"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/migrations"
)

func seedUsers(t *testing.T, pool *pgxpool.Pool, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO users (username, password_hash, phone) VALUES ($1, 'hash', '1234567890')`, username)
		require.NoError(t, err, "Failed to seed user")
	}
}

func setupAuctionService(t *testing.T) (*auctions.AuctionService, *testhelpers.TestDatabase) {
	t.Helper()
	td := testhelpers.NewTestDatabase(t, migrations.FS)
	seedUsers(t, td.Pool, "seller", "bob", "carol")

	txManager := database.NewPostgresTransactionManager(td.Pool, 5*time.Second)
	service := auctions.NewAuctionService(
		txManager,
		infradb.NewPostgresAuctionRepository(td.Pool),
		infradb.NewPostgresBidRepository(td.Pool),
		infradb.NewPostgresOutboxRepository(td.Pool),
		nil,
	)
	return service, td
}

func createAuction(t *testing.T, service *auctions.AuctionService) *auctions.Auction {
	t.Helper()
	auction, err := service.CreateAuction(context.Background(), auctions.CreateAuctionCommand{
		SellerUsername:  "seller",
		Title:           "Lamp",
		StartPrice:      100,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	return auction
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestAuctionService_PlaceBid_LowThenHigh(t *testing.T) {
	service, td := setupAuctionService(t)
	ctx := context.Background()
	auction := createAuction(t, service)

	_, err := service.PlaceBid(ctx, auctions.PlaceBidCommand{AuctionID: auction.ID, BidderUsername: "bob", Amount: 90})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, auctions.ErrBidTooLow)

	result, err := service.PlaceBid(ctx, auctions.PlaceBidCommand{AuctionID: auction.ID, BidderUsername: "bob", Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, int64(150), result.Auction.CurrentPrice)

	fetched, err := service.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), fetched.CurrentPrice)

	bids, err := service.GetBids(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "bob", bids[0].BidderUsername)

	assert.Equal(t, 1, countRows(t, td.Pool, `SELECT COUNT(*) FROM outbox_events WHERE event_type = 'bid.placed'`))
	assert.Equal(t, 1, countRows(t, td.Pool, `SELECT COUNT(*) FROM outbox_events WHERE event_type = 'auction.created'`))
}

func TestAuctionService_PlaceBid_ConcurrentSamePrice(t *testing.T) {
	service, td := setupAuctionService(t)
	ctx := context.Background()
	auction := createAuction(t, service)
	expected := auction.CurrentPrice

	amounts := map[string]int64{"bob": 150, "carol": 200}
	results := make(map[string]error, len(amounts))
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})

	for bidder, amount := range amounts {
		wg.Add(1)
		go func(bidder string, amount int64) {
			defer wg.Done()
			<-start
			_, err := service.PlaceBid(ctx, auctions.PlaceBidCommand{
				AuctionID:      auction.ID,
				BidderUsername: bidder,
				Amount:         amount,
				ExpectedPrice:  &expected,
			})
			mu.Lock()
			results[bidder] = err
			mu.Unlock()
		}(bidder, amount)
	}
	close(start)
	wg.Wait()

	var winner string
	accepted := 0
	for bidder, err := range results {
		if err == nil {
			accepted++
			winner = bidder
			continue
		}
		assert.True(t, apperr.Is(err, apperr.ErrValidation), "loser must see a validation error, got %v", err)
		var rejected *auctions.BidRejectedError
		require.ErrorAs(t, err, &rejected)
	}
	require.Equal(t, 1, accepted, "exactly one bid must win")

	final, err := service.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, amounts[winner], final.CurrentPrice)
	assert.Equal(t, 1, countRows(t, td.Pool, `SELECT COUNT(*) FROM bids WHERE auction_id = $1`, auction.ID))

	// The losing bidder retries against the fresh price; the higher bid
	// ends up as current_price either way.
	loser := "bob"
	if winner == "bob" {
		loser = "carol"
	}
	fresh := final.CurrentPrice
	_, err = service.PlaceBid(ctx, auctions.PlaceBidCommand{
		AuctionID:      auction.ID,
		BidderUsername: loser,
		Amount:         amounts[loser],
		ExpectedPrice:  &fresh,
	})
	if amounts[loser] > fresh {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
	}

	final, err = service.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), final.CurrentPrice)
}

func TestAuctionService_PlaceBid_ManyBiddersMonotonic(t *testing.T) {
	service, td := setupAuctionService(t)
	ctx := context.Background()
	auction := createAuction(t, service)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			bidder := "bob"
			if amount%2 == 0 {
				bidder = "carol"
			}
			_, _ = service.PlaceBid(ctx, auctions.PlaceBidCommand{AuctionID: auction.ID, BidderUsername: bidder, Amount: amount})
		}(100 + int64(i)*10)
	}
	wg.Wait()

	final, err := service.GetAuction(ctx, auction.ID)
	require.NoError(t, err)

	var maxBid int64
	require.NoError(t, td.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(bid_amount), 0) FROM bids WHERE auction_id = $1`, auction.ID).Scan(&maxBid))
	assert.Equal(t, maxBid, final.CurrentPrice, "current price must equal the highest accepted bid")

	bids, err := service.GetBids(ctx, auction.ID)
	require.NoError(t, err)
	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i-1].Amount, bids[i].Amount, "accepted bids must strictly increase over time")
	}
}

func TestAuctionService_ExpireEnded(t *testing.T) {
	service, td := setupAuctionService(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := td.Pool.Exec(ctx, `
		INSERT INTO auctions (id, seller_username, title, start_price, current_price, end_time)
		VALUES ($1, 'seller', 'Old', 10, 10, NOW() - INTERVAL '1 minute')`, id)
	require.NoError(t, err)

	_, err = service.PlaceBid(ctx, auctions.PlaceBidCommand{AuctionID: id, BidderUsername: "bob", Amount: 20})
	assert.ErrorIs(t, err, auctions.ErrAuctionEnded)

	n, err := service.ExpireEnded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := service.ListActiveAuctions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 1, countRows(t, td.Pool, `SELECT COUNT(*) FROM outbox_events WHERE event_type = 'auction.ended'`))
}

package api

import (
	"context"

	"connectrpc.com/connect"

	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/pkg/session"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
)

// watchBuffer bounds the changes queued for one watcher. Changes beyond it
// are dropped; they only tell the client to re-fetch.
const watchBuffer = 64

func (h *MarketServiceHandler) CreateAuction(
	ctx context.Context,
	req *connect.Request[marketv1.CreateAuctionRequest],
) (*connect.Response[marketv1.CreateAuctionResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.CreateAuctionProcedure, err)
	}

	auction, err := h.svc.Auctions.CreateAuction(ctx, auctions.CreateAuctionCommand{
		SellerUsername:  username,
		Title:           req.Msg.Title,
		Description:     req.Msg.Description,
		StartPrice:      req.Msg.StartPrice,
		ImageURL:        req.Msg.ImageURL,
		DurationMinutes: int(req.Msg.DurationMinutes),
	})
	if err != nil {
		return nil, h.fail(marketv1.CreateAuctionProcedure, err)
	}
	return connect.NewResponse(&marketv1.CreateAuctionResponse{Auction: mapAuction(auction)}), nil
}

func (h *MarketServiceHandler) ListActiveAuctions(
	ctx context.Context,
	_ *connect.Request[marketv1.ListActiveAuctionsRequest],
) (*connect.Response[marketv1.ListActiveAuctionsResponse], error) {
	list, err := h.svc.Auctions.ListActiveAuctions(ctx)
	if err != nil {
		return nil, h.fail(marketv1.ListActiveAuctionsProcedure, err)
	}
	return connect.NewResponse(&marketv1.ListActiveAuctionsResponse{Auctions: mapAuctions(list)}), nil
}

func (h *MarketServiceHandler) GetAuction(
	ctx context.Context,
	req *connect.Request[marketv1.GetAuctionRequest],
) (*connect.Response[marketv1.GetAuctionResponse], error) {
	auctionID, err := parseID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}

	auction, err := h.svc.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, h.fail(marketv1.GetAuctionProcedure, err)
	}
	return connect.NewResponse(&marketv1.GetAuctionResponse{Auction: mapAuction(auction)}), nil
}

func (h *MarketServiceHandler) ListBids(
	ctx context.Context,
	req *connect.Request[marketv1.ListBidsRequest],
) (*connect.Response[marketv1.ListBidsResponse], error) {
	auctionID, err := parseID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}

	bids, err := h.svc.Auctions.GetBids(ctx, auctionID)
	if err != nil {
		return nil, h.fail(marketv1.ListBidsProcedure, err)
	}

	res := &marketv1.ListBidsResponse{Bids: make([]*marketv1.Bid, len(bids))}
	for i, bid := range bids {
		res.Bids[i] = mapBid(bid)
	}
	return connect.NewResponse(res), nil
}

// PlaceBid rejects with Aborted when the price moved under the bidder and
// FailedPrecondition when the bid is too low or the auction has ended. Both
// carry the current price as an error detail.
func (h *MarketServiceHandler) PlaceBid(
	ctx context.Context,
	req *connect.Request[marketv1.PlaceBidRequest],
) (*connect.Response[marketv1.PlaceBidResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.PlaceBidProcedure, err)
	}
	auctionID, err := parseID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Auctions.PlaceBid(ctx, auctions.PlaceBidCommand{
		AuctionID:      auctionID,
		BidderUsername: username,
		Amount:         req.Msg.Amount,
		ExpectedPrice:  req.Msg.ExpectedPrice,
	})
	if err != nil {
		return nil, h.fail(marketv1.PlaceBidProcedure, err)
	}

	return connect.NewResponse(&marketv1.PlaceBidResponse{
		Bid:     mapBid(result.Bid),
		Auction: mapAuction(result.Auction),
	}), nil
}

// WatchChanges streams change notifications until the client goes away.
func (h *MarketServiceHandler) WatchChanges(
	ctx context.Context,
	req *connect.Request[marketv1.WatchChangesRequest],
	stream *connect.ServerStream[marketv1.Change],
) error {
	tables, err := changes.ValidateTables(req.Msg.Tables)
	if err != nil {
		return h.fail(marketv1.WatchChangesProcedure, err)
	}

	queue := make(chan changes.Change, watchBuffer)
	for _, table := range tables {
		unsubscribe := h.svc.Changes.Subscribe(table, func(id string) {
			select {
			case queue <- changes.Change{Table: table, ID: id}:
			default:
				h.logger.Warn("Dropping change for slow watcher", "table", table, "id", id)
			}
		})
		defer unsubscribe()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-queue:
			if err := stream.Send(&marketv1.Change{Table: change.Table, ID: change.ID}); err != nil {
				return err
			}
		}
	}
}

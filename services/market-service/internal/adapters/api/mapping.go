package api

import (
	"github.com/google/uuid"

	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/contacts"
	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
	"github.com/floroz/bazaar/services/market-service/internal/domain/profile"
	"github.com/floroz/bazaar/services/market-service/internal/domain/users"
)

func mapUser(u *users.User) *marketv1.User {
	return &marketv1.User{
		Username:  u.Username,
		Phone:     u.Phone,
		Facebook:  u.Facebook,
		CreatedAt: u.CreatedAt,
	}
}

func mapItem(item *listings.Item) *marketv1.Item {
	if item == nil {
		return nil
	}
	return &marketv1.Item{
		ID:             item.ID.String(),
		SellerUsername: item.SellerUsername,
		Title:          item.Title,
		Description:    item.Description,
		Price:          item.Price,
		ImageURL:       item.ImageURL,
		IsSold:         item.IsSold,
		CreatedAt:      item.CreatedAt,
	}
}

func mapItems(items []*listings.Item) []*marketv1.Item {
	out := make([]*marketv1.Item, len(items))
	for i, item := range items {
		out[i] = mapItem(item)
	}
	return out
}

func mapContactRequest(req *contacts.ContactRequest) *marketv1.ContactRequest {
	return &marketv1.ContactRequest{
		ID:             req.ID.String(),
		ItemID:         req.ItemID.String(),
		SellerUsername: req.SellerUsername,
		BuyerUsername:  req.BuyerUsername,
		Phone:          req.Phone,
		Facebook:       req.Facebook,
		CreatedAt:      req.CreatedAt,
	}
}

func mapContactRequests(reqs []*contacts.ContactRequest) []*marketv1.ContactRequest {
	out := make([]*marketv1.ContactRequest, len(reqs))
	for i, req := range reqs {
		out[i] = mapContactRequest(req)
	}
	return out
}

func mapAuction(a *auctions.Auction) *marketv1.Auction {
	return &marketv1.Auction{
		ID:             a.ID.String(),
		SellerUsername: a.SellerUsername,
		Title:          a.Title,
		Description:    a.Description,
		StartPrice:     a.StartPrice,
		CurrentPrice:   a.CurrentPrice,
		ImageURL:       a.ImageURL,
		EndTime:        a.EndTime,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
	}
}

func mapAuctions(list []*auctions.Auction) []*marketv1.Auction {
	out := make([]*marketv1.Auction, len(list))
	for i, a := range list {
		out[i] = mapAuction(a)
	}
	return out
}

func mapBid(bid *auctions.Bid) *marketv1.Bid {
	return &marketv1.Bid{
		ID:             bid.ID.String(),
		AuctionID:      bid.AuctionID.String(),
		BidderUsername: bid.BidderUsername,
		Amount:         bid.Amount,
		BidTime:        bid.BidTime,
	}
}

func mapProfile(p *profile.Profile) *marketv1.Profile {
	out := &marketv1.Profile{
		User:             mapUser(p.User),
		SoldItems:        mapItems(p.SoldItems),
		ActiveItems:      make([]*marketv1.ItemWithRequests, len(p.ActiveItems)),
		BidAuctions:      make([]*marketv1.AuctionBid, len(p.BidAuctions)),
		OutgoingRequests: make([]*marketv1.OutgoingRequest, len(p.OutgoingRequests)),
	}
	for i, active := range p.ActiveItems {
		out.ActiveItems[i] = &marketv1.ItemWithRequests{
			Item:     mapItem(active.Item),
			Requests: mapContactRequests(active.Requests),
		}
	}
	for i, bid := range p.BidAuctions {
		out.BidAuctions[i] = &marketv1.AuctionBid{
			Auction:         mapAuction(bid.Auction),
			HighestBid:      bid.HighestBid,
			IsHighestBidder: bid.IsHighestBidder,
		}
	}
	for i, req := range p.OutgoingRequests {
		out.OutgoingRequests[i] = &marketv1.OutgoingRequest{
			Request: mapContactRequest(req.Request),
			Item:    mapItem(req.Item),
		}
	}
	return out
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

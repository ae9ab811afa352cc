// Package profile assembles a user's view of their own marketplace
// activity from the other domains.
package profile

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/contacts"
	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
	"github.com/floroz/bazaar/services/market-service/internal/domain/users"
)

type UserReader interface {
	GetUser(ctx context.Context, username string) (*users.User, error)
}

type ItemReader interface {
	ListSellerItems(ctx context.Context, seller string, sold bool) ([]*listings.Item, error)
	GetItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*listings.Item, error)
}

type ContactReader interface {
	ListIncoming(ctx context.Context, seller string) ([]*contacts.ContactRequest, error)
	ListOutgoing(ctx context.Context, buyer string) ([]*contacts.ContactRequest, error)
}

type BidReader interface {
	ListBidderAuctions(ctx context.Context, bidder string) ([]*auctions.BidderAuction, error)
}

type ItemWithRequests struct {
	Item     *listings.Item
	Requests []*contacts.ContactRequest
}

// OutgoingRequest pairs a sent request with its item. Item is nil when the
// seller deleted the listing.
type OutgoingRequest struct {
	Request *contacts.ContactRequest
	Item    *listings.Item
}

type Profile struct {
	User             *users.User
	SoldItems        []*listings.Item
	ActiveItems      []*ItemWithRequests
	BidAuctions      []*auctions.BidderAuction
	OutgoingRequests []*OutgoingRequest
}

type Service struct {
	users    UserReader
	items    ItemReader
	contacts ContactReader
	bids     BidReader
}

func NewService(users UserReader, items ItemReader, contacts ContactReader, bids BidReader) *Service {
	return &Service{users: users, items: items, contacts: contacts, bids: bids}
}

// GetProfile runs the independent reads concurrently. Any failure cancels
// the rest and is returned as is.
func (s *Service) GetProfile(ctx context.Context, username string) (*Profile, error) {
	var (
		p        Profile
		active   []*listings.Item
		incoming []*contacts.ContactRequest
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := s.users.GetUser(gctx, username)
		p.User = user
		return err
	})
	g.Go(func() error {
		sold, err := s.items.ListSellerItems(gctx, username, true)
		p.SoldItems = sold
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.items.ListSellerItems(gctx, username, false)
		return err
	})
	g.Go(func() error {
		var err error
		incoming, err = s.contacts.ListIncoming(gctx, username)
		return err
	})
	g.Go(func() error {
		bids, err := s.bids.ListBidderAuctions(gctx, username)
		p.BidAuctions = bids
		return err
	})
	g.Go(func() error {
		outgoing, err := s.outgoingRequests(gctx, username)
		p.OutgoingRequests = outgoing
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.ActiveItems = groupRequests(active, incoming)
	return &p, nil
}

func (s *Service) outgoingRequests(ctx context.Context, buyer string) ([]*OutgoingRequest, error) {
	reqs, err := s.contacts.ListOutgoing(ctx, buyer)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for _, req := range reqs {
		if !seen[req.ItemID] {
			seen[req.ItemID] = true
			ids = append(ids, req.ItemID)
		}
	}

	items, err := s.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*OutgoingRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, &OutgoingRequest{Request: req, Item: items[req.ItemID]})
	}
	return out, nil
}

func groupRequests(items []*listings.Item, reqs []*contacts.ContactRequest) []*ItemWithRequests {
	byItem := make(map[uuid.UUID][]*contacts.ContactRequest)
	for _, req := range reqs {
		byItem[req.ItemID] = append(byItem[req.ItemID], req)
	}

	out := make([]*ItemWithRequests, 0, len(items))
	for _, item := range items {
		requests := byItem[item.ID]
		if requests == nil {
			requests = []*contacts.ContactRequest{}
		}
		out = append(out, &ItemWithRequests{Item: item, Requests: requests})
	}
	return out
}

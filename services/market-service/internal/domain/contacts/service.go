package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bazaar/pkg/apperr"
)

var (
	ErrContactRequired = apperr.New(apperr.ErrValidation, "a phone number or facebook handle is required")
	ErrOwnItem         = apperr.New(apperr.ErrValidation, "cannot contact yourself about your own item")
)

type RequestContactCommand struct {
	ItemID        uuid.UUID
	BuyerUsername string
	Phone         string
	Facebook      string
}

type Service struct {
	repo  Repository
	items ItemFinder
}

func NewService(repo Repository, items ItemFinder) *Service {
	return &Service{repo: repo, items: items}
}

// RequestContact records the buyer's contact details for the item's seller.
func (s *Service) RequestContact(ctx context.Context, cmd RequestContactCommand) (*ContactRequest, error) {
	phone := strings.TrimSpace(cmd.Phone)
	facebook := strings.TrimSpace(cmd.Facebook)
	if phone == "" && facebook == "" {
		return nil, ErrContactRequired
	}

	// listings.ErrItemNotFound already carries apperr.ErrNotFound
	item, err := s.items.GetItem(ctx, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	if item.IsOwnedBy(cmd.BuyerUsername) {
		return nil, ErrOwnItem
	}

	req := &ContactRequest{
		ID:             uuid.New(),
		ItemID:         item.ID,
		SellerUsername: item.SellerUsername,
		BuyerUsername:  cmd.BuyerUsername,
		Phone:          phone,
		Facebook:       facebook,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, apperr.Remote("failed to create contact request", err)
	}
	return req, nil
}

// ListRequestedItemIDs lets the Buy/Sell board show "request sent".
func (s *Service) ListRequestedItemIDs(ctx context.Context, buyer string) ([]uuid.UUID, error) {
	ids, err := s.repo.ListRequestedItemIDs(ctx, buyer)
	if err != nil {
		return nil, apperr.Remote("failed to list requested items", err)
	}
	return ids, nil
}

func (s *Service) ListIncoming(ctx context.Context, seller string) ([]*ContactRequest, error) {
	reqs, err := s.repo.ListBySeller(ctx, seller)
	if err != nil {
		return nil, apperr.Remote("failed to list incoming requests", err)
	}
	return reqs, nil
}

func (s *Service) ListOutgoing(ctx context.Context, buyer string) ([]*ContactRequest, error) {
	reqs, err := s.repo.ListByBuyer(ctx, buyer)
	if err != nil {
		return nil, apperr.Remote("failed to list outgoing requests", err)
	}
	return reqs, nil
}

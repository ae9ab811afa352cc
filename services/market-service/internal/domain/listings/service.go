package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bazaar/pkg/apperr"
)

// Service errors
var (
	ErrTitleRequired = apperr.New(apperr.ErrValidation, "title is required")
	ErrInvalidPrice  = apperr.New(apperr.ErrValidation, "price must be greater than 0")
	ErrItemNotFound  = apperr.New(apperr.ErrNotFound, "item not found")
	ErrUnauthorized  = apperr.New(apperr.ErrForbidden, "only the seller can perform this action")
)

// PostItemCommand represents the command to list a new item
type PostItemCommand struct {
	SellerUsername string
	Title          string
	Description    string
	Price          int64
	ImageURL       string
}

// SellerActionCommand identifies an item and the user acting on it
type SellerActionCommand struct {
	ItemID   uuid.UUID
	Username string
}

// Service implements the Buy/Sell board
type Service struct {
	repo Repository
}

// NewService creates a new listings service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PostItem lists a new unsold item
func (s *Service) PostItem(ctx context.Context, cmd PostItemCommand) (*Item, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if cmd.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	now := time.Now()
	item := &Item{
		ID:             uuid.New(),
		SellerUsername: cmd.SellerUsername,
		Title:          title,
		Description:    cmd.Description,
		Price:          cmd.Price,
		ImageURL:       cmd.ImageURL,
		IsSold:         false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, apperr.Remote("failed to create item", err)
	}

	return item, nil
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, apperr.Remote("failed to get item", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// GetItemsByIDs returns the listed items among itemIDs, keyed by id.
// Deleted items are simply absent.
func (s *Service) GetItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*Item, error) {
	found := make(map[uuid.UUID]*Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return found, nil
	}
	items, err := s.repo.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, apperr.Remote("failed to get items", err)
	}
	for _, item := range items {
		found[item.ID] = item
	}
	return found, nil
}

// ListAvailable returns every unsold item, newest first
func (s *Service) ListAvailable(ctx context.Context) ([]*Item, error) {
	items, err := s.repo.ListAvailableItems(ctx)
	if err != nil {
		return nil, apperr.Remote("failed to list items", err)
	}
	return items, nil
}

// ListSellerItems returns the seller's sold or unsold items
func (s *Service) ListSellerItems(ctx context.Context, seller string, sold bool) ([]*Item, error) {
	items, err := s.repo.ListItemsBySeller(ctx, seller, sold)
	if err != nil {
		return nil, apperr.Remote("failed to list seller items", err)
	}
	return items, nil
}

// MarkSold flags the item as sold. Marking a sold item again succeeds.
func (s *Service) MarkSold(ctx context.Context, cmd SellerActionCommand) (*Item, error) {
	item, err := s.GetItem(ctx, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	if !item.IsOwnedBy(cmd.Username) {
		return nil, ErrUnauthorized
	}

	if item.IsSold {
		return item, nil
	}

	if err := s.repo.MarkSold(ctx, cmd.ItemID); err != nil {
		return nil, apperr.Remote("failed to mark item sold", err)
	}

	item.IsSold = true
	item.UpdatedAt = time.Now()
	return item, nil
}

// DeleteItem removes the listing. Contact requests about it are kept.
func (s *Service) DeleteItem(ctx context.Context, cmd SellerActionCommand) error {
	item, err := s.GetItem(ctx, cmd.ItemID)
	if err != nil {
		return err
	}

	if !item.IsOwnedBy(cmd.Username) {
		return ErrUnauthorized
	}

	if err := s.repo.DeleteItem(ctx, cmd.ItemID); err != nil {
		return apperr.Remote("failed to delete item", err)
	}
	return nil
}

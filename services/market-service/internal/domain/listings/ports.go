package listings

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for item persistence
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error

	// GetItemByID returns nil, nil when the item does not exist
	GetItemByID(ctx context.Context, itemID uuid.UUID) (*Item, error)

	// GetItemsByIDs returns the items that still exist, in no particular order
	GetItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]*Item, error)

	// MarkSold flips is_sold; it is a no-op for items already sold
	MarkSold(ctx context.Context, itemID uuid.UUID) error

	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	// ListAvailableItems returns unsold items, newest first
	ListAvailableItems(ctx context.Context) ([]*Item, error)

	// ListItemsBySeller returns the seller's items with the given sold flag, newest first
	ListItemsBySeller(ctx context.Context, seller string, sold bool) ([]*Item, error)
}

package contacts

import (
	"context"

	"github.com/google/uuid"

	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
)

type Repository interface {
	CreateRequest(ctx context.Context, req *ContactRequest) error
	// ListRequestedItemIDs returns the distinct items the buyer has contacted
	ListRequestedItemIDs(ctx context.Context, buyer string) ([]uuid.UUID, error)
	// ListBySeller returns requests received by the seller, newest first
	ListBySeller(ctx context.Context, seller string) ([]*ContactRequest, error)
	// ListByBuyer returns requests sent by the buyer, newest first
	ListByBuyer(ctx context.Context, buyer string) ([]*ContactRequest, error)
}

// ItemFinder resolves the item a request is about.
type ItemFinder interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*listings.Item, error)
}

package contacts

import (
	"time"

	"github.com/google/uuid"
)

// ContactRequest discloses a buyer's contact details to the seller of an item.
// Requests are never deduplicated, revoked or expired.
type ContactRequest struct {
	ID             uuid.UUID `db:"id"`
	ItemID         uuid.UUID `db:"item_id"`
	SellerUsername string    `db:"seller_username"`
	BuyerUsername  string    `db:"buyer_username"`
	Phone          string    `db:"phone"`
	Facebook       string    `db:"facebook_handle"`
	CreatedAt      time.Time `db:"created_at"`
}

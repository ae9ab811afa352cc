package listings

import (
	"time"

	"github.com/google/uuid"
)

// Item is a fixed-price listing in the Buy/Sell board.
type Item struct {
	ID             uuid.UUID `db:"id"`
	SellerUsername string    `db:"seller_username"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Price          int64     `db:"price"` // cents
	ImageURL       string    `db:"image_url"`
	IsSold         bool      `db:"is_sold"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// IsOwnedBy checks if the item is owned by the given user
func (i *Item) IsOwnedBy(username string) bool {
	return i.SellerUsername == username
}

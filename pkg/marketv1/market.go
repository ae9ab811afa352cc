// Package marketv1 holds the wire messages of bazaar.market.v1.MarketService.
//
// Messages are plain structs carried by the JSON codec in codec.go, so the
// service and its clients share them without generated code.
package marketv1

import "time"

type User struct {
	Username  string    `json:"username"`
	Phone     string    `json:"phone,omitempty"`
	Facebook  string    `json:"facebook,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

type SignupResponse struct {
	User *User `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

// Item is a fixed-price listing. Prices are in cents.
type Item struct {
	ID             string    `json:"id"`
	SellerUsername string    `json:"seller_username"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Price          int64     `json:"price"`
	ImageURL       string    `json:"image_url,omitempty"`
	IsSold         bool      `json:"is_sold"`
	CreatedAt      time.Time `json:"created_at"`
}

type PostItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
}

type PostItemResponse struct {
	Item *Item `json:"item"`
}

type ListItemsRequest struct{}

type ListItemsResponse struct {
	Items []*Item `json:"items"`
}

type MarkItemSoldRequest struct {
	ItemID string `json:"item_id"`
}

type MarkItemSoldResponse struct {
	Item *Item `json:"item"`
}

type DeleteItemRequest struct {
	ItemID string `json:"item_id"`
}

type DeleteItemResponse struct{}

type ContactRequest struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	SellerUsername string    `json:"seller_username"`
	BuyerUsername  string    `json:"buyer_username"`
	Phone          string    `json:"phone,omitempty"`
	Facebook       string    `json:"facebook,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetContactInfoRequest returns the caller's own contact details, used to
// prefill a contact request.
type GetContactInfoRequest struct{}

type GetContactInfoResponse struct {
	Phone    string `json:"phone,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

type RequestContactRequest struct {
	ItemID   string `json:"item_id"`
	Phone    string `json:"phone,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

type RequestContactResponse struct {
	Request *ContactRequest `json:"request"`
}

type ListRequestedItemsRequest struct{}

type ListRequestedItemsResponse struct {
	ItemIDs []string `json:"item_ids"`
}

type Auction struct {
	ID             string    `json:"id"`
	SellerUsername string    `json:"seller_username"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	StartPrice     int64     `json:"start_price"`
	CurrentPrice   int64     `json:"current_price"`
	ImageURL       string    `json:"image_url,omitempty"`
	EndTime        time.Time `json:"end_time"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateAuctionRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	StartPrice      int64  `json:"start_price"`
	ImageURL        string `json:"image_url,omitempty"`
	DurationMinutes int32  `json:"duration_minutes"`
}

type CreateAuctionResponse struct {
	Auction *Auction `json:"auction"`
}

type ListActiveAuctionsRequest struct{}

type ListActiveAuctionsResponse struct {
	Auctions []*Auction `json:"auctions"`
}

type GetAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type GetAuctionResponse struct {
	Auction *Auction `json:"auction"`
}

type Bid struct {
	ID             string    `json:"id"`
	AuctionID      string    `json:"auction_id"`
	BidderUsername string    `json:"bidder_username"`
	Amount         int64     `json:"amount"`
	BidTime        time.Time `json:"bid_time"`
}

type ListBidsRequest struct {
	AuctionID string `json:"auction_id"`
}

type ListBidsResponse struct {
	Bids []*Bid `json:"bids"`
}

// PlaceBidRequest fences the bid on ExpectedPrice when set: the bid is
// rejected if the current price moved since the bidder last saw it.
type PlaceBidRequest struct {
	AuctionID     string `json:"auction_id"`
	Amount        int64  `json:"amount"`
	ExpectedPrice *int64 `json:"expected_price,omitempty"`
}

type PlaceBidResponse struct {
	Bid     *Bid     `json:"bid"`
	Auction *Auction `json:"auction"`
}

type GetProfileRequest struct{}

type ItemWithRequests struct {
	Item     *Item             `json:"item"`
	Requests []*ContactRequest `json:"requests"`
}

type AuctionBid struct {
	Auction         *Auction `json:"auction"`
	HighestBid      int64    `json:"highest_bid"`
	IsHighestBidder bool     `json:"is_highest_bidder"`
}

// OutgoingRequest pairs a sent contact request with its item. Item is nil
// when the seller has deleted the listing since.
type OutgoingRequest struct {
	Request *ContactRequest `json:"request"`
	Item    *Item           `json:"item,omitempty"`
}

type Profile struct {
	User             *User               `json:"user"`
	SoldItems        []*Item             `json:"sold_items"`
	ActiveItems      []*ItemWithRequests `json:"active_items"`
	BidAuctions      []*AuctionBid       `json:"bid_auctions"`
	OutgoingRequests []*OutgoingRequest  `json:"outgoing_requests"`
}

type GetProfileResponse struct {
	Profile *Profile `json:"profile"`
}

// WatchChangesRequest selects tables to watch. Empty means all.
type WatchChangesRequest struct {
	Tables []string `json:"tables,omitempty"`
}

// Change notifies that the row ID in Table changed. For bids, ID is the auction id.
type Change struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

package auctions

import (
	"fmt"

	"github.com/floroz/bazaar/pkg/apperr"
)

var (
	ErrTitleRequired     = apperr.New(apperr.ErrValidation, "title is required")
	ErrInvalidStartPrice = apperr.New(apperr.ErrValidation, "start price must be greater than 0")
	ErrInvalidDuration   = apperr.New(apperr.ErrValidation, "duration must be at least one minute")
	ErrAuctionNotFound   = apperr.New(apperr.ErrNotFound, "auction not found")

	ErrInvalidBidAmount = apperr.New(apperr.ErrValidation, "bid amount must be positive")
	ErrBidTooLow        = apperr.New(apperr.ErrValidation, "bid amount must be higher than current price")
	ErrAuctionEnded     = apperr.New(apperr.ErrValidation, "auction has ended")
	ErrSellerCannotBid  = apperr.New(apperr.ErrValidation, "seller cannot bid on their own auction")

	// ErrBidConflict is both a conflict and a validation failure: the
	// bidder must look at the new price and decide again.
	ErrBidConflict = fmt.Errorf("%w: %w: auction price changed, review the current price and bid again",
		apperr.ErrConflict, apperr.ErrValidation)
)

// BidRejectedError carries the price a rejected bidder should be shown.
type BidRejectedError struct {
	Reason       error
	CurrentPrice int64
}

func (e *BidRejectedError) Error() string {
	return fmt.Sprintf("%s (current price %d)", e.Reason, e.CurrentPrice)
}

func (e *BidRejectedError) Unwrap() error {
	return e.Reason
}

func rejectBid(reason error, currentPrice int64) error {
	return &BidRejectedError{Reason: reason, CurrentPrice: currentPrice}
}

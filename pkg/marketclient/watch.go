package marketclient

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/floroz/bazaar/pkg/marketv1"
)

// Watch streams change notifications for tables (all when empty) to
// onChange until ctx is cancelled or the stream fails. Changes sent while
// not connected are not replayed; re-fetch after reconnecting.
func (c *Client) Watch(ctx context.Context, onChange func(*marketv1.Change), tables ...string) error {
	stream, err := c.watchChanges.CallServerStream(ctx, connect.NewRequest(&marketv1.WatchChangesRequest{Tables: tables}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		onChange(stream.Msg())
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) && connect.CodeOf(err) != connect.CodeCanceled {
		return err
	}
	return nil
}

// SubscribeToBidChanges calls onChange with the auction id every time a
// bid is accepted anywhere. It blocks like Watch.
func (c *Client) SubscribeToBidChanges(ctx context.Context, onChange func(auctionID string)) error {
	return c.Watch(ctx, func(change *marketv1.Change) {
		onChange(change.ID)
	}, marketv1.TableBids)
}

// WatchBids re-fetches the bid history of auctionID whenever it changes
// and hands it to onBids. Fetch failures end the watch.
func (c *Client) WatchBids(ctx context.Context, auctionID string, onBids func([]*marketv1.Bid)) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	err := c.SubscribeToBidChanges(ctx, func(changed string) {
		if changed != auctionID {
			return
		}
		bids, err := c.ListBids(ctx, auctionID)
		if err != nil {
			cancel(err)
			return
		}
		onBids(bids)
	})
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

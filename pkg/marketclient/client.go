// Package marketclient is a typed client for MarketService that keeps the
// caller's login in a session.Session.
package marketclient

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/floroz/bazaar/pkg/auth"
	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/pkg/session"
)

type Client struct {
	session *session.Session

	signup             *connect.Client[marketv1.SignupRequest, marketv1.SignupResponse]
	login              *connect.Client[marketv1.LoginRequest, marketv1.LoginResponse]
	postItem           *connect.Client[marketv1.PostItemRequest, marketv1.PostItemResponse]
	listItems          *connect.Client[marketv1.ListItemsRequest, marketv1.ListItemsResponse]
	markItemSold       *connect.Client[marketv1.MarkItemSoldRequest, marketv1.MarkItemSoldResponse]
	deleteItem         *connect.Client[marketv1.DeleteItemRequest, marketv1.DeleteItemResponse]
	getContactInfo     *connect.Client[marketv1.GetContactInfoRequest, marketv1.GetContactInfoResponse]
	requestContact     *connect.Client[marketv1.RequestContactRequest, marketv1.RequestContactResponse]
	listRequestedItems *connect.Client[marketv1.ListRequestedItemsRequest, marketv1.ListRequestedItemsResponse]
	createAuction      *connect.Client[marketv1.CreateAuctionRequest, marketv1.CreateAuctionResponse]
	listActiveAuctions *connect.Client[marketv1.ListActiveAuctionsRequest, marketv1.ListActiveAuctionsResponse]
	getAuction         *connect.Client[marketv1.GetAuctionRequest, marketv1.GetAuctionResponse]
	listBids           *connect.Client[marketv1.ListBidsRequest, marketv1.ListBidsResponse]
	placeBid           *connect.Client[marketv1.PlaceBidRequest, marketv1.PlaceBidResponse]
	getProfile         *connect.Client[marketv1.GetProfileRequest, marketv1.GetProfileResponse]
	watchChanges       *connect.Client[marketv1.WatchChangesRequest, marketv1.Change]
}

// New creates a client for the service at baseURL with an anonymous session.
func New(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	s := session.New()
	opts = append([]connect.ClientOption{
		marketv1.WithJSON(),
		connect.WithInterceptors(&bearerInterceptor{session: s}),
	}, opts...)

	return &Client{
		session:            s,
		signup:             connect.NewClient[marketv1.SignupRequest, marketv1.SignupResponse](httpClient, baseURL+marketv1.SignupProcedure, opts...),
		login:              connect.NewClient[marketv1.LoginRequest, marketv1.LoginResponse](httpClient, baseURL+marketv1.LoginProcedure, opts...),
		postItem:           connect.NewClient[marketv1.PostItemRequest, marketv1.PostItemResponse](httpClient, baseURL+marketv1.PostItemProcedure, opts...),
		listItems:          connect.NewClient[marketv1.ListItemsRequest, marketv1.ListItemsResponse](httpClient, baseURL+marketv1.ListItemsProcedure, opts...),
		markItemSold:       connect.NewClient[marketv1.MarkItemSoldRequest, marketv1.MarkItemSoldResponse](httpClient, baseURL+marketv1.MarkItemSoldProcedure, opts...),
		deleteItem:         connect.NewClient[marketv1.DeleteItemRequest, marketv1.DeleteItemResponse](httpClient, baseURL+marketv1.DeleteItemProcedure, opts...),
		getContactInfo:     connect.NewClient[marketv1.GetContactInfoRequest, marketv1.GetContactInfoResponse](httpClient, baseURL+marketv1.GetContactInfoProcedure, opts...),
		requestContact:     connect.NewClient[marketv1.RequestContactRequest, marketv1.RequestContactResponse](httpClient, baseURL+marketv1.RequestContactProcedure, opts...),
		listRequestedItems: connect.NewClient[marketv1.ListRequestedItemsRequest, marketv1.ListRequestedItemsResponse](httpClient, baseURL+marketv1.ListRequestedItemsProcedure, opts...),
		createAuction:      connect.NewClient[marketv1.CreateAuctionRequest, marketv1.CreateAuctionResponse](httpClient, baseURL+marketv1.CreateAuctionProcedure, opts...),
		listActiveAuctions: connect.NewClient[marketv1.ListActiveAuctionsRequest, marketv1.ListActiveAuctionsResponse](httpClient, baseURL+marketv1.ListActiveAuctionsProcedure, opts...),
		getAuction:         connect.NewClient[marketv1.GetAuctionRequest, marketv1.GetAuctionResponse](httpClient, baseURL+marketv1.GetAuctionProcedure, opts...),
		listBids:           connect.NewClient[marketv1.ListBidsRequest, marketv1.ListBidsResponse](httpClient, baseURL+marketv1.ListBidsProcedure, opts...),
		placeBid:           connect.NewClient[marketv1.PlaceBidRequest, marketv1.PlaceBidResponse](httpClient, baseURL+marketv1.PlaceBidProcedure, opts...),
		getProfile:         connect.NewClient[marketv1.GetProfileRequest, marketv1.GetProfileResponse](httpClient, baseURL+marketv1.GetProfileProcedure, opts...),
		watchChanges:       connect.NewClient[marketv1.WatchChangesRequest, marketv1.Change](httpClient, baseURL+marketv1.WatchChangesProcedure, opts...),
	}
}

// Session is the login state shared by every call made through c.
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) Signup(ctx context.Context, req *marketv1.SignupRequest) (*marketv1.User, error) {
	res, err := c.signup.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg.User, nil
}

// Login authenticates the session on success.
func (c *Client) Login(ctx context.Context, username, password string) (*marketv1.User, error) {
	res, err := c.login.CallUnary(ctx, connect.NewRequest(&marketv1.LoginRequest{Username: username, Password: password}))
	if err != nil {
		return nil, err
	}
	c.session.Authenticate(res.Msg.User.Username, res.Msg.AccessToken, res.Msg.ExpiresAt)
	return res.Msg.User, nil
}

// Logout forgets the token. Tokens are not revoked server side.
func (c *Client) Logout() {
	c.session.Logout()
}

func (c *Client) PostItem(ctx context.Context, req *marketv1.PostItemRequest) (*marketv1.Item, error) {
	res, err := c.postItem.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg.Item, nil
}

func (c *Client) ListItems(ctx context.Context) ([]*marketv1.Item, error) {
	res, err := c.listItems.CallUnary(ctx, connect.NewRequest(&marketv1.ListItemsRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Items, nil
}

func (c *Client) MarkItemSold(ctx context.Context, itemID string) (*marketv1.Item, error) {
	res, err := c.markItemSold.CallUnary(ctx, connect.NewRequest(&marketv1.MarkItemSoldRequest{ItemID: itemID}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Item, nil
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	_, err := c.deleteItem.CallUnary(ctx, connect.NewRequest(&marketv1.DeleteItemRequest{ItemID: itemID}))
	return err
}

// ContactInfo returns the caller's phone and facebook handle.
func (c *Client) ContactInfo(ctx context.Context) (*marketv1.GetContactInfoResponse, error) {
	res, err := c.getContactInfo.CallUnary(ctx, connect.NewRequest(&marketv1.GetContactInfoRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) RequestContact(ctx context.Context, req *marketv1.RequestContactRequest) (*marketv1.ContactRequest, error) {
	res, err := c.requestContact.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg.Request, nil
}

func (c *Client) ListRequestedItems(ctx context.Context) ([]string, error) {
	res, err := c.listRequestedItems.CallUnary(ctx, connect.NewRequest(&marketv1.ListRequestedItemsRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.ItemIDs, nil
}

func (c *Client) CreateAuction(ctx context.Context, req *marketv1.CreateAuctionRequest) (*marketv1.Auction, error) {
	res, err := c.createAuction.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg.Auction, nil
}

func (c *Client) ListActiveAuctions(ctx context.Context) ([]*marketv1.Auction, error) {
	res, err := c.listActiveAuctions.CallUnary(ctx, connect.NewRequest(&marketv1.ListActiveAuctionsRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Auctions, nil
}

func (c *Client) GetAuction(ctx context.Context, auctionID string) (*marketv1.Auction, error) {
	res, err := c.getAuction.CallUnary(ctx, connect.NewRequest(&marketv1.GetAuctionRequest{AuctionID: auctionID}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Auction, nil
}

func (c *Client) ListBids(ctx context.Context, auctionID string) ([]*marketv1.Bid, error) {
	res, err := c.listBids.CallUnary(ctx, connect.NewRequest(&marketv1.ListBidsRequest{AuctionID: auctionID}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Bids, nil
}

// PlaceBid bids amount. When expectedPrice is set the bid only lands if
// the price is still the one the caller saw; see CurrentPrice for the
// price to show after a rejection.
func (c *Client) PlaceBid(ctx context.Context, auctionID string, amount int64, expectedPrice *int64) (*marketv1.PlaceBidResponse, error) {
	res, err := c.placeBid.CallUnary(ctx, connect.NewRequest(&marketv1.PlaceBidRequest{
		AuctionID:     auctionID,
		Amount:        amount,
		ExpectedPrice: expectedPrice,
	}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) GetProfile(ctx context.Context) (*marketv1.Profile, error) {
	res, err := c.getProfile.CallUnary(ctx, connect.NewRequest(&marketv1.GetProfileRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Profile, nil
}

// CurrentPrice extracts the auction price attached to a rejected bid.
func CurrentPrice(err error) (int64, bool) {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return 0, false
	}
	for _, detail := range cerr.Details() {
		msg, valueErr := detail.Value()
		if valueErr != nil {
			continue
		}
		s, ok := msg.(*structpb.Struct)
		if !ok {
			continue
		}
		if v, ok := s.GetFields()[marketv1.DetailCurrentPrice]; ok {
			return int64(v.GetNumberValue()), true
		}
	}
	return 0, false
}

type bearerInterceptor struct {
	session *session.Session
}

func (i *bearerInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			auth.SetBearer(req.Header(), i.session.Token())
		}
		return next(ctx, req)
	}
}

func (i *bearerInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		auth.SetBearer(conn.RequestHeader(), i.session.Token())
		return conn
	}
}

func (i *bearerInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

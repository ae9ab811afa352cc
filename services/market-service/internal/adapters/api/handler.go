package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/pkg/session"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
	"github.com/floroz/bazaar/services/market-service/internal/domain/contacts"
	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
	"github.com/floroz/bazaar/services/market-service/internal/domain/profile"
	"github.com/floroz/bazaar/services/market-service/internal/domain/users"
)

// Services groups the domain services behind the API.
type Services struct {
	Users    *users.Service
	Listings *listings.Service
	Contacts *contacts.Service
	Auctions *auctions.AuctionService
	Profile  *profile.Service
	Changes  changes.Subscriber
}

type MarketServiceHandler struct {
	svc    Services
	logger *slog.Logger
}

func NewMarketServiceHandler(svc Services, logger *slog.Logger) *MarketServiceHandler {
	return &MarketServiceHandler{svc: svc, logger: logger}
}

// NewMarketServiceMux registers every procedure and returns the path prefix
// to mount the handler under.
func NewMarketServiceMux(h *MarketServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{marketv1.WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(marketv1.SignupProcedure, connect.NewUnaryHandler(marketv1.SignupProcedure, h.Signup, opts...))
	mux.Handle(marketv1.LoginProcedure, connect.NewUnaryHandler(marketv1.LoginProcedure, h.Login, opts...))
	mux.Handle(marketv1.PostItemProcedure, connect.NewUnaryHandler(marketv1.PostItemProcedure, h.PostItem, opts...))
	mux.Handle(marketv1.ListItemsProcedure, connect.NewUnaryHandler(marketv1.ListItemsProcedure, h.ListItems, opts...))
	mux.Handle(marketv1.MarkItemSoldProcedure, connect.NewUnaryHandler(marketv1.MarkItemSoldProcedure, h.MarkItemSold, opts...))
	mux.Handle(marketv1.DeleteItemProcedure, connect.NewUnaryHandler(marketv1.DeleteItemProcedure, h.DeleteItem, opts...))
	mux.Handle(marketv1.GetContactInfoProcedure, connect.NewUnaryHandler(marketv1.GetContactInfoProcedure, h.GetContactInfo, opts...))
	mux.Handle(marketv1.RequestContactProcedure, connect.NewUnaryHandler(marketv1.RequestContactProcedure, h.RequestContact, opts...))
	mux.Handle(marketv1.ListRequestedItemsProcedure, connect.NewUnaryHandler(marketv1.ListRequestedItemsProcedure, h.ListRequestedItems, opts...))
	mux.Handle(marketv1.CreateAuctionProcedure, connect.NewUnaryHandler(marketv1.CreateAuctionProcedure, h.CreateAuction, opts...))
	mux.Handle(marketv1.ListActiveAuctionsProcedure, connect.NewUnaryHandler(marketv1.ListActiveAuctionsProcedure, h.ListActiveAuctions, opts...))
	mux.Handle(marketv1.GetAuctionProcedure, connect.NewUnaryHandler(marketv1.GetAuctionProcedure, h.GetAuction, opts...))
	mux.Handle(marketv1.ListBidsProcedure, connect.NewUnaryHandler(marketv1.ListBidsProcedure, h.ListBids, opts...))
	mux.Handle(marketv1.PlaceBidProcedure, connect.NewUnaryHandler(marketv1.PlaceBidProcedure, h.PlaceBid, opts...))
	mux.Handle(marketv1.GetProfileProcedure, connect.NewUnaryHandler(marketv1.GetProfileProcedure, h.GetProfile, opts...))
	mux.Handle(marketv1.WatchChangesProcedure, connect.NewServerStreamHandler(marketv1.WatchChangesProcedure, h.WatchChanges, opts...))

	return "/" + marketv1.ServiceName + "/", mux
}

// fail logs server-side faults once and converts err for the wire.
func (h *MarketServiceHandler) fail(procedure string, err error) error {
	cerr := toConnectError(err)
	switch cerr.Code() {
	case connect.CodeInternal, connect.CodeUnavailable:
		h.logger.Error("Request failed", "procedure", procedure, "error", err)
	default:
		h.logger.Debug("Request rejected", "procedure", procedure, "code", cerr.Code().String(), "error", err)
	}
	return cerr
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid "+field))
	}
	return id, nil
}

func (h *MarketServiceHandler) Signup(
	ctx context.Context,
	req *connect.Request[marketv1.SignupRequest],
) (*connect.Response[marketv1.SignupResponse], error) {
	user, err := h.svc.Users.Signup(ctx, users.SignupCommand{
		Username: req.Msg.Username,
		Password: req.Msg.Password,
		Phone:    req.Msg.Phone,
		Facebook: req.Msg.Facebook,
	})
	if err != nil {
		return nil, h.fail(marketv1.SignupProcedure, err)
	}
	return connect.NewResponse(&marketv1.SignupResponse{User: mapUser(user)}), nil
}

func (h *MarketServiceHandler) Login(
	ctx context.Context,
	req *connect.Request[marketv1.LoginRequest],
) (*connect.Response[marketv1.LoginResponse], error) {
	result, err := h.svc.Users.Login(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		return nil, h.fail(marketv1.LoginProcedure, err)
	}
	return connect.NewResponse(&marketv1.LoginResponse{
		AccessToken: result.Token.Token,
		ExpiresAt:   result.Token.ExpiresAt,
		User:        mapUser(result.User),
	}), nil
}

func (h *MarketServiceHandler) PostItem(
	ctx context.Context,
	req *connect.Request[marketv1.PostItemRequest],
) (*connect.Response[marketv1.PostItemResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.PostItemProcedure, err)
	}

	item, err := h.svc.Listings.PostItem(ctx, listings.PostItemCommand{
		SellerUsername: username,
		Title:          req.Msg.Title,
		Description:    req.Msg.Description,
		Price:          req.Msg.Price,
		ImageURL:       req.Msg.ImageURL,
	})
	if err != nil {
		return nil, h.fail(marketv1.PostItemProcedure, err)
	}
	return connect.NewResponse(&marketv1.PostItemResponse{Item: mapItem(item)}), nil
}

func (h *MarketServiceHandler) ListItems(
	ctx context.Context,
	_ *connect.Request[marketv1.ListItemsRequest],
) (*connect.Response[marketv1.ListItemsResponse], error) {
	items, err := h.svc.Listings.ListAvailable(ctx)
	if err != nil {
		return nil, h.fail(marketv1.ListItemsProcedure, err)
	}
	return connect.NewResponse(&marketv1.ListItemsResponse{Items: mapItems(items)}), nil
}

func (h *MarketServiceHandler) MarkItemSold(
	ctx context.Context,
	req *connect.Request[marketv1.MarkItemSoldRequest],
) (*connect.Response[marketv1.MarkItemSoldResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.MarkItemSoldProcedure, err)
	}
	itemID, err := parseID("item_id", req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	item, err := h.svc.Listings.MarkSold(ctx, listings.SellerActionCommand{ItemID: itemID, Username: username})
	if err != nil {
		return nil, h.fail(marketv1.MarkItemSoldProcedure, err)
	}
	return connect.NewResponse(&marketv1.MarkItemSoldResponse{Item: mapItem(item)}), nil
}

func (h *MarketServiceHandler) DeleteItem(
	ctx context.Context,
	req *connect.Request[marketv1.DeleteItemRequest],
) (*connect.Response[marketv1.DeleteItemResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.DeleteItemProcedure, err)
	}
	itemID, err := parseID("item_id", req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	if err := h.svc.Listings.DeleteItem(ctx, listings.SellerActionCommand{ItemID: itemID, Username: username}); err != nil {
		return nil, h.fail(marketv1.DeleteItemProcedure, err)
	}
	return connect.NewResponse(&marketv1.DeleteItemResponse{}), nil
}

func (h *MarketServiceHandler) GetContactInfo(
	ctx context.Context,
	_ *connect.Request[marketv1.GetContactInfoRequest],
) (*connect.Response[marketv1.GetContactInfoResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.GetContactInfoProcedure, err)
	}

	info, err := h.svc.Users.GetContactInfo(ctx, username)
	if err != nil {
		return nil, h.fail(marketv1.GetContactInfoProcedure, err)
	}
	return connect.NewResponse(&marketv1.GetContactInfoResponse{Phone: info.Phone, Facebook: info.Facebook}), nil
}

func (h *MarketServiceHandler) RequestContact(
	ctx context.Context,
	req *connect.Request[marketv1.RequestContactRequest],
) (*connect.Response[marketv1.RequestContactResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.RequestContactProcedure, err)
	}
	itemID, err := parseID("item_id", req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	contact, err := h.svc.Contacts.RequestContact(ctx, contacts.RequestContactCommand{
		ItemID:        itemID,
		BuyerUsername: username,
		Phone:         req.Msg.Phone,
		Facebook:      req.Msg.Facebook,
	})
	if err != nil {
		return nil, h.fail(marketv1.RequestContactProcedure, err)
	}
	return connect.NewResponse(&marketv1.RequestContactResponse{Request: mapContactRequest(contact)}), nil
}

func (h *MarketServiceHandler) ListRequestedItems(
	ctx context.Context,
	_ *connect.Request[marketv1.ListRequestedItemsRequest],
) (*connect.Response[marketv1.ListRequestedItemsResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.ListRequestedItemsProcedure, err)
	}

	ids, err := h.svc.Contacts.ListRequestedItemIDs(ctx, username)
	if err != nil {
		return nil, h.fail(marketv1.ListRequestedItemsProcedure, err)
	}
	return connect.NewResponse(&marketv1.ListRequestedItemsResponse{ItemIDs: idStrings(ids)}), nil
}

func (h *MarketServiceHandler) GetProfile(
	ctx context.Context,
	_ *connect.Request[marketv1.GetProfileRequest],
) (*connect.Response[marketv1.GetProfileResponse], error) {
	username, err := session.Require(ctx)
	if err != nil {
		return nil, h.fail(marketv1.GetProfileProcedure, err)
	}

	p, err := h.svc.Profile.GetProfile(ctx, username)
	if err != nil {
		return nil, h.fail(marketv1.GetProfileProcedure, err)
	}
	return connect.NewResponse(&marketv1.GetProfileResponse{Profile: mapProfile(p)}), nil
}

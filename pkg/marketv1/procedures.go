package marketv1

const ServiceName = "bazaar.market.v1.MarketService"

const (
	SignupProcedure             = "/" + ServiceName + "/Signup"
	LoginProcedure              = "/" + ServiceName + "/Login"
	PostItemProcedure           = "/" + ServiceName + "/PostItem"
	ListItemsProcedure          = "/" + ServiceName + "/ListItems"
	MarkItemSoldProcedure       = "/" + ServiceName + "/MarkItemSold"
	DeleteItemProcedure         = "/" + ServiceName + "/DeleteItem"
	GetContactInfoProcedure     = "/" + ServiceName + "/GetContactInfo"
	RequestContactProcedure     = "/" + ServiceName + "/RequestContact"
	ListRequestedItemsProcedure = "/" + ServiceName + "/ListRequestedItems"
	CreateAuctionProcedure      = "/" + ServiceName + "/CreateAuction"
	ListActiveAuctionsProcedure = "/" + ServiceName + "/ListActiveAuctions"
	GetAuctionProcedure         = "/" + ServiceName + "/GetAuction"
	ListBidsProcedure           = "/" + ServiceName + "/ListBids"
	PlaceBidProcedure           = "/" + ServiceName + "/PlaceBid"
	GetProfileProcedure         = "/" + ServiceName + "/GetProfile"
	WatchChangesProcedure       = "/" + ServiceName + "/WatchChanges"
)

// PublicProcedures may be called without a bearer token.
var PublicProcedures = []string{
	SignupProcedure,
	LoginProcedure,
	ListItemsProcedure,
	ListActiveAuctionsProcedure,
	GetAuctionProcedure,
	ListBidsProcedure,
	WatchChangesProcedure,
}

// Change tables.
const (
	TableBids     = "bids"
	TableAuctions = "auctions"
)

// Error detail keys carried in a google.protobuf.Struct.
const (
	DetailCurrentPrice = "current_price"
)

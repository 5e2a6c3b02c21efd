package auction

import (
	"time"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusSold      Status = "sold"
	StatusCanceled  Status = "canceled"
	StatusNoBids    Status = "no_bids"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusEnded, StatusSold, StatusCanceled, StatusNoBids:
		return true
	}
	return false
}

const (
	DefaultBidIncrement     = float64(5)
	DefaultExtensionMinutes = int32(5)
	DefaultCurrency         = "USD"
)

type Auction struct {
	Id            string   `json:"id" bson:"id"`
	ListingId     string   `json:"listingId" bson:"listingId"`
	SellerId      string   `json:"sellerId" bson:"sellerId"`
	StartingPrice float64  `json:"startingPrice" bson:"startingPrice"`
	ReservePrice  *float64 `json:"reservePrice,omitempty" bson:"reservePrice"`
	BuyNowPrice   *float64 `json:"buyNowPrice,omitempty" bson:"buyNowPrice"`
	BidIncrement  float64  `json:"bidIncrement" bson:"bidIncrement"`
	Currency      string   `json:"currency" bson:"currency"`
	StartsAt      time.Time `json:"startsAt" bson:"startsAt"`
	// EndsAt only ever moves forward, via the anti-sniping extension
	EndsAt           time.Time  `json:"endsAt" bson:"endsAt"`
	ExtensionMinutes int32      `json:"extensionMinutes" bson:"extensionMinutes"`
	CurrentBid       *float64   `json:"currentBid,omitempty" bson:"currentBid"`
	CurrentBidderId  *string    `json:"currentBidderId,omitempty" bson:"currentBidderId"`
	BidCount         int32      `json:"bidCount" bson:"bidCount"`
	Status           Status     `json:"status" bson:"status"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt"`
}

type CreateParams struct {
	ListingId        string    `json:"listingId" validate:"required"`
	SellerId         string    `json:"sellerId" validate:"required"`
	StartingPrice    float64   `json:"startingPrice" validate:"gt=0"`
	ReservePrice     *float64  `json:"reservePrice"`
	BuyNowPrice      *float64  `json:"buyNowPrice"`
	BidIncrement     *float64  `json:"bidIncrement"`
	Currency         string    `json:"currency"`
	StartsAt         time.Time `json:"startsAt" validate:"required"`
	DurationDays     int32     `json:"durationDays" validate:"gt=0"`
	ExtensionMinutes *int32    `json:"extensionMinutes"`
}

type PlaceBidParams struct {
	AuctionId string   `json:"auctionId" validate:"required"`
	BidderId  string   `json:"bidderId" validate:"required"`
	Amount    float64  `json:"amount"`
	MaxBid    *float64 `json:"maxBid"`
}

type Patchable struct {
	Status          *Status    `json:"-" bson:"status,omitempty"`
	EndsAt          *time.Time `json:"-" bson:"endsAt,omitempty"`
	CurrentBid      *float64   `json:"-" bson:"currentBid,omitempty"`
	CurrentBidderId *string    `json:"-" bson:"currentBidderId,omitempty"`
	BidCount        *int32     `json:"-" bson:"bidCount,omitempty"`
	UpdatedAt       *time.Time `json:"-" bson:"updatedAt,omitempty"`
}

// SweepReport counts the transitions one ProcessAuctionEndings pass made.
type SweepReport struct {
	Started int `json:"started"`
	Sold    int `json:"sold"`
	Ended   int `json:"ended"`
	NoBids  int `json:"noBids"`
}

type FindAllOptions struct {
	SortBy       *string
	SortDir      *domain.SortDir
	Offset       *int32
	Limit        *int32
	Status       *Status
	Statuses     []Status
	ListingId    *string
	SellerId     *string
	StartsBefore *time.Time
	EndsBefore   *time.Time
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}

	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func WithSort(sortby string, sortdir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &sortby
		options.SortDir = &sortdir
		return nil
	}
}

func WithPagination(offset int32, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithStatus(status Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Status = &status
		return nil
	}
}

func WithStatuses(statuses []Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Statuses = statuses
		return nil
	}
}

func WithListingId(listingId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ListingId = &listingId
		return nil
	}
}

func WithSellerId(sellerId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SellerId = &sellerId
		return nil
	}
}

func WithStartsBefore(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.StartsBefore = &t
		return nil
	}
}

func WithEndsBefore(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.EndsBefore = &t
		return nil
	}
}

type Repo interface {
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Count(c ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	FindOne(c ctx.Ctx, id string) (*Auction, error)
	Create(c ctx.Ctx, a *Auction) error
	Patch(c ctx.Ctx, id string, value Patchable) error
}

type Usecase interface {
	Create(c ctx.Ctx, params CreateParams) (*Auction, error)
	FindOne(c ctx.Ctx, id string) (*Auction, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	PlaceBid(c ctx.Ctx, params PlaceBidParams) (*Bid, error)
	Cancel(c ctx.Ctx, id string) (*Auction, error)
	ListBids(c ctx.Ctx, auctionId string) ([]*Bid, error)
	// ProcessAuctionEndings starts due scheduled auctions and settles due
	// active ones. Idempotent, meant for a periodic external scheduler.
	ProcessAuctionEndings(c ctx.Ctx) (*SweepReport, error)
}

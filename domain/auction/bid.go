package auction

import (
	"time"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
)

// Bid is an immutable record of one accepted bid. Only the IsWinning flag
// flips, when a later bid supersedes it.
type Bid struct {
	Id        string    `json:"id" bson:"id"`
	AuctionId string    `json:"auctionId" bson:"auctionId"`
	BidderId  string    `json:"bidderId" bson:"bidderId"`
	Amount    float64   `json:"amount" bson:"amount"`
	MaxBid    *float64  `json:"maxBid,omitempty" bson:"maxBid"`
	IsWinning bool      `json:"isWinning" bson:"isWinning"`
	PlacedAt  time.Time `json:"placedAt" bson:"placedAt"`
}

type PatchableBid struct {
	IsWinning *bool `json:"-" bson:"isWinning,omitempty"`
}

type SelectBidOptions struct {
	SortBy    *string
	SortDir   *domain.SortDir
	Offset    *int32
	Limit     *int32
	AuctionId *string
	BidderId  *string
	IsWinning *bool
}

type SelectBidOptionsFunc func(*SelectBidOptions) error

func GetSelectBidOptions(opts ...SelectBidOptionsFunc) (SelectBidOptions, error) {
	res := SelectBidOptions{}

	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func BidWithSort(sortby string, sortdir domain.SortDir) SelectBidOptionsFunc {
	return func(options *SelectBidOptions) error {
		options.SortBy = &sortby
		options.SortDir = &sortdir
		return nil
	}
}

func BidWithPagination(offset int32, limit int32) SelectBidOptionsFunc {
	return func(options *SelectBidOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func BidWithAuctionId(auctionId string) SelectBidOptionsFunc {
	return func(options *SelectBidOptions) error {
		options.AuctionId = &auctionId
		return nil
	}
}

func BidWithBidderId(bidderId string) SelectBidOptionsFunc {
	return func(options *SelectBidOptions) error {
		options.BidderId = &bidderId
		return nil
	}
}

func BidWithIsWinning(isWinning bool) SelectBidOptionsFunc {
	return func(options *SelectBidOptions) error {
		options.IsWinning = &isWinning
		return nil
	}
}

type BidRepo interface {
	FindAll(c ctx.Ctx, opts ...SelectBidOptionsFunc) ([]*Bid, error)
	Count(c ctx.Ctx, opts ...SelectBidOptionsFunc) (int, error)
	FindOne(c ctx.Ctx, opts ...SelectBidOptionsFunc) (*Bid, error)
	Create(c ctx.Ctx, b *Bid) error
	Patch(c ctx.Ctx, id string, value PatchableBid) error
}

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	bCtx "github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/ptr"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
)

type inmemTestSuite struct {
	suite.Suite

	repo auction.Repo
	bids auction.BidRepo
}

func Test(t *testing.T) {
	suite.Run(t, new(inmemTestSuite))
}

func (s *inmemTestSuite) SetupTest() {
	s.repo = NewInmem()
	s.bids = NewInmemBid()
}

func (s *inmemTestSuite) seed(id string, mutate func(*auction.Auction)) *auction.Auction {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &auction.Auction{
		Id:               id,
		ListingId:        "listing-" + id,
		SellerId:         "seller-1",
		StartingPrice:    100,
		BidIncrement:     auction.DefaultBidIncrement,
		Currency:         auction.DefaultCurrency,
		StartsAt:         base,
		EndsAt:           base.AddDate(0, 0, 7),
		ExtensionMinutes: auction.DefaultExtensionMinutes,
		Status:           auction.StatusScheduled,
		CreatedAt:        base,
		UpdatedAt:        base,
	}
	if mutate != nil {
		mutate(a)
	}
	s.Require().NoError(s.repo.Create(bCtx.Background(), a))
	return a
}

func (s *inmemTestSuite) seedBid(id, auctionId string, amount float64, mutate func(*auction.Bid)) *auction.Bid {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &auction.Bid{
		Id:        id,
		AuctionId: auctionId,
		BidderId:  "buyer-" + id,
		Amount:    amount,
		PlacedAt:  base,
	}
	if mutate != nil {
		mutate(b)
	}
	s.Require().NoError(s.bids.Create(bCtx.Background(), b))
	return b
}

func (s *inmemTestSuite) TestCreateAndFindOne() {
	c := bCtx.Background()

	a := s.seed("a", func(a *auction.Auction) { a.ReservePrice = ptr.Float64(200) })

	got, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal(float64(200), *got.ReservePrice)

	// stored entity is isolated from the returned copy
	*got.ReservePrice = 1
	again, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal(float64(200), *again.ReservePrice)

	s.Require().Equal(domain.ErrConflict, s.repo.Create(c, a))

	_, err = s.repo.FindOne(c, "missing")
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *inmemTestSuite) TestFindAllFilters() {
	c := bCtx.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.seed("a", nil)
	s.seed("b", func(a *auction.Auction) {
		a.Status = auction.StatusActive
		a.SellerId = "seller-2"
	})
	s.seed("c", func(a *auction.Auction) {
		a.Status = auction.StatusSold
		a.StartsAt = base.Add(-time.Hour)
		a.EndsAt = base.Add(time.Hour)
	})

	testcases := []struct {
		name string
		opts []auction.FindAllOptionsFunc
		want []string
	}{
		{
			name: "by status",
			opts: []auction.FindAllOptionsFunc{auction.WithStatus(auction.StatusActive)},
			want: []string{"b"},
		},
		{
			name: "by statuses",
			opts: []auction.FindAllOptionsFunc{
				auction.WithStatuses([]auction.Status{auction.StatusScheduled, auction.StatusActive}),
			},
			want: []string{"a", "b"},
		},
		{
			name: "by listing",
			opts: []auction.FindAllOptionsFunc{auction.WithListingId("listing-a")},
			want: []string{"a"},
		},
		{
			name: "by seller",
			opts: []auction.FindAllOptionsFunc{auction.WithSellerId("seller-2")},
			want: []string{"b"},
		},
		{
			name: "starts before is an inclusive cutoff",
			opts: []auction.FindAllOptionsFunc{auction.WithStartsBefore(base)},
			want: []string{"a", "b", "c"},
		},
		{
			name: "ends before",
			opts: []auction.FindAllOptionsFunc{auction.WithEndsBefore(base.Add(time.Hour))},
			want: []string{"c"},
		},
	}

	for _, tc := range testcases {
		s.T().Run(tc.name, func(t *testing.T) {
			res, err := s.repo.FindAll(c, tc.opts...)
			s.Require().NoError(err)
			ids := []string{}
			for _, a := range res {
				ids = append(ids, a.Id)
			}
			s.Require().Equal(tc.want, ids)

			count, err := s.repo.Count(c, tc.opts...)
			s.Require().NoError(err)
			s.Require().Equal(len(tc.want), count)
		})
	}
}

func (s *inmemTestSuite) TestPatch() {
	c := bCtx.Background()

	a := s.seed("a", nil)

	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	endsAt := a.EndsAt.Add(5 * time.Minute)
	status := auction.StatusActive
	err := s.repo.Patch(c, "a", auction.Patchable{
		Status:          &status,
		EndsAt:          &endsAt,
		CurrentBid:      ptr.Float64(100),
		CurrentBidderId: ptr.String("buyer-1"),
		BidCount:        ptr.Int32(1),
		UpdatedAt:       &now,
	})
	s.Require().NoError(err)

	got, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal(auction.StatusActive, got.Status)
	s.Require().Equal(endsAt, got.EndsAt)
	s.Require().Equal(float64(100), *got.CurrentBid)
	s.Require().Equal("buyer-1", *got.CurrentBidderId)
	s.Require().Equal(int32(1), got.BidCount)
	// untouched fields stay
	s.Require().Equal(float64(100), got.StartingPrice)

	err = s.repo.Patch(c, "missing", auction.Patchable{Status: &status})
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *inmemTestSuite) TestBidFilters() {
	c := bCtx.Background()

	s.seedBid("1", "auction-a", 100, func(b *auction.Bid) {
		b.PlacedAt = b.PlacedAt.Add(-time.Minute)
	})
	s.seedBid("2", "auction-a", 110, func(b *auction.Bid) { b.IsWinning = true })
	s.seedBid("3", "auction-b", 50, nil)

	res, err := s.bids.FindAll(c, auction.BidWithAuctionId("auction-a"))
	s.Require().NoError(err)
	s.Require().Len(res, 2)

	winning, err := s.bids.FindOne(c,
		auction.BidWithAuctionId("auction-a"),
		auction.BidWithIsWinning(true))
	s.Require().NoError(err)
	s.Require().Equal("2", winning.Id)

	byBidder, err := s.bids.FindAll(c, auction.BidWithBidderId("buyer-3"))
	s.Require().NoError(err)
	s.Require().Len(byBidder, 1)

	count, err := s.bids.Count(c, auction.BidWithAuctionId("auction-a"))
	s.Require().NoError(err)
	s.Require().Equal(2, count)

	// newest first for bid history reads
	desc, err := s.bids.FindAll(c,
		auction.BidWithAuctionId("auction-a"),
		auction.BidWithSort("placedAt", domain.SortDirDesc))
	s.Require().NoError(err)
	s.Require().Equal("2", desc[0].Id)

	_, err = s.bids.FindOne(c, auction.BidWithAuctionId("auction-c"))
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *inmemTestSuite) TestBidPatchFlipsWinning() {
	c := bCtx.Background()

	s.seedBid("1", "auction-a", 100, func(b *auction.Bid) { b.IsWinning = true })

	s.Require().NoError(s.bids.Patch(c, "1", auction.PatchableBid{IsWinning: ptr.Bool(false)}))

	got, err := s.bids.FindAll(c, auction.BidWithAuctionId("auction-a"))
	s.Require().NoError(err)
	s.Require().False(got[0].IsWinning)

	err = s.bids.Patch(c, "missing", auction.PatchableBid{IsWinning: ptr.Bool(false)})
	s.Require().Equal(domain.ErrNotFound, err)
}

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	bCtx "github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/ptr"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
)

type inmemTestSuite struct {
	suite.Suite

	repo listing.Repo
}

func Test(t *testing.T) {
	suite.Run(t, new(inmemTestSuite))
}

func (s *inmemTestSuite) SetupTest() {
	s.repo = NewInmem()
}

func (s *inmemTestSuite) seed(id string, mutate func(*listing.Listing)) *listing.Listing {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := &listing.Listing{
		Id:        id,
		DesignId:  "design-" + id,
		SellerId:  "seller-1",
		Title:     "Listing " + id,
		Category:  listing.CategoryApparel,
		Pricing:   listing.Pricing{BasePrice: 100, Currency: "USD"},
		Status:    listing.StatusDraft,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if mutate != nil {
		mutate(l)
	}
	s.Require().NoError(s.repo.Create(bCtx.Background(), l))
	return l
}

func (s *inmemTestSuite) TestCreateAndFindOne() {
	c := bCtx.Background()

	l := s.seed("a", func(l *listing.Listing) { l.Tags = []string{"floral"} })

	got, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal(l.Title, got.Title)

	// stored entity is isolated from the returned copy
	got.Tags[0] = "striped"
	again, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal([]string{"floral"}, again.Tags)

	s.Require().Equal(domain.ErrConflict, s.repo.Create(c, l))

	_, err = s.repo.FindOne(c, "missing")
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *inmemTestSuite) TestFindAllFilters() {
	c := bCtx.Background()

	s.seed("a", func(l *listing.Listing) { l.Status = listing.StatusActive })
	s.seed("b", func(l *listing.Listing) {
		l.Status = listing.StatusActive
		l.SellerId = "seller-2"
		l.IsFeatured = true
	})
	s.seed("c", func(l *listing.Listing) { l.Category = listing.CategoryTextile })

	testcases := []struct {
		name string
		opts []listing.FindAllOptionsFunc
		want []string
	}{
		{
			name: "by status",
			opts: []listing.FindAllOptionsFunc{listing.WithStatus(listing.StatusActive)},
			want: []string{"a", "b"},
		},
		{
			name: "by seller",
			opts: []listing.FindAllOptionsFunc{listing.WithSellerId("seller-2")},
			want: []string{"b"},
		},
		{
			name: "by design",
			opts: []listing.FindAllOptionsFunc{listing.WithDesignId("design-c")},
			want: []string{"c"},
		},
		{
			name: "by category",
			opts: []listing.FindAllOptionsFunc{listing.WithCategory(listing.CategoryTextile)},
			want: []string{"c"},
		},
		{
			name: "by featured",
			opts: []listing.FindAllOptionsFunc{listing.WithIsFeatured(true)},
			want: []string{"b"},
		},
		{
			name: "by ids",
			opts: []listing.FindAllOptionsFunc{listing.WithIds([]string{"a", "c"})},
			want: []string{"a", "c"},
		},
		{
			name: "conjunction",
			opts: []listing.FindAllOptionsFunc{
				listing.WithStatus(listing.StatusActive),
				listing.WithSellerId("seller-1"),
			},
			want: []string{"a"},
		},
	}

	for _, tc := range testcases {
		s.T().Run(tc.name, func(t *testing.T) {
			res, err := s.repo.FindAll(c, tc.opts...)
			s.Require().NoError(err)
			ids := []string{}
			for _, l := range res {
				ids = append(ids, l.Id)
			}
			s.Require().Equal(tc.want, ids)

			count, err := s.repo.Count(c, tc.opts...)
			s.Require().NoError(err)
			s.Require().Equal(len(tc.want), count)
		})
	}
}

func (s *inmemTestSuite) TestFindAllSortAndPagination() {
	c := bCtx.Background()

	s.seed("a", func(l *listing.Listing) { l.Pricing.BasePrice = 300 })
	s.seed("b", func(l *listing.Listing) { l.Pricing.BasePrice = 50 })
	s.seed("c", func(l *listing.Listing) { l.Pricing.BasePrice = 150 })

	res, err := s.repo.FindAll(c, listing.WithSort("basePrice", domain.SortDirAsc))
	s.Require().NoError(err)
	s.Require().Equal("b", res[0].Id)
	s.Require().Equal("c", res[1].Id)
	s.Require().Equal("a", res[2].Id)

	res, err = s.repo.FindAll(c, listing.WithSort("basePrice", domain.SortDirDesc))
	s.Require().NoError(err)
	s.Require().Equal("a", res[0].Id)

	// default order is creation order
	res, err = s.repo.FindAll(c)
	s.Require().NoError(err)
	s.Require().Equal("a", res[0].Id)

	res, err = s.repo.FindAll(c, listing.WithSort("basePrice", domain.SortDirAsc), listing.WithPagination(1, 1))
	s.Require().NoError(err)
	s.Require().Len(res, 1)
	s.Require().Equal("c", res[0].Id)

	res, err = s.repo.FindAll(c, listing.WithPagination(2, 5))
	s.Require().NoError(err)
	s.Require().Len(res, 1)
}

func (s *inmemTestSuite) TestPatch() {
	c := bCtx.Background()

	s.seed("a", nil)

	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	status := listing.StatusActive
	err := s.repo.Patch(c, "a", listing.Patchable{
		Title:       ptr.String("Patched"),
		Status:      &status,
		PublishedAt: &now,
		UpdatedAt:   &now,
	})
	s.Require().NoError(err)

	got, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal("Patched", got.Title)
	s.Require().Equal(listing.StatusActive, got.Status)
	s.Require().Equal(now, *got.PublishedAt)
	s.Require().Equal(now, got.UpdatedAt)
	// untouched fields stay
	s.Require().Equal("seller-1", got.SellerId)

	err = s.repo.Patch(c, "missing", listing.Patchable{Title: ptr.String("x")})
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *inmemTestSuite) TestCounters() {
	c := bCtx.Background()

	s.seed("a", nil)

	s.Require().NoError(s.repo.IncreaseViewCount(c, "a", 1))
	s.Require().NoError(s.repo.IncreaseViewCount(c, "a", 1))
	s.Require().NoError(s.repo.IncreaseSalesCount(c, "a", 1))
	s.Require().NoError(s.repo.IncreaseLikeCount(c, "a", 1))

	// decrement below zero clamps instead of failing
	s.Require().NoError(s.repo.IncreaseLikeCount(c, "a", -1))
	s.Require().NoError(s.repo.IncreaseLikeCount(c, "a", -1))

	got, err := s.repo.FindOne(c, "a")
	s.Require().NoError(err)
	s.Require().Equal(int32(2), got.ViewCount)
	s.Require().Equal(int32(1), got.SalesCount)
	s.Require().Equal(int32(0), got.LikeCount)

	s.Require().Equal(domain.ErrNotFound, s.repo.IncreaseViewCount(c, "missing", 1))
	s.Require().Equal(domain.ErrNotFound, s.repo.IncreaseLikeCount(c, "missing", -1))
}

package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/atelierhq/marketapi/base/clock"
	bCtx "github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/ptr"
	"github.com/atelierhq/marketapi/base/pubsub"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
	"github.com/atelierhq/marketapi/stores/listing/repository"
)

type listingTestSuite struct {
	suite.Suite

	clock *clock.Mock
	bus   pubsub.Bus
	repo  listing.Repo
	uc    listing.Usecase
}

func Test(t *testing.T) {
	suite.Run(t, new(listingTestSuite))
}

func (s *listingTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.clock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.bus = pubsub.New()
	s.repo = repository.NewInmem()
	s.uc = New(&ListingUseCaseCfg{
		ListingRepo: s.repo,
		Bus:         s.bus,
		Clock:       s.clock,
		IdGen:       idgen.NewSequential("listing"),
	})
}

func validCreateParams() listing.CreateParams {
	return listing.CreateParams{
		DesignId:          "design-1",
		SellerId:          "seller-1",
		Title:             "Floral Summer Dress",
		Description:       "Hand drawn watercolor floral print for summer dresses.",
		Category:          listing.CategoryApparel,
		Tags:              []string{"floral", "summer"},
		Images:            []string{"https://img.example.com/floral-1.png"},
		Pricing:           &listing.Pricing{BasePrice: 120, Currency: "USD"},
		AvailableLicenses: []listing.LicenseType{listing.LicenseTypeNonExclusive},
	}
}

func (s *listingTestSuite) TestCreate() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)
	s.Require().Equal("listing-1", res.Id)
	s.Require().Equal(listing.StatusDraft, res.Status)
	s.Require().Equal(s.clock.Now(), res.CreatedAt)
	s.Require().Equal(s.clock.Now(), res.UpdatedAt)
	s.Require().Nil(res.PublishedAt)

	stored, err := s.repo.FindOne(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(res.Title, stored.Title)
}

func (s *listingTestSuite) TestCreateReportsEveryMissingField() {
	c := bCtx.Background()

	_, err := s.uc.Create(c, listing.CreateParams{})
	s.Require().True(errors.Is(err, domain.ErrBadParamInput))

	var verr *domain.ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Require().ElementsMatch([]string{
		"designId is required",
		"sellerId is required",
		"title is required",
		"category is required",
		"pricing is required",
	}, verr.Violations)
}

func (s *listingTestSuite) TestCreateRejectsUnknownCategory() {
	c := bCtx.Background()

	params := validCreateParams()
	params.Category = listing.Category("furniture")
	_, err := s.uc.Create(c, params)

	var verr *domain.ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Require().Equal([]string{`category "furniture" is unknown`}, verr.Violations)
}

func (s *listingTestSuite) TestCreateAllowsEmptyImagesAtDraft() {
	c := bCtx.Background()

	params := validCreateParams()
	params.Images = nil
	params.AvailableLicenses = nil
	res, err := s.uc.Create(c, params)
	s.Require().NoError(err)
	s.Require().Equal(listing.StatusDraft, res.Status)
}

func (s *listingTestSuite) TestCreateDesignConflict() {
	c := bCtx.Background()

	_, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	second := validCreateParams()
	second.SellerId = "seller-2"
	_, err = s.uc.Create(c, second)
	s.Require().Equal(domain.ErrConflict, err)

	// archiving releases the design for a fresh listing
	_, err = s.uc.Archive(c, "listing-1")
	s.Require().NoError(err)

	res, err := s.uc.Create(c, second)
	s.Require().NoError(err)
	s.Require().Equal("listing-2", res.Id)
}

func (s *listingTestSuite) TestSubmitForReview() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	submitted, err := s.uc.SubmitForReview(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(listing.StatusPendingReview, submitted.Status)

	// no longer a draft
	_, err = s.uc.SubmitForReview(c, res.Id)
	s.Require().Equal(domain.ErrStateConflict, err)
}

func (s *listingTestSuite) TestSubmitForReviewReportsEveryGateViolation() {
	c := bCtx.Background()

	params := validCreateParams()
	params.Title = "Mini"
	params.Description = "too short"
	params.Images = nil
	params.AvailableLicenses = nil
	params.Pricing = &listing.Pricing{BasePrice: 0, Currency: "USD"}
	res, err := s.uc.Create(c, params)
	s.Require().NoError(err)

	_, err = s.uc.SubmitForReview(c, res.Id)
	var verr *domain.ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Require().Len(verr.Violations, 5)
	s.Require().Contains(verr.Error(), "base price must be greater than 0")

	// still a draft, nothing was patched
	stored, err := s.repo.FindOne(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(listing.StatusDraft, stored.Status)
}

func (s *listingTestSuite) TestPublish() {
	c := bCtx.Background()

	events := []domain.ListingPublishedEvent{}
	unsub := s.bus.Subscribe(domain.TopicListingPublished, func(c bCtx.Ctx, payload interface{}) {
		evt, ok := payload.(domain.ListingPublishedEvent)
		s.Require().True(ok)
		events = append(events, evt)
	})
	defer unsub()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	s.clock.Add(time.Hour)
	published, err := s.uc.Publish(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(listing.StatusActive, published.Status)
	s.Require().NotNil(published.PublishedAt)
	s.Require().Equal(s.clock.Now(), *published.PublishedAt)
	s.Require().Equal([]domain.ListingPublishedEvent{{ListingId: res.Id}}, events)

	_, err = s.uc.Publish(c, "listing-404")
	s.Require().Equal(domain.ErrNotFound, err)
	s.Require().Len(events, 1)
}

func (s *listingTestSuite) TestUpdate() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	s.clock.Add(time.Minute)
	archivedStatus := listing.StatusArchived
	updated, err := s.uc.Update(c, res.Id, listing.Patchable{
		Title: ptr.String("Floral Summer Dress v2"),
		// lifecycle fields are not writable through Update
		Status: &archivedStatus,
	})
	s.Require().NoError(err)
	s.Require().Equal("Floral Summer Dress v2", updated.Title)
	s.Require().Equal(listing.StatusDraft, updated.Status)
	s.Require().Equal(s.clock.Now(), updated.UpdatedAt)
	s.Require().True(updated.UpdatedAt.After(res.UpdatedAt))

	_, err = s.uc.Update(c, "listing-404", listing.Patchable{Title: ptr.String("x")})
	s.Require().Equal(domain.ErrNotFound, err)
}

func (s *listingTestSuite) TestUpdateArchivedListing() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	_, err = s.uc.Archive(c, res.Id)
	s.Require().NoError(err)

	_, err = s.uc.Update(c, res.Id, listing.Patchable{Title: ptr.String("x")})
	s.Require().Equal(domain.ErrStateConflict, err)
}

func (s *listingTestSuite) TestArchiveFromAnyStatus() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	_, err = s.uc.Publish(c, res.Id)
	s.Require().NoError(err)

	archived, err := s.uc.Archive(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(listing.StatusArchived, archived.Status)
}

func (s *listingTestSuite) TestEngagementCounters() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)
	_, err = s.uc.Publish(c, res.Id)
	s.Require().NoError(err)

	s.Require().NoError(s.uc.RecordView(c, res.Id))
	s.Require().NoError(s.uc.RecordView(c, res.Id))
	s.Require().NoError(s.uc.RecordLike(c, res.Id))
	s.Require().NoError(s.uc.RecordSale(c, res.Id))

	stored, err := s.uc.FindOne(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(int32(2), stored.ViewCount)
	s.Require().Equal(int32(1), stored.LikeCount)
	s.Require().Equal(int32(1), stored.SalesCount)
	// a sale never retires the listing
	s.Require().Equal(listing.StatusActive, stored.Status)

	s.Require().Equal(domain.ErrNotFound, s.uc.RecordView(c, "listing-404"))
}

func (s *listingTestSuite) TestUnlikeFloorsAtZero() {
	c := bCtx.Background()

	res, err := s.uc.Create(c, validCreateParams())
	s.Require().NoError(err)

	// unliking with no likes is a no-op, not an error
	s.Require().NoError(s.uc.RecordUnlike(c, res.Id))

	s.Require().NoError(s.uc.RecordLike(c, res.Id))
	s.Require().NoError(s.uc.RecordUnlike(c, res.Id))
	s.Require().NoError(s.uc.RecordUnlike(c, res.Id))

	stored, err := s.uc.FindOne(c, res.Id)
	s.Require().NoError(err)
	s.Require().Equal(int32(0), stored.LikeCount)

	s.Require().Equal(domain.ErrNotFound, s.uc.RecordUnlike(c, "listing-404"))
}

package usecase

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/atelierhq/marketapi/base/clock"
	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/keymutex"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/base/pubsub"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
	"github.com/atelierhq/marketapi/domain/review"
)

type ReviewUseCaseCfg struct {
	ReviewRepo  review.Repo
	ListingRepo listing.Repo
	Bus         pubsub.Bus
	Clock       clock.Clock
	IdGen       idgen.Generator
	// Verifier is optional. Without it every review passes the purchase gate.
	Verifier review.PurchaseVerifier
}

type impl struct {
	review   review.Repo
	listing  listing.Repo
	bus      pubsub.Bus
	clock    clock.Clock
	idgen    idgen.Generator
	verifier review.PurchaseVerifier
	locks    *keymutex.KeyedMutex
	validate *validator.Validate
}

func New(cfg *ReviewUseCaseCfg) review.Usecase {
	return &impl{
		review:   cfg.ReviewRepo,
		listing:  cfg.ListingRepo,
		bus:      cfg.Bus,
		clock:    cfg.Clock,
		idgen:    cfg.IdGen,
		verifier: cfg.Verifier,
		locks:    keymutex.New(),
		validate: newCreateParamsValidator(),
	}
}

// newCreateParamsValidator reports json field names so violation messages
// match the request payload.
func newCreateParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (im *impl) Create(c ctx.Ctx, params review.CreateParams) (*review.Review, error) {
	if err := im.validateCreateParams(params); err != nil {
		return nil, err
	}

	l, err := im.listing.FindOne(c, params.ListingId)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}

	// the duplicate check and the rating recompute must not interleave with
	// another review for the same listing
	unlock := im.locks.Lock("listing:" + params.ListingId)
	defer unlock()

	cnt, err := im.review.Count(c,
		review.WithListingId(params.ListingId),
		review.WithReviewerId(params.ReviewerId))
	if err != nil {
		c.WithField("err", err).Error("review.Count failed")
		return nil, err
	}
	if cnt > 0 {
		return nil, domain.ErrConflict
	}

	if im.verifier != nil {
		verified, err := im.verifier.VerifyPurchase(c, params.LicenseId, params.ListingId, params.ReviewerId)
		if err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"licenseId": params.LicenseId,
			}).Error("verifier.VerifyPurchase failed")
			return nil, xerrors.Errorf("verify purchase %s: %w", params.LicenseId, err)
		}
		if !verified {
			return nil, domain.NewValidationError("purchase could not be verified")
		}
	}

	id, err := im.idgen.NewId()
	if err != nil {
		c.WithField("err", err).Error("idgen.NewId failed")
		return nil, err
	}

	now := im.clock.Now()
	r := &review.Review{
		Id:                 id,
		ListingId:          params.ListingId,
		LicenseId:          params.LicenseId,
		ReviewerId:         params.ReviewerId,
		SellerId:           l.SellerId,
		Rating:             params.Rating,
		Content:            params.Content,
		SubRatings:         params.SubRatings,
		IsVerifiedPurchase: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := im.review.Create(c, r); err != nil {
		c.WithField("err", err).Error("review.Create failed")
		return nil, err
	}

	im.bus.Publish(c, domain.TopicReviewPosted, domain.ReviewPostedEvent{
		ReviewId: id,
		Rating:   params.Rating,
	})

	// aggregate refresh failures never fail the accepted review, the next
	// review for the listing recomputes the same numbers
	if err := im.refreshListingRating(c, params.ListingId); err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"listingId": params.ListingId,
		}).Error("refreshListingRating failed")
	}

	return r, nil
}

func (im *impl) validateCreateParams(params review.CreateParams) error {
	violations := []string{}

	if err := im.validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range errs {
			switch fe.Tag() {
			case "min", "max":
				violations = append(violations, fmt.Sprintf("%s must be between %d and %d", fe.Field(), review.MinRating, review.MaxRating))
			default:
				violations = append(violations, fmt.Sprintf("%s is required", fe.Field()))
			}
		}
	}
	for k, v := range params.SubRatings {
		if v < review.MinRating || v > review.MaxRating {
			violations = append(violations, fmt.Sprintf("subRatings.%s must be between %d and %d", k, review.MinRating, review.MaxRating))
		}
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id string) (*review.Review, error) {
	res, err := im.review.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("review.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindAll(c ctx.Ctx, opts ...review.FindAllOptionsFunc) ([]*review.Review, error) {
	res, err := im.review.FindAll(c, opts...)
	if err != nil {
		c.WithField("err", err).Error("review.FindAll failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) MarkHelpful(c ctx.Ctx, id string) (*review.Review, error) {
	if err := im.review.IncreaseHelpfulCount(c, id, 1); err != nil {
		c.WithField("err", err).Error("review.IncreaseHelpfulCount failed")
		return nil, err
	}

	res, err := im.review.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("review.FindOne failed")
		return nil, err
	}
	return res, nil
}

// RespondToReview attaches the seller response. A later response replaces the
// earlier one.
func (im *impl) RespondToReview(c ctx.Ctx, id string, content string) (*review.Review, error) {
	now := im.clock.Now()
	value := review.Patchable{
		SellerResponse: &review.SellerResponse{Content: content, RespondedAt: now},
		UpdatedAt:      &now,
	}

	if err := im.review.Patch(c, id, value); err != nil {
		c.WithField("err", err).Error("review.Patch failed")
		return nil, err
	}

	res, err := im.review.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("review.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) refreshListingRating(c ctx.Ctx, listingId string) error {
	reviews, err := im.review.FindAll(c, review.WithListingId(listingId))
	if err != nil {
		return err
	}

	count := int32(len(reviews))
	rating := float64(0)
	if count > 0 {
		sum := decimal.Zero
		for _, r := range reviews {
			sum = sum.Add(decimal.NewFromInt32(r.Rating))
		}
		rating, _ = sum.Div(decimal.NewFromInt32(count)).Round(1).Float64()
	}

	return im.listing.Patch(c, listingId, listing.Patchable{
		Rating:      &rating,
		ReviewCount: &count,
	})
}

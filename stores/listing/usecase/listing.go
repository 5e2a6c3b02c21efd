package usecase

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atelierhq/marketapi/base/clock"
	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/keymutex"
	"github.com/atelierhq/marketapi/base/pubsub"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
)

type ListingUseCaseCfg struct {
	ListingRepo listing.Repo
	Bus         pubsub.Bus
	Clock       clock.Clock
	IdGen       idgen.Generator
}

type impl struct {
	listing  listing.Repo
	bus      pubsub.Bus
	clock    clock.Clock
	idgen    idgen.Generator
	locks    *keymutex.KeyedMutex
	validate *validator.Validate
}

func New(cfg *ListingUseCaseCfg) listing.Usecase {
	return &impl{
		listing:  cfg.ListingRepo,
		bus:      cfg.Bus,
		clock:    cfg.Clock,
		idgen:    cfg.IdGen,
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

func (im *impl) Create(c ctx.Ctx, params listing.CreateParams) (*listing.Listing, error) {
	if err := im.validateCreateParams(params); err != nil {
		return nil, err
	}

	// the uniqueness check and the insert must not interleave with another
	// create for the same design
	unlock := im.locks.Lock("design:" + params.DesignId)
	defer unlock()

	existing, err := im.listing.FindAll(c, listing.WithDesignId(params.DesignId))
	if err != nil {
		c.WithField("err", err).Error("listing.FindAll failed")
		return nil, err
	}
	for _, l := range existing {
		if l.Status != listing.StatusArchived {
			return nil, domain.ErrConflict
		}
	}

	id, err := im.idgen.NewId()
	if err != nil {
		c.WithField("err", err).Error("idgen.NewId failed")
		return nil, err
	}

	now := im.clock.Now()
	l := &listing.Listing{
		Id:                id,
		DesignId:          params.DesignId,
		SellerId:          params.SellerId,
		Title:             params.Title,
		Description:       params.Description,
		Category:          params.Category,
		Tags:              params.Tags,
		Styles:            params.Styles,
		Seasons:           params.Seasons,
		Colors:            params.Colors,
		Materials:         params.Materials,
		Images:            params.Images,
		Pricing:           *params.Pricing,
		AvailableLicenses: params.AvailableLicenses,
		IsFeatured:        params.IsFeatured,
		IsPromoted:        params.IsPromoted,
		Status:            listing.StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         params.ExpiresAt,
	}

	if err := im.listing.Create(c, l); err != nil {
		c.WithField("err", err).Error("listing.Create failed")
		return nil, err
	}

	return l, nil
}

func (im *impl) validateCreateParams(params listing.CreateParams) error {
	violations := []string{}

	if err := im.validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range errs {
			violations = append(violations, fmt.Sprintf("%s is required", fe.Field()))
		}
	}
	if params.Category != "" && !params.Category.Valid() {
		violations = append(violations, fmt.Sprintf("category %q is unknown", params.Category))
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id string) (*listing.Listing, error) {
	res, err := im.listing.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindAll(c ctx.Ctx, opts ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	res, err := im.listing.FindAll(c, opts...)
	if err != nil {
		c.WithField("err", err).Error("listing.FindAll failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) SubmitForReview(c ctx.Ctx, id string) (*listing.Listing, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	l, err := im.listing.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}
	if l.Status != listing.StatusDraft {
		return nil, domain.ErrStateConflict
	}
	if violations := listing.ValidateForPublication(l); len(violations) > 0 {
		return nil, domain.NewValidationError(violations...)
	}

	now := im.clock.Now()
	status := listing.StatusPendingReview
	return im.patch(c, id, listing.Patchable{Status: &status, UpdatedAt: &now})
}

func (im *impl) Publish(c ctx.Ctx, id string) (*listing.Listing, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	now := im.clock.Now()
	status := listing.StatusActive
	res, err := im.patch(c, id, listing.Patchable{
		Status:      &status,
		PublishedAt: &now,
		UpdatedAt:   &now,
	})
	if err != nil {
		return nil, err
	}

	im.bus.Publish(c, domain.TopicListingPublished, domain.ListingPublishedEvent{ListingId: id})

	return res, nil
}

func (im *impl) Update(c ctx.Ctx, id string, value listing.Patchable) (*listing.Listing, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	l, err := im.listing.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}
	if l.Status == listing.StatusArchived {
		return nil, domain.ErrStateConflict
	}

	// lifecycle and aggregate fields move through their dedicated operations
	value.Status = nil
	value.Rating = nil
	value.ReviewCount = nil
	value.PublishedAt = nil

	now := im.clock.Now()
	value.UpdatedAt = &now
	return im.patch(c, id, value)
}

func (im *impl) Archive(c ctx.Ctx, id string) (*listing.Listing, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	now := im.clock.Now()
	status := listing.StatusArchived
	return im.patch(c, id, listing.Patchable{Status: &status, UpdatedAt: &now})
}

func (im *impl) RecordView(c ctx.Ctx, id string) error {
	if err := im.listing.IncreaseViewCount(c, id, 1); err != nil {
		c.WithField("err", err).Error("listing.IncreaseViewCount failed")
		return err
	}
	return nil
}

func (im *impl) RecordLike(c ctx.Ctx, id string) error {
	if err := im.listing.IncreaseLikeCount(c, id, 1); err != nil {
		c.WithField("err", err).Error("listing.IncreaseLikeCount failed")
		return err
	}
	return nil
}

func (im *impl) RecordUnlike(c ctx.Ctx, id string) error {
	if err := im.listing.IncreaseLikeCount(c, id, -1); err != nil {
		c.WithField("err", err).Error("listing.IncreaseLikeCount failed")
		return err
	}
	return nil
}

// RecordSale bumps the sales counter only. Selling a license does not retire
// the listing, its status stays as-is.
func (im *impl) RecordSale(c ctx.Ctx, id string) error {
	if err := im.listing.IncreaseSalesCount(c, id, 1); err != nil {
		c.WithField("err", err).Error("listing.IncreaseSalesCount failed")
		return err
	}
	return nil
}

func (im *impl) patch(c ctx.Ctx, id string, value listing.Patchable) (*listing.Listing, error) {
	if err := im.listing.Patch(c, id, value); err != nil {
		c.WithField("err", err).Error("listing.Patch failed")
		return nil, err
	}

	res, err := im.listing.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}
	return res, nil
}

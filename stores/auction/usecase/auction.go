package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/viney-shih/goroutines"

	"github.com/atelierhq/marketapi/base/clock"
	"github.com/atelierhq/marketapi/base/counter"
	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/keymutex"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/base/ptr"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
	"github.com/atelierhq/marketapi/domain/listing"
)

type AuctionUseCaseCfg struct {
	AuctionRepo auction.Repo
	BidRepo     auction.BidRepo
	ListingRepo listing.Repo
	Clock       clock.Clock
	IdGen       idgen.Generator
}

type impl struct {
	auction  auction.Repo
	bid      auction.BidRepo
	listing  listing.Repo
	clock    clock.Clock
	idgen    idgen.Generator
	locks    *keymutex.KeyedMutex
	validate *validator.Validate
	pool     *goroutines.Pool
}

func New(cfg *AuctionUseCaseCfg) auction.Usecase {
	return &impl{
		auction:  cfg.AuctionRepo,
		bid:      cfg.BidRepo,
		listing:  cfg.ListingRepo,
		clock:    cfg.Clock,
		idgen:    cfg.IdGen,
		locks:    keymutex.New(),
		validate: newParamsValidator(),
		pool:     goroutines.NewPool(8, goroutines.WithTaskQueueLength(256)),
	}
}

// newParamsValidator reports json field names so violation messages match the
// request payload.
func newParamsValidator() *validator.Validate {
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

func (im *impl) Create(c ctx.Ctx, params auction.CreateParams) (*auction.Auction, error) {
	if err := im.validateCreateParams(params); err != nil {
		return nil, err
	}

	l, err := im.listing.FindOne(c, params.ListingId)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}
	if l.Status != listing.StatusActive {
		return nil, domain.ErrStateConflict
	}

	// the liveness check and the insert must not interleave with another
	// create for the same listing
	unlock := im.locks.Lock("listing:" + params.ListingId)
	defer unlock()

	cnt, err := im.auction.Count(c,
		auction.WithListingId(params.ListingId),
		auction.WithStatuses([]auction.Status{auction.StatusScheduled, auction.StatusActive}))
	if err != nil {
		c.WithField("err", err).Error("auction.Count failed")
		return nil, err
	}
	if cnt > 0 {
		return nil, domain.ErrConflict
	}

	id, err := im.idgen.NewId()
	if err != nil {
		c.WithField("err", err).Error("idgen.NewId failed")
		return nil, err
	}

	now := im.clock.Now()
	a := &auction.Auction{
		Id:               id,
		ListingId:        params.ListingId,
		SellerId:         params.SellerId,
		StartingPrice:    params.StartingPrice,
		ReservePrice:     params.ReservePrice,
		BuyNowPrice:      params.BuyNowPrice,
		BidIncrement:     auction.DefaultBidIncrement,
		Currency:         auction.DefaultCurrency,
		StartsAt:         params.StartsAt,
		EndsAt:           params.StartsAt.AddDate(0, 0, int(params.DurationDays)),
		ExtensionMinutes: auction.DefaultExtensionMinutes,
		Status:           auction.StatusScheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if params.BidIncrement != nil {
		a.BidIncrement = *params.BidIncrement
	}
	if params.ExtensionMinutes != nil {
		a.ExtensionMinutes = *params.ExtensionMinutes
	}
	if params.Currency != "" {
		a.Currency = params.Currency
	}

	if err := im.auction.Create(c, a); err != nil {
		c.WithField("err", err).Error("auction.Create failed")
		return nil, err
	}

	return a, nil
}

func (im *impl) validateCreateParams(params auction.CreateParams) error {
	violations := []string{}

	if err := im.validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range errs {
			switch fe.Tag() {
			case "gt":
				violations = append(violations, fmt.Sprintf("%s must be greater than 0", fe.Field()))
			default:
				violations = append(violations, fmt.Sprintf("%s is required", fe.Field()))
			}
		}
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id string) (*auction.Auction, error) {
	res, err := im.auction.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("auction.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindAll(c ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	res, err := im.auction.FindAll(c, opts...)
	if err != nil {
		c.WithField("err", err).Error("auction.FindAll failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) PlaceBid(c ctx.Ctx, params auction.PlaceBidParams) (*auction.Bid, error) {
	if err := im.validatePlaceBidParams(params); err != nil {
		return nil, err
	}

	// one bid at a time per auction, the same lock gates sweep settlement
	unlock := im.locks.Lock(params.AuctionId)
	defer unlock()

	a, err := im.auction.FindOne(c, params.AuctionId)
	if err != nil {
		c.WithField("err", err).Error("auction.FindOne failed")
		return nil, err
	}
	if a.Status != auction.StatusActive {
		return nil, domain.ErrStateConflict
	}

	now := im.clock.Now()
	if !a.EndsAt.After(now) {
		// past its end time, the sweep just has not settled it yet
		return nil, domain.ErrExpired
	}

	minimum := decimal.NewFromFloat(a.StartingPrice)
	if a.CurrentBid != nil {
		minimum = decimal.NewFromFloat(*a.CurrentBid).Add(decimal.NewFromFloat(a.BidIncrement))
	}
	if decimal.NewFromFloat(params.Amount).LessThan(minimum) {
		return nil, domain.NewValidationError("Minimum bid is " + minimum.String())
	}

	if prev, err := im.bid.FindOne(c, auction.BidWithAuctionId(a.Id), auction.BidWithIsWinning(true)); err == nil {
		if err := im.bid.Patch(c, prev.Id, auction.PatchableBid{IsWinning: ptr.Bool(false)}); err != nil {
			c.WithField("err", err).Error("bid.Patch failed")
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		c.WithField("err", err).Error("bid.FindOne failed")
		return nil, err
	}

	id, err := im.idgen.NewId()
	if err != nil {
		c.WithField("err", err).Error("idgen.NewId failed")
		return nil, err
	}

	b := &auction.Bid{
		Id:        id,
		AuctionId: a.Id,
		BidderId:  params.BidderId,
		Amount:    params.Amount,
		MaxBid:    params.MaxBid,
		IsWinning: true,
		PlacedAt:  now,
	}
	if err := im.bid.Create(c, b); err != nil {
		c.WithField("err", err).Error("bid.Create failed")
		return nil, err
	}

	value := auction.Patchable{
		CurrentBid:      ptr.Float64(params.Amount),
		CurrentBidderId: ptr.String(params.BidderId),
		BidCount:        ptr.Int32(a.BidCount + 1),
		UpdatedAt:       &now,
	}
	// a bid landing inside the closing window resets it, EndsAt only ever
	// moves forward
	if extension := time.Duration(a.ExtensionMinutes) * time.Minute; a.EndsAt.Sub(now) < extension {
		endsAt := now.Add(extension)
		value.EndsAt = &endsAt
	}
	if err := im.auction.Patch(c, a.Id, value); err != nil {
		c.WithField("err", err).Error("auction.Patch failed")
		return nil, err
	}

	return b, nil
}

func (im *impl) validatePlaceBidParams(params auction.PlaceBidParams) error {
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
	if params.MaxBid != nil && *params.MaxBid < params.Amount {
		violations = append(violations, "maxBid must be greater than or equal to amount")
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

func (im *impl) Cancel(c ctx.Ctx, id string) (*auction.Auction, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	a, err := im.auction.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("auction.FindOne failed")
		return nil, err
	}
	if a.Status != auction.StatusScheduled && a.Status != auction.StatusActive {
		return nil, domain.ErrStateConflict
	}

	now := im.clock.Now()
	status := auction.StatusCanceled
	return im.patch(c, id, auction.Patchable{Status: &status, UpdatedAt: &now})
}

func (im *impl) ListBids(c ctx.Ctx, auctionId string) ([]*auction.Bid, error) {
	if _, err := im.auction.FindOne(c, auctionId); err != nil {
		c.WithField("err", err).Error("auction.FindOne failed")
		return nil, err
	}

	res, err := im.bid.FindAll(c,
		auction.BidWithAuctionId(auctionId),
		auction.BidWithSort("placedAt", domain.SortDirDesc))
	if err != nil {
		c.WithField("err", err).Error("bid.FindAll failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) ProcessAuctionEndings(c ctx.Ctx) (*auction.SweepReport, error) {
	now := im.clock.Now()
	report := &auction.SweepReport{}

	dueToStart, err := im.auction.FindAll(c,
		auction.WithStatus(auction.StatusScheduled),
		auction.WithStartsBefore(now))
	if err != nil {
		c.WithField("err", err).Error("auction.FindAll failed")
		return nil, err
	}
	for _, a := range dueToStart {
		started, err := im.start(c, a.Id, now)
		if err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"auctionId": a.Id,
			}).Error("start failed")
			continue
		}
		if started {
			report.Started++
		}
	}

	// listed after the start phase so an auction that was both due to start
	// and already past its end settles in the same pass
	dueToSettle, err := im.auction.FindAll(c,
		auction.WithStatus(auction.StatusActive),
		auction.WithEndsBefore(now))
	if err != nil {
		c.WithField("err", err).Error("auction.FindAll failed")
		return nil, err
	}

	sold := counter.NewCounter()
	ended := counter.NewCounter()
	noBids := counter.NewCounter()

	var wg sync.WaitGroup
	for _, a := range dueToSettle {
		id := a.Id
		wg.Add(1)
		task := func() {
			defer wg.Done()
			status, settled, err := im.settle(c, id, now)
			if err != nil {
				c.WithFields(log.Fields{
					"err":       err,
					"auctionId": id,
				}).Error("settle failed")
				return
			}
			if !settled {
				return
			}
			switch status {
			case auction.StatusSold:
				sold.Inc()
			case auction.StatusEnded:
				ended.Inc()
			case auction.StatusNoBids:
				noBids.Inc()
			}
		}
		if err := im.pool.Schedule(task); err != nil {
			c.WithField("err", err).Error("pool.Schedule failed")
			task()
		}
	}
	wg.Wait()

	report.Sold = sold.Count()
	report.Ended = ended.Count()
	report.NoBids = noBids.Count()
	return report, nil
}

func (im *impl) start(c ctx.Ctx, id string, now time.Time) (bool, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	a, err := im.auction.FindOne(c, id)
	if err != nil {
		return false, err
	}
	if a.Status != auction.StatusScheduled || a.StartsAt.After(now) {
		// superseded between listing and locking
		return false, nil
	}

	status := auction.StatusActive
	if err := im.auction.Patch(c, id, auction.Patchable{Status: &status, UpdatedAt: &now}); err != nil {
		return false, err
	}
	return true, nil
}

// settle is re-checked under the bid lock. A bid accepted after the sweep
// listed this auction may have extended it past now, in which case it stays
// active.
func (im *impl) settle(c ctx.Ctx, id string, now time.Time) (auction.Status, bool, error) {
	unlock := im.locks.Lock(id)
	defer unlock()

	a, err := im.auction.FindOne(c, id)
	if err != nil {
		return "", false, err
	}
	if a.Status != auction.StatusActive || a.EndsAt.After(now) {
		return "", false, nil
	}

	status := auction.StatusNoBids
	if a.CurrentBid != nil {
		reserveMet := a.ReservePrice == nil ||
			decimal.NewFromFloat(*a.CurrentBid).GreaterThanOrEqual(decimal.NewFromFloat(*a.ReservePrice))
		if reserveMet {
			status = auction.StatusSold
		} else {
			status = auction.StatusEnded
		}
	}

	if err := im.auction.Patch(c, id, auction.Patchable{Status: &status, UpdatedAt: &now}); err != nil {
		return "", false, err
	}
	return status, true, nil
}

func (im *impl) patch(c ctx.Ctx, id string, value auction.Patchable) (*auction.Auction, error) {
	if err := im.auction.Patch(c, id, value); err != nil {
		c.WithField("err", err).Error("auction.Patch failed")
		return nil, err
	}

	res, err := im.auction.FindOne(c, id)
	if err != nil {
		c.WithField("err", err).Error("auction.FindOne failed")
		return nil, err
	}
	return res, nil
}

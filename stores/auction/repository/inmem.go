package repository

import (
	"sort"
	"sync"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
)

type inmemImpl struct {
	sync.RWMutex
	auctions map[string]*auction.Auction
}

// NewInmem builds the default embedded store. Entries are deep copied on the
// way in and out so callers can never mutate shared state.
func NewInmem() auction.Repo {
	return &inmemImpl{
		auctions: map[string]*auction.Auction{},
	}
}

func cloneAuction(a *auction.Auction) *auction.Auction {
	cp := *a
	if a.ReservePrice != nil {
		v := *a.ReservePrice
		cp.ReservePrice = &v
	}
	if a.BuyNowPrice != nil {
		v := *a.BuyNowPrice
		cp.BuyNowPrice = &v
	}
	if a.CurrentBid != nil {
		v := *a.CurrentBid
		cp.CurrentBid = &v
	}
	if a.CurrentBidderId != nil {
		v := *a.CurrentBidderId
		cp.CurrentBidderId = &v
	}
	return &cp
}

func matchOptions(a *auction.Auction, opts auction.FindAllOptions) bool {
	if opts.Status != nil && a.Status != *opts.Status {
		return false
	}
	if opts.Statuses != nil {
		found := false
		for _, s := range opts.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.ListingId != nil && a.ListingId != *opts.ListingId {
		return false
	}
	if opts.SellerId != nil && a.SellerId != *opts.SellerId {
		return false
	}
	if opts.StartsBefore != nil && a.StartsAt.After(*opts.StartsBefore) {
		return false
	}
	if opts.EndsBefore != nil && a.EndsAt.After(*opts.EndsBefore) {
		return false
	}
	return true
}

func sortAuctions(items []*auction.Auction, opts auction.FindAllOptions) {
	// creation order with id tiebreak keeps results stable for pagination
	less := func(a, b *auction.Auction) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Id < b.Id
	}

	if opts.SortBy != nil {
		dir := domain.SortDirAsc
		if opts.SortDir != nil {
			dir = *opts.SortDir
		}
		base := less
		switch *opts.SortBy {
		case "createdAt":
		case "startsAt":
			base = func(a, b *auction.Auction) bool { return a.StartsAt.Before(b.StartsAt) }
		case "endsAt":
			base = func(a, b *auction.Auction) bool { return a.EndsAt.Before(b.EndsAt) }
		case "currentBid":
			base = func(a, b *auction.Auction) bool {
				// auctions without a bid yet order before any bid amount
				if a.CurrentBid == nil || b.CurrentBid == nil {
					return a.CurrentBid == nil && b.CurrentBid != nil
				}
				return *a.CurrentBid < *b.CurrentBid
			}
		case "bidCount":
			base = func(a, b *auction.Auction) bool { return a.BidCount < b.BidCount }
		}
		if dir == domain.SortDirDesc {
			asc := base
			less = func(a, b *auction.Auction) bool { return asc(b, a) }
		} else {
			less = base
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func paginateAuctions(length int, opts auction.FindAllOptions) (int, int) {
	offset := 0
	if opts.Offset != nil {
		offset = int(*opts.Offset)
	}
	if offset > length {
		offset = length
	}
	end := length
	if opts.Limit != nil && *opts.Limit > 0 && offset+int(*opts.Limit) < end {
		end = offset + int(*opts.Limit)
	}
	return offset, end
}

func (im *inmemImpl) findAll(opts auction.FindAllOptions) []*auction.Auction {
	res := []*auction.Auction{}
	for _, a := range im.auctions {
		if matchOptions(a, opts) {
			res = append(res, a)
		}
	}
	sortAuctions(res, opts)
	return res
}

func (im *inmemImpl) FindAll(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return nil, err
	}

	im.RLock()
	defer im.RUnlock()

	matched := im.findAll(opts)
	start, end := paginateAuctions(len(matched), opts)

	res := make([]*auction.Auction, 0, end-start)
	for _, a := range matched[start:end] {
		res = append(res, cloneAuction(a))
	}
	return res, nil
}

func (im *inmemImpl) Count(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) (int, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return 0, err
	}

	im.RLock()
	defer im.RUnlock()

	count := 0
	for _, a := range im.auctions {
		if matchOptions(a, opts) {
			count++
		}
	}
	return count, nil
}

func (im *inmemImpl) FindOne(c ctx.Ctx, id string) (*auction.Auction, error) {
	im.RLock()
	defer im.RUnlock()

	a, ok := im.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAuction(a), nil
}

func (im *inmemImpl) Create(c ctx.Ctx, a *auction.Auction) error {
	im.Lock()
	defer im.Unlock()

	if _, ok := im.auctions[a.Id]; ok {
		return domain.ErrConflict
	}
	im.auctions[a.Id] = cloneAuction(a)
	return nil
}

func (im *inmemImpl) Patch(c ctx.Ctx, id string, value auction.Patchable) error {
	im.Lock()
	defer im.Unlock()

	a, ok := im.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}

	if value.Status != nil {
		a.Status = *value.Status
	}
	if value.EndsAt != nil {
		a.EndsAt = *value.EndsAt
	}
	if value.CurrentBid != nil {
		v := *value.CurrentBid
		a.CurrentBid = &v
	}
	if value.CurrentBidderId != nil {
		v := *value.CurrentBidderId
		a.CurrentBidderId = &v
	}
	if value.BidCount != nil {
		a.BidCount = *value.BidCount
	}
	if value.UpdatedAt != nil {
		a.UpdatedAt = *value.UpdatedAt
	}
	return nil
}

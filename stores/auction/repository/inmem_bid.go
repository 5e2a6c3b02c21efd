package repository

import (
	"sort"
	"sync"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
)

type inmemBidImpl struct {
	sync.RWMutex
	bids map[string]*auction.Bid
}

func NewInmemBid() auction.BidRepo {
	return &inmemBidImpl{
		bids: map[string]*auction.Bid{},
	}
}

func cloneBid(b *auction.Bid) *auction.Bid {
	cp := *b
	if b.MaxBid != nil {
		v := *b.MaxBid
		cp.MaxBid = &v
	}
	return &cp
}

func matchBidOptions(b *auction.Bid, opts auction.SelectBidOptions) bool {
	if opts.AuctionId != nil && b.AuctionId != *opts.AuctionId {
		return false
	}
	if opts.BidderId != nil && b.BidderId != *opts.BidderId {
		return false
	}
	if opts.IsWinning != nil && b.IsWinning != *opts.IsWinning {
		return false
	}
	return true
}

func sortBids(items []*auction.Bid, opts auction.SelectBidOptions) {
	// placement order with id tiebreak keeps results stable for pagination
	less := func(a, b *auction.Bid) bool {
		if !a.PlacedAt.Equal(b.PlacedAt) {
			return a.PlacedAt.Before(b.PlacedAt)
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
		case "placedAt":
		case "amount":
			base = func(a, b *auction.Bid) bool { return a.Amount < b.Amount }
		}
		if dir == domain.SortDirDesc {
			asc := base
			less = func(a, b *auction.Bid) bool { return asc(b, a) }
		} else {
			less = base
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func paginateBids(length int, opts auction.SelectBidOptions) (int, int) {
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

func (im *inmemBidImpl) findAll(opts auction.SelectBidOptions) []*auction.Bid {
	res := []*auction.Bid{}
	for _, b := range im.bids {
		if matchBidOptions(b, opts) {
			res = append(res, b)
		}
	}
	sortBids(res, opts)
	return res
}

func (im *inmemBidImpl) FindAll(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) ([]*auction.Bid, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return nil, err
	}

	im.RLock()
	defer im.RUnlock()

	matched := im.findAll(opts)
	start, end := paginateBids(len(matched), opts)

	res := make([]*auction.Bid, 0, end-start)
	for _, b := range matched[start:end] {
		res = append(res, cloneBid(b))
	}
	return res, nil
}

func (im *inmemBidImpl) Count(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) (int, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return 0, err
	}

	im.RLock()
	defer im.RUnlock()

	count := 0
	for _, b := range im.bids {
		if matchBidOptions(b, opts) {
			count++
		}
	}
	return count, nil
}

func (im *inmemBidImpl) FindOne(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) (*auction.Bid, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return nil, err
	}

	im.RLock()
	defer im.RUnlock()

	matched := im.findAll(opts)
	if len(matched) == 0 {
		return nil, domain.ErrNotFound
	}
	return cloneBid(matched[0]), nil
}

func (im *inmemBidImpl) Create(c ctx.Ctx, b *auction.Bid) error {
	im.Lock()
	defer im.Unlock()

	if _, ok := im.bids[b.Id]; ok {
		return domain.ErrConflict
	}
	im.bids[b.Id] = cloneBid(b)
	return nil
}

func (im *inmemBidImpl) Patch(c ctx.Ctx, id string, value auction.PatchableBid) error {
	im.Lock()
	defer im.Unlock()

	b, ok := im.bids[id]
	if !ok {
		return domain.ErrNotFound
	}

	if value.IsWinning != nil {
		b.IsWinning = *value.IsWinning
	}
	return nil
}

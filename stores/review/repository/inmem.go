package repository

import (
	"sort"
	"sync"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/review"
)

type inmemImpl struct {
	sync.RWMutex
	reviews map[string]*review.Review
}

// NewInmem builds the default embedded store. Entries are deep copied on the
// way in and out so callers can never mutate shared state.
func NewInmem() review.Repo {
	return &inmemImpl{
		reviews: map[string]*review.Review{},
	}
}

func cloneReview(r *review.Review) *review.Review {
	cp := *r
	if r.SubRatings != nil {
		cp.SubRatings = map[string]int32{}
		for k, v := range r.SubRatings {
			cp.SubRatings[k] = v
		}
	}
	if r.SellerResponse != nil {
		v := *r.SellerResponse
		cp.SellerResponse = &v
	}
	return &cp
}

func matchOptions(r *review.Review, opts review.FindAllOptions) bool {
	if opts.ListingId != nil && r.ListingId != *opts.ListingId {
		return false
	}
	if opts.ReviewerId != nil && r.ReviewerId != *opts.ReviewerId {
		return false
	}
	if opts.SellerId != nil && r.SellerId != *opts.SellerId {
		return false
	}
	return true
}

func sortReviews(items []*review.Review, opts review.FindAllOptions) {
	// creation order with id tiebreak keeps results stable for pagination
	less := func(a, b *review.Review) bool {
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
		case "rating":
			base = func(a, b *review.Review) bool { return a.Rating < b.Rating }
		case "helpfulCount":
			base = func(a, b *review.Review) bool { return a.HelpfulCount < b.HelpfulCount }
		}
		if dir == domain.SortDirDesc {
			asc := base
			less = func(a, b *review.Review) bool { return asc(b, a) }
		} else {
			less = base
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func paginate(length int, opts review.FindAllOptions) (int, int) {
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

func (im *inmemImpl) findAll(opts review.FindAllOptions) []*review.Review {
	res := []*review.Review{}
	for _, r := range im.reviews {
		if matchOptions(r, opts) {
			res = append(res, r)
		}
	}
	sortReviews(res, opts)
	return res
}

func (im *inmemImpl) FindAll(c ctx.Ctx, optFns ...review.FindAllOptionsFunc) ([]*review.Review, error) {
	opts, err := review.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("review.GetFindAllOptions failed")
		return nil, err
	}

	im.RLock()
	defer im.RUnlock()

	matched := im.findAll(opts)
	start, end := paginate(len(matched), opts)

	res := make([]*review.Review, 0, end-start)
	for _, r := range matched[start:end] {
		res = append(res, cloneReview(r))
	}
	return res, nil
}

func (im *inmemImpl) Count(c ctx.Ctx, optFns ...review.FindAllOptionsFunc) (int, error) {
	opts, err := review.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("review.GetFindAllOptions failed")
		return 0, err
	}

	im.RLock()
	defer im.RUnlock()

	count := 0
	for _, r := range im.reviews {
		if matchOptions(r, opts) {
			count++
		}
	}
	return count, nil
}

func (im *inmemImpl) FindOne(c ctx.Ctx, id string) (*review.Review, error) {
	im.RLock()
	defer im.RUnlock()

	r, ok := im.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneReview(r), nil
}

func (im *inmemImpl) Create(c ctx.Ctx, r *review.Review) error {
	im.Lock()
	defer im.Unlock()

	if _, ok := im.reviews[r.Id]; ok {
		return domain.ErrConflict
	}
	im.reviews[r.Id] = cloneReview(r)
	return nil
}

func (im *inmemImpl) Patch(c ctx.Ctx, id string, value review.Patchable) error {
	im.Lock()
	defer im.Unlock()

	r, ok := im.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}

	if value.SellerResponse != nil {
		v := *value.SellerResponse
		r.SellerResponse = &v
	}
	if value.UpdatedAt != nil {
		r.UpdatedAt = *value.UpdatedAt
	}
	return nil
}

func (im *inmemImpl) IncreaseHelpfulCount(c ctx.Ctx, id string, count int32) error {
	im.Lock()
	defer im.Unlock()

	r, ok := im.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.HelpfulCount += count
	return nil
}

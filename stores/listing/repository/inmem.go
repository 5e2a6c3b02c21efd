package repository

import (
	"sort"
	"sync"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
)

type inmemImpl struct {
	sync.RWMutex
	listings map[string]*listing.Listing
}

// NewInmem builds the default embedded store. Entries are deep copied on the
// way in and out so callers can never mutate shared state.
func NewInmem() listing.Repo {
	return &inmemImpl{
		listings: map[string]*listing.Listing{},
	}
}

func cloneListing(l *listing.Listing) *listing.Listing {
	cp := *l
	cp.Tags = append([]string(nil), l.Tags...)
	cp.Styles = append([]string(nil), l.Styles...)
	cp.Seasons = append([]string(nil), l.Seasons...)
	cp.Colors = append([]string(nil), l.Colors...)
	cp.Materials = append([]string(nil), l.Materials...)
	cp.Images = append([]string(nil), l.Images...)
	cp.AvailableLicenses = append([]listing.LicenseType(nil), l.AvailableLicenses...)
	cp.Pricing.BulkDiscounts = append([]listing.BulkDiscount(nil), l.Pricing.BulkDiscounts...)
	if l.Pricing.LicensePrices != nil {
		cp.Pricing.LicensePrices = map[listing.LicenseType]float64{}
		for k, v := range l.Pricing.LicensePrices {
			cp.Pricing.LicensePrices[k] = v
		}
	}
	if l.PublishedAt != nil {
		t := *l.PublishedAt
		cp.PublishedAt = &t
	}
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

func matchOptions(l *listing.Listing, opts listing.FindAllOptions) bool {
	if opts.Status != nil && l.Status != *opts.Status {
		return false
	}
	if opts.SellerId != nil && l.SellerId != *opts.SellerId {
		return false
	}
	if opts.DesignId != nil && l.DesignId != *opts.DesignId {
		return false
	}
	if opts.Category != nil && l.Category != *opts.Category {
		return false
	}
	if opts.IsFeatured != nil && l.IsFeatured != *opts.IsFeatured {
		return false
	}
	if opts.Ids != nil {
		found := false
		for _, id := range *opts.Ids {
			if l.Id == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortListings(items []*listing.Listing, opts listing.FindAllOptions) {
	// creation order with id tiebreak keeps results stable for pagination
	less := func(a, b *listing.Listing) bool {
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
		case "updatedAt":
			base = func(a, b *listing.Listing) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
		case "publishedAt":
			base = func(a, b *listing.Listing) bool {
				// unpublished entries order before any published time
				if a.PublishedAt == nil || b.PublishedAt == nil {
					return a.PublishedAt == nil && b.PublishedAt != nil
				}
				return a.PublishedAt.Before(*b.PublishedAt)
			}
		case "viewCount":
			base = func(a, b *listing.Listing) bool { return a.ViewCount < b.ViewCount }
		case "likeCount":
			base = func(a, b *listing.Listing) bool { return a.LikeCount < b.LikeCount }
		case "salesCount":
			base = func(a, b *listing.Listing) bool { return a.SalesCount < b.SalesCount }
		case "rating":
			base = func(a, b *listing.Listing) bool { return a.Rating < b.Rating }
		case "basePrice":
			base = func(a, b *listing.Listing) bool { return a.Pricing.BasePrice < b.Pricing.BasePrice }
		}
		if dir == domain.SortDirDesc {
			asc := base
			less = func(a, b *listing.Listing) bool { return asc(b, a) }
		} else {
			less = base
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func paginate(length int, opts listing.FindAllOptions) (int, int) {
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

func (im *inmemImpl) findAll(opts listing.FindAllOptions) []*listing.Listing {
	res := []*listing.Listing{}
	for _, l := range im.listings {
		if matchOptions(l, opts) {
			res = append(res, l)
		}
	}
	sortListings(res, opts)
	return res
}

func (im *inmemImpl) FindAll(c ctx.Ctx, optFns ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return nil, err
	}

	im.RLock()
	defer im.RUnlock()

	matched := im.findAll(opts)
	start, end := paginate(len(matched), opts)

	res := make([]*listing.Listing, 0, end-start)
	for _, l := range matched[start:end] {
		res = append(res, cloneListing(l))
	}
	return res, nil
}

func (im *inmemImpl) Count(c ctx.Ctx, optFns ...listing.FindAllOptionsFunc) (int, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return 0, err
	}

	im.RLock()
	defer im.RUnlock()

	count := 0
	for _, l := range im.listings {
		if matchOptions(l, opts) {
			count++
		}
	}
	return count, nil
}

func (im *inmemImpl) FindOne(c ctx.Ctx, id string) (*listing.Listing, error) {
	im.RLock()
	defer im.RUnlock()

	l, ok := im.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneListing(l), nil
}

func (im *inmemImpl) Create(c ctx.Ctx, l *listing.Listing) error {
	im.Lock()
	defer im.Unlock()

	if _, ok := im.listings[l.Id]; ok {
		return domain.ErrConflict
	}
	im.listings[l.Id] = cloneListing(l)
	return nil
}

func (im *inmemImpl) Patch(c ctx.Ctx, id string, value listing.Patchable) error {
	im.Lock()
	defer im.Unlock()

	l, ok := im.listings[id]
	if !ok {
		return domain.ErrNotFound
	}

	if value.Title != nil {
		l.Title = *value.Title
	}
	if value.Description != nil {
		l.Description = *value.Description
	}
	if value.Category != nil {
		l.Category = *value.Category
	}
	if value.Tags != nil {
		l.Tags = append([]string(nil), *value.Tags...)
	}
	if value.Styles != nil {
		l.Styles = append([]string(nil), *value.Styles...)
	}
	if value.Seasons != nil {
		l.Seasons = append([]string(nil), *value.Seasons...)
	}
	if value.Colors != nil {
		l.Colors = append([]string(nil), *value.Colors...)
	}
	if value.Materials != nil {
		l.Materials = append([]string(nil), *value.Materials...)
	}
	if value.Images != nil {
		l.Images = append([]string(nil), *value.Images...)
	}
	if value.Pricing != nil {
		l.Pricing = *value.Pricing
	}
	if value.AvailableLicenses != nil {
		l.AvailableLicenses = append([]listing.LicenseType(nil), *value.AvailableLicenses...)
	}
	if value.IsFeatured != nil {
		l.IsFeatured = *value.IsFeatured
	}
	if value.IsPromoted != nil {
		l.IsPromoted = *value.IsPromoted
	}
	if value.Status != nil {
		l.Status = *value.Status
	}
	if value.Rating != nil {
		l.Rating = *value.Rating
	}
	if value.ReviewCount != nil {
		l.ReviewCount = *value.ReviewCount
	}
	if value.PublishedAt != nil {
		t := *value.PublishedAt
		l.PublishedAt = &t
	}
	if value.ExpiresAt != nil {
		t := *value.ExpiresAt
		l.ExpiresAt = &t
	}
	if value.UpdatedAt != nil {
		l.UpdatedAt = *value.UpdatedAt
	}
	return nil
}

func (im *inmemImpl) IncreaseViewCount(c ctx.Ctx, id string, count int32) error {
	im.Lock()
	defer im.Unlock()

	l, ok := im.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.ViewCount += count
	return nil
}

func (im *inmemImpl) IncreaseLikeCount(c ctx.Ctx, id string, count int32) error {
	im.Lock()
	defer im.Unlock()

	l, ok := im.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.LikeCount += count
	if l.LikeCount < 0 {
		l.LikeCount = 0
	}
	return nil
}

func (im *inmemImpl) IncreaseSalesCount(c ctx.Ctx, id string, count int32) error {
	im.Lock()
	defer im.Unlock()

	l, ok := im.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.SalesCount += count
	return nil
}

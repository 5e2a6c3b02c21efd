package usecase

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/ptr"
	"github.com/atelierhq/marketapi/domain/keys"
	"github.com/atelierhq/marketapi/domain/listing"
	"github.com/atelierhq/marketapi/domain/search"
	"github.com/atelierhq/marketapi/service/cache"
	"github.com/atelierhq/marketapi/service/cache/provider/primitive"
)

const (
	searchCacheTTL   = 10 * time.Second
	showcaseCacheTTL = time.Minute
)

// price facet bands, the last one is open ended
var priceBands = []search.PriceBand{
	{Label: "0-50", Min: 0, Max: ptr.Float64(50)},
	{Label: "50-100", Min: 50, Max: ptr.Float64(100)},
	{Label: "100-500", Min: 100, Max: ptr.Float64(500)},
	{Label: "500-1000", Min: 500, Max: ptr.Float64(1000)},
	{Label: "1000+", Min: 1000},
}

type SearchUseCaseCfg struct {
	ListingRepo listing.Repo
}

type impl struct {
	listing  listing.Repo
	results  cache.Service
	showcase cache.Service
}

func New(cfg *SearchUseCaseCfg) search.Usecase {
	return &impl{
		listing: cfg.ListingRepo,
		results: cache.New(cache.ServiceConfig{
			Ttl:   searchCacheTTL,
			Pfx:   keys.PfxSearch,
			Cache: primitive.NewPrimitive(keys.PfxSearch, 16),
		}),
		showcase: cache.New(cache.ServiceConfig{
			Ttl:   showcaseCacheTTL,
			Pfx:   keys.PfxShowcase,
			Cache: primitive.NewPrimitive(keys.PfxShowcase, 8),
		}),
	}
}

func (im *impl) Search(c ctx.Ctx, params search.Params) (*search.Result, error) {
	res := &search.Result{}
	err := im.results.GetByFunc(c, searchKey(params), res, func() (interface{}, error) {
		return im.search(c, params)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func searchKey(params search.Params) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return "unkeyed"
	}
	return keys.MD5(string(raw))
}

func (im *impl) search(c ctx.Ctx, params search.Params) (*search.Result, error) {
	snapshot, err := im.activeSnapshot(c)
	if err != nil {
		return nil, err
	}

	filtered := []*listing.Listing{}
	for _, l := range snapshot {
		if matchesQuery(l, params.Query) && matchesFilters(l, params) {
			filtered = append(filtered, l)
		}
	}

	// facets describe the whole filtered population, not the returned page
	facets := computeFacets(filtered)

	sortResults(filtered, params.SortBy)

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	total := len(filtered)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &search.Result{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Facets:     facets,
	}, nil
}

func (im *impl) activeSnapshot(c ctx.Ctx) ([]*listing.Listing, error) {
	snapshot, err := im.listing.FindAll(c, listing.WithStatus(listing.StatusActive))
	if err != nil {
		c.WithField("err", err).Error("listing.FindAll failed")
		return nil, err
	}
	return snapshot, nil
}

func matchesQuery(l *listing.Listing, query string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	if strings.Contains(strings.ToLower(l.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Description), query) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func matchesFilters(l *listing.Listing, params search.Params) bool {
	if len(params.Categories) > 0 && !containsCategory(params.Categories, l.Category) {
		return false
	}
	if params.MinPrice != nil && l.Pricing.BasePrice < *params.MinPrice {
		return false
	}
	if params.MaxPrice != nil && l.Pricing.BasePrice > *params.MaxPrice {
		return false
	}
	if len(params.Licenses) > 0 && !intersectsLicenses(l.AvailableLicenses, params.Licenses) {
		return false
	}
	if len(params.Colors) > 0 && !intersects(l.Colors, params.Colors) {
		return false
	}
	if len(params.Styles) > 0 && !intersects(l.Styles, params.Styles) {
		return false
	}
	if len(params.Seasons) > 0 && !matchesSeasons(l.Seasons, params.Seasons) {
		return false
	}
	if params.SellerId != nil && l.SellerId != *params.SellerId {
		return false
	}
	if params.IsFeatured != nil && l.IsFeatured != *params.IsFeatured {
		return false
	}
	return true
}

func containsCategory(set []listing.Category, c listing.Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}

func intersectsLicenses(have, want []listing.LicenseType) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// matchesSeasons treats a listing tagged "all" as part of every season.
func matchesSeasons(have, want []string) bool {
	for _, h := range have {
		if h == listing.SeasonAll {
			return true
		}
	}
	return intersects(have, want)
}

func computeFacets(items []*listing.Listing) search.Facets {
	facets := search.Facets{
		Categories: map[string]int{},
		Colors:     map[string]int{},
		Styles:     map[string]int{},
	}

	for _, l := range items {
		facets.Categories[string(l.Category)]++
		for _, color := range l.Colors {
			facets.Colors[color]++
		}
		for _, style := range l.Styles {
			facets.Styles[style]++
		}
	}

	for _, band := range priceBands {
		band.Count = 0
		for _, l := range items {
			if bandContains(band, l.Pricing.BasePrice) {
				band.Count++
			}
		}
		facets.PriceBands = append(facets.PriceBands, band)
	}

	return facets
}

// bandContains checks min <= price < max with decimal comparison so a listing
// priced exactly on a band edge lands in the band above it.
func bandContains(band search.PriceBand, price float64) bool {
	p := decimal.NewFromFloat(price)
	if p.Cmp(decimal.NewFromFloat(band.Min)) < 0 {
		return false
	}
	if band.Max != nil && p.Cmp(decimal.NewFromFloat(*band.Max)) >= 0 {
		return false
	}
	return true
}

func relevanceScore(l *listing.Listing) float64 {
	score := 0.1 * float64(l.ViewCount)
	if l.IsFeatured {
		score += 100
	}
	if l.IsPromoted {
		score += 50
	}
	return score
}

func trendingScore(l *listing.Listing) int64 {
	return int64(l.ViewCount) + 5*int64(l.LikeCount) + 20*int64(l.SalesCount)
}

func sortResults(items []*listing.Listing, sortBy search.SortBy) {
	var less func(a, b *listing.Listing) bool

	switch sortBy {
	case search.SortByPriceLow:
		less = func(a, b *listing.Listing) bool { return a.Pricing.BasePrice < b.Pricing.BasePrice }
	case search.SortByPriceHigh:
		less = func(a, b *listing.Listing) bool { return a.Pricing.BasePrice > b.Pricing.BasePrice }
	case search.SortByNewest:
		// unpublished entries sort to the tail
		less = func(a, b *listing.Listing) bool {
			if a.PublishedAt == nil {
				return false
			}
			if b.PublishedAt == nil {
				return true
			}
			return a.PublishedAt.After(*b.PublishedAt)
		}
	case search.SortByPopular:
		less = func(a, b *listing.Listing) bool { return a.SalesCount > b.SalesCount }
	case search.SortByRating:
		less = func(a, b *listing.Listing) bool { return a.Rating > b.Rating }
	default:
		less = func(a, b *listing.Listing) bool { return relevanceScore(a) > relevanceScore(b) }
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (im *impl) Featured(c ctx.Ctx, limit int) ([]*listing.Listing, error) {
	if limit <= 0 {
		limit = search.DefaultCap
	}

	res := []*listing.Listing{}
	key := keys.RedisKey("featured", strconv.Itoa(limit))
	err := im.showcase.GetByFunc(c, key, &res, func() (interface{}, error) {
		snapshot, err := im.listing.FindAll(c,
			listing.WithStatus(listing.StatusActive),
			listing.WithIsFeatured(true),
		)
		if err != nil {
			c.WithField("err", err).Error("listing.FindAll failed")
			return nil, err
		}

		sort.SliceStable(snapshot, func(i, j int) bool {
			return snapshot[i].ViewCount > snapshot[j].ViewCount
		})
		if len(snapshot) > limit {
			snapshot = snapshot[:limit]
		}
		return &snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) Trending(c ctx.Ctx, limit int) ([]*listing.Listing, error) {
	if limit <= 0 {
		limit = search.DefaultCap
	}

	res := []*listing.Listing{}
	key := keys.RedisKey("trending", strconv.Itoa(limit))
	err := im.showcase.GetByFunc(c, key, &res, func() (interface{}, error) {
		snapshot, err := im.activeSnapshot(c)
		if err != nil {
			return nil, err
		}

		sort.SliceStable(snapshot, func(i, j int) bool {
			return trendingScore(snapshot[i]) > trendingScore(snapshot[j])
		})
		if len(snapshot) > limit {
			snapshot = snapshot[:limit]
		}
		return &snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) SimilarTo(c ctx.Ctx, listingId string, limit int) ([]*listing.Listing, error) {
	if limit <= 0 {
		limit = search.DefaultCap
	}

	anchor, err := im.listing.FindOne(c, listingId)
	if err != nil {
		c.WithField("err", err).Error("listing.FindOne failed")
		return nil, err
	}

	snapshot, err := im.activeSnapshot(c)
	if err != nil {
		return nil, err
	}

	res := []*listing.Listing{}
	for _, l := range snapshot {
		if l.Id == anchor.Id {
			continue
		}
		if l.Category == anchor.Category || intersects(l.Tags, anchor.Tags) || intersects(l.Styles, anchor.Styles) {
			res = append(res, l)
			if len(res) == limit {
				break
			}
		}
	}
	return res, nil
}

package search

import (
	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain/listing"
)

type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByPriceLow  SortBy = "price_low"
	SortByPriceHigh SortBy = "price_high"
	SortByNewest    SortBy = "newest"
	SortByPopular   SortBy = "popular"
	SortByRating    SortBy = "rating"
)

const (
	DefaultLimit = 20
	// DefaultCap bounds featured/trending/similar result sizes
	DefaultCap = 10
)

// Params describes one faceted query over the active listings. Filters are
// conjunctive; zero values mean "not filtered".
type Params struct {
	Query      string                `json:"query" query:"query"`
	Categories []listing.Category    `json:"categories" query:"category"`
	MinPrice   *float64              `json:"minPrice" query:"minPrice"`
	MaxPrice   *float64              `json:"maxPrice" query:"maxPrice"`
	Licenses   []listing.LicenseType `json:"licenses" query:"license"`
	Colors     []string              `json:"colors" query:"color"`
	Styles     []string              `json:"styles" query:"style"`
	Seasons    []string              `json:"seasons" query:"season"`
	SellerId   *string               `json:"sellerId" query:"sellerId"`
	IsFeatured *bool                 `json:"isFeatured" query:"isFeatured"`
	SortBy     SortBy                `json:"sortBy" query:"sortBy"`
	Page       int                   `json:"page" query:"page"`
	Limit      int                   `json:"limit" query:"limit"`
}

// PriceBand is one fixed price interval of the price facet. Max is nil on
// the open-ended top band.
type PriceBand struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"`
	Count int      `json:"count"`
}

// Facets counts the filtered population (before sorting and pagination)
// along the refinement dimensions.
type Facets struct {
	Categories map[string]int `json:"categories"`
	Colors     map[string]int `json:"colors"`
	Styles     map[string]int `json:"styles"`
	PriceBands []PriceBand    `json:"priceBands"`
}

type Result struct {
	Items      []*listing.Listing `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
	Facets     Facets             `json:"facets"`
}

type Usecase interface {
	Search(c ctx.Ctx, params Params) (*Result, error)
	Featured(c ctx.Ctx, limit int) ([]*listing.Listing, error)
	Trending(c ctx.Ctx, limit int) ([]*listing.Listing, error)
	SimilarTo(c ctx.Ctx, listingId string, limit int) ([]*listing.Listing, error)
}

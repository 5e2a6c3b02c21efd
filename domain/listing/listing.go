package listing

import (
	"time"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
)

type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusActive        Status = "active"
	StatusSold          Status = "sold"
	StatusSuspended     Status = "suspended"
	StatusExpired       Status = "expired"
	StatusArchived      Status = "archived"
)

type Category string

const (
	CategoryApparel     Category = "apparel"
	CategoryAccessories Category = "accessories"
	CategoryFootwear    Category = "footwear"
	CategoryHomeDecor   Category = "home_decor"
	CategoryTextile     Category = "textile"
	CategoryGraphic     Category = "graphic"
	CategoryPackaging   Category = "packaging"
)

var categories = map[Category]struct{}{
	CategoryApparel:     {},
	CategoryAccessories: {},
	CategoryFootwear:    {},
	CategoryHomeDecor:   {},
	CategoryTextile:     {},
	CategoryGraphic:     {},
	CategoryPackaging:   {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

type LicenseType string

const (
	LicenseTypeExclusive    LicenseType = "exclusive"
	LicenseTypeNonExclusive LicenseType = "non_exclusive"
	LicenseTypeLimitedRun   LicenseType = "limited_run"
	LicenseTypeUnlimited    LicenseType = "unlimited"
)

// SeasonAll marks a listing as matching every season filter.
const SeasonAll = "all"

type BulkDiscount struct {
	MinQuantity int32   `json:"minQuantity" bson:"minQuantity"`
	PercentOff  float64 `json:"percentOff" bson:"percentOff"`
}

type Pricing struct {
	BasePrice     float64                 `json:"basePrice" bson:"basePrice"`
	Currency      string                  `json:"currency" bson:"currency"`
	LicensePrices map[LicenseType]float64 `json:"licensePrices" bson:"licensePrices"`
	BulkDiscounts []BulkDiscount          `json:"bulkDiscounts" bson:"bulkDiscounts"`
}

type Listing struct {
	Id          string   `json:"id" bson:"id"`
	DesignId    string   `json:"designId" bson:"designId"`
	SellerId    string   `json:"sellerId" bson:"sellerId"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	Category    Category `json:"category" bson:"category"`
	Tags        []string `json:"tags" bson:"tags"`
	Styles      []string `json:"styles" bson:"styles"`
	Seasons     []string `json:"seasons" bson:"seasons"`
	Colors      []string `json:"colors" bson:"colors"`
	Materials   []string `json:"materials" bson:"materials"`
	// Images keeps upload order, the first entry is the cover
	Images            []string      `json:"images" bson:"images"`
	Pricing           Pricing       `json:"pricing" bson:"pricing"`
	AvailableLicenses []LicenseType `json:"availableLicenses" bson:"availableLicenses"`
	IsFeatured        bool          `json:"isFeatured" bson:"isFeatured"`
	IsPromoted        bool          `json:"isPromoted" bson:"isPromoted"`
	Status            Status        `json:"status" bson:"status"`
	// counters are owned by engagement calls and the review aggregator,
	// clients never write them directly
	ViewCount   int32      `json:"viewCount" bson:"viewCount"`
	LikeCount   int32      `json:"likeCount" bson:"likeCount"`
	SalesCount  int32      `json:"salesCount" bson:"salesCount"`
	Rating      float64    `json:"rating" bson:"rating"`
	ReviewCount int32      `json:"reviewCount" bson:"reviewCount"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" bson:"publishedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" bson:"expiresAt"`
}

// CreateParams carries the structural fields of a new draft. Images and
// licenses may be empty at draft time, the publication gate enforces them
// later.
type CreateParams struct {
	DesignId          string        `json:"designId" validate:"required"`
	SellerId          string        `json:"sellerId" validate:"required"`
	Title             string        `json:"title" validate:"required"`
	Description       string        `json:"description"`
	Category          Category      `json:"category" validate:"required"`
	Tags              []string      `json:"tags"`
	Styles            []string      `json:"styles"`
	Seasons           []string      `json:"seasons"`
	Colors            []string      `json:"colors"`
	Materials         []string      `json:"materials"`
	Images            []string      `json:"images"`
	Pricing           *Pricing      `json:"pricing" validate:"required"`
	AvailableLicenses []LicenseType `json:"availableLicenses"`
	IsFeatured        bool          `json:"isFeatured"`
	IsPromoted        bool          `json:"isPromoted"`
	ExpiresAt         *time.Time    `json:"expiresAt"`
}

type Patchable struct {
	Title             *string        `json:"title" bson:"title,omitempty"`
	Description       *string        `json:"description" bson:"description,omitempty"`
	Category          *Category      `json:"category" bson:"category,omitempty"`
	Tags              *[]string      `json:"tags" bson:"tags,omitempty"`
	Styles            *[]string      `json:"styles" bson:"styles,omitempty"`
	Seasons           *[]string      `json:"seasons" bson:"seasons,omitempty"`
	Colors            *[]string      `json:"colors" bson:"colors,omitempty"`
	Materials         *[]string      `json:"materials" bson:"materials,omitempty"`
	Images            *[]string      `json:"images" bson:"images,omitempty"`
	Pricing           *Pricing       `json:"pricing" bson:"pricing,omitempty"`
	AvailableLicenses *[]LicenseType `json:"availableLicenses" bson:"availableLicenses,omitempty"`
	IsFeatured        *bool          `json:"isFeatured" bson:"isFeatured,omitempty"`
	IsPromoted        *bool          `json:"isPromoted" bson:"isPromoted,omitempty"`
	Status            *Status        `json:"-" bson:"status,omitempty"`
	Rating            *float64       `json:"-" bson:"rating,omitempty"`
	ReviewCount       *int32         `json:"-" bson:"reviewCount,omitempty"`
	PublishedAt       *time.Time     `json:"-" bson:"publishedAt,omitempty"`
	ExpiresAt         *time.Time     `json:"expiresAt" bson:"expiresAt,omitempty"`
	UpdatedAt         *time.Time     `json:"-" bson:"updatedAt,omitempty"`
}

type FindAllOptions struct {
	SortBy     *string
	SortDir    *domain.SortDir
	Offset     *int32
	Limit      *int32
	Status     *Status
	SellerId   *string
	DesignId   *string
	Category   *Category
	IsFeatured *bool
	Ids        *[]string
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}

	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func WithSort(sortby string, sortdir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &sortby
		options.SortDir = &sortdir
		return nil
	}
}

func WithPagination(offset int32, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithStatus(status Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Status = &status
		return nil
	}
}

func WithSellerId(sellerId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SellerId = &sellerId
		return nil
	}
}

func WithDesignId(designId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.DesignId = &designId
		return nil
	}
}

func WithCategory(category Category) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Category = &category
		return nil
	}
}

func WithIsFeatured(isFeatured bool) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.IsFeatured = &isFeatured
		return nil
	}
}

func WithIds(ids []string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Ids = &ids
		return nil
	}
}

type Repo interface {
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
	Count(c ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	FindOne(c ctx.Ctx, id string) (*Listing, error)
	Create(c ctx.Ctx, l *Listing) error
	Patch(c ctx.Ctx, id string, value Patchable) error
	IncreaseViewCount(c ctx.Ctx, id string, count int32) error
	// IncreaseLikeCount floors the counter at zero when count is negative
	IncreaseLikeCount(c ctx.Ctx, id string, count int32) error
	IncreaseSalesCount(c ctx.Ctx, id string, count int32) error
}

type Usecase interface {
	Create(c ctx.Ctx, params CreateParams) (*Listing, error)
	FindOne(c ctx.Ctx, id string) (*Listing, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
	SubmitForReview(c ctx.Ctx, id string) (*Listing, error)
	Publish(c ctx.Ctx, id string) (*Listing, error)
	Update(c ctx.Ctx, id string, value Patchable) (*Listing, error)
	Archive(c ctx.Ctx, id string) (*Listing, error)
	RecordView(c ctx.Ctx, id string) error
	RecordLike(c ctx.Ctx, id string) error
	RecordUnlike(c ctx.Ctx, id string) error
	RecordSale(c ctx.Ctx, id string) error
}

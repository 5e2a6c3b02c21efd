package review

import (
	"time"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
)

const (
	MinRating = int32(1)
	MaxRating = int32(5)
)

type SellerResponse struct {
	Content     string    `json:"content" bson:"content"`
	RespondedAt time.Time `json:"respondedAt" bson:"respondedAt"`
}

type Review struct {
	Id         string `json:"id" bson:"id"`
	ListingId  string `json:"listingId" bson:"listingId"`
	// LicenseId is the purchase proof issued by the licensing collaborator
	LicenseId          string           `json:"licenseId" bson:"licenseId"`
	ReviewerId         string           `json:"reviewerId" bson:"reviewerId"`
	SellerId           string           `json:"sellerId" bson:"sellerId"`
	Rating             int32            `json:"rating" bson:"rating"`
	Content            string           `json:"content" bson:"content"`
	SubRatings         map[string]int32 `json:"subRatings" bson:"subRatings"`
	HelpfulCount       int32            `json:"helpfulCount" bson:"helpfulCount"`
	IsVerifiedPurchase bool             `json:"isVerifiedPurchase" bson:"isVerifiedPurchase"`
	SellerResponse     *SellerResponse  `json:"sellerResponse,omitempty" bson:"sellerResponse"`
	CreatedAt          time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt" bson:"updatedAt"`
}

type CreateParams struct {
	ListingId  string           `json:"listingId" validate:"required"`
	LicenseId  string           `json:"licenseId" validate:"required"`
	ReviewerId string           `json:"reviewerId" validate:"required"`
	Rating     int32            `json:"rating" validate:"min=1,max=5"`
	Content    string           `json:"content"`
	SubRatings map[string]int32 `json:"subRatings"`
}

type Patchable struct {
	SellerResponse *SellerResponse `json:"-" bson:"sellerResponse,omitempty"`
	UpdatedAt      *time.Time      `json:"-" bson:"updatedAt,omitempty"`
}

// PurchaseVerifier is the licensing collaborator verdict consumed before a
// review is accepted.
type PurchaseVerifier interface {
	VerifyPurchase(c ctx.Ctx, licenseId string, listingId string, reviewerId string) (bool, error)
}

type FindAllOptions struct {
	SortBy     *string
	SortDir    *domain.SortDir
	Offset     *int32
	Limit      *int32
	ListingId  *string
	ReviewerId *string
	SellerId   *string
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

func WithListingId(listingId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ListingId = &listingId
		return nil
	}
}

func WithReviewerId(reviewerId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ReviewerId = &reviewerId
		return nil
	}
}

func WithSellerId(sellerId string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SellerId = &sellerId
		return nil
	}
}

type Repo interface {
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Review, error)
	Count(c ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	FindOne(c ctx.Ctx, id string) (*Review, error)
	Create(c ctx.Ctx, r *Review) error
	Patch(c ctx.Ctx, id string, value Patchable) error
	IncreaseHelpfulCount(c ctx.Ctx, id string, count int32) error
}

type Usecase interface {
	Create(c ctx.Ctx, params CreateParams) (*Review, error)
	FindOne(c ctx.Ctx, id string) (*Review, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Review, error)
	MarkHelpful(c ctx.Ctx, id string) (*Review, error)
	RespondToReview(c ctx.Ctx, id string, content string) (*Review, error)
}

package domain

import "github.com/atelierhq/marketapi/base/pubsub"

// event topics emitted by the engine
const (
	TopicListingPublished pubsub.Topic = "listing_published"
	TopicReviewPosted     pubsub.Topic = "review_posted"
)

// ListingPublishedEvent is the payload published on TopicListingPublished.
type ListingPublishedEvent struct {
	ListingId string `json:"listingId"`
}

// ReviewPostedEvent is the payload published on TopicReviewPosted.
type ReviewPostedEvent struct {
	ReviewId string `json:"reviewId"`
	Rating   int32  `json:"rating"`
}

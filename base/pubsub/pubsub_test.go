package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/marketapi/base/ctx"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	req := require.New(t)

	bus := New()
	got := []string{}

	bus.Subscribe("listing_published", func(c ctx.Ctx, payload interface{}) {
		got = append(got, "first:"+payload.(string))
	})
	bus.Subscribe("listing_published", func(c ctx.Ctx, payload interface{}) {
		got = append(got, "second:"+payload.(string))
	})

	bus.Publish(ctx.Background(), "listing_published", "l-1")
	bus.Publish(ctx.Background(), "listing_published", "l-2")

	req.Equal([]string{"first:l-1", "second:l-1", "first:l-2", "second:l-2"}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	req := require.New(t)

	bus := New()
	calls := 0

	unsubscribe := bus.Subscribe("review_posted", func(c ctx.Ctx, payload interface{}) {
		calls++
	})

	bus.Publish(ctx.Background(), "review_posted", nil)
	unsubscribe()
	unsubscribe() // second call is a no-op
	bus.Publish(ctx.Background(), "review_posted", nil)

	req.Equal(1, calls)
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	req := require.New(t)

	bus := New()
	calls := 0

	bus.Subscribe("listing_published", func(c ctx.Ctx, payload interface{}) {
		calls++
	})

	bus.Publish(ctx.Background(), "review_posted", nil)

	req.Zero(calls)
}

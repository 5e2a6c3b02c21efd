package compoundcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/service/cache"
	"github.com/atelierhq/marketapi/service/cache/provider/primitive"
)

var (
	mockCtx = ctx.Background()
)

type cachedListing struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type testsuite struct {
	suite.Suite
	im     *impl
	local  cache.Service
	shared cache.Service
}

func (ts *testsuite) SetupTest() {
	ts.local = cache.New(cache.ServiceConfig{
		Ttl:   time.Second,
		Pfx:   "listing",
		Cache: primitive.NewPrimitive("local", 8),
	})

	ts.shared = cache.New(cache.ServiceConfig{
		Ttl:   2 * time.Second,
		Pfx:   "listing",
		Cache: primitive.NewPrimitive("shared", 8),
	})

	ts.im = NewCompoundCache([]cache.Service{
		ts.local,
		ts.shared,
	}).(*impl)
}

func Test(t *testing.T) {
	suite.Run(t, new(testsuite))
}

func (ts *testsuite) TestGet() {
	var (
		k = "7d1f"
		v = cachedListing{ID: "7d1f", Title: "walnut side table"}
		c = &cachedListing{}
	)

	ts.Equal(cache.ErrNotFound, ts.im.Get(mockCtx, k, c))

	// hit in the first layer
	ts.NoError(ts.local.Set(mockCtx, k, v))
	ts.NoError(ts.im.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	time.Sleep(time.Second)

	ts.Equal(cache.ErrNotFound, ts.local.Get(mockCtx, k, c))

	// hit in the second layer refills the first
	ts.NoError(ts.shared.Set(mockCtx, k, v))
	ts.NoError(ts.im.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	ts.NoError(ts.local.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	time.Sleep(time.Second)

	ts.Equal(cache.ErrNotFound, ts.local.Get(mockCtx, k, c))
}

func (ts *testsuite) TestSet() {
	var (
		k = "7d1f"
		v = cachedListing{ID: "7d1f", Title: "walnut side table"}
		c = &cachedListing{}
	)

	ts.NoError(ts.im.Set(mockCtx, k, v))

	ts.NoError(ts.local.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	ts.NoError(ts.shared.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	time.Sleep(time.Second)

	ts.Equal(cache.ErrNotFound, ts.local.Get(mockCtx, k, c))

	time.Sleep(time.Second)

	ts.Equal(cache.ErrNotFound, ts.shared.Get(mockCtx, k, c))
}

func (ts *testsuite) TestDel() {
	var (
		k = "7d1f"
		v = cachedListing{ID: "7d1f", Title: "walnut side table"}
		c = &cachedListing{}
	)

	ts.NoError(ts.im.Set(mockCtx, k, v))
	ts.NoError(ts.im.Del(mockCtx, k))

	ts.Equal(cache.ErrNotFound, ts.local.Get(mockCtx, k, c))
	ts.Equal(cache.ErrNotFound, ts.shared.Get(mockCtx, k, c))
	ts.Equal(cache.ErrNotFound, ts.im.Get(mockCtx, k, c))
}

func (ts *testsuite) TestGetByFunc() {
	var (
		k = "7d1f"
		v = cachedListing{ID: "7d1f", Title: "walnut side table"}
		c = &cachedListing{}
	)

	ts.NoError(ts.im.GetByFunc(mockCtx, k, c, func() (interface{}, error) {
		return &v, nil
	}))

	ts.Equal(v, *c)

	ts.NoError(ts.local.Get(mockCtx, k, c))
	ts.Equal(v, *c)

	ts.NoError(ts.shared.Get(mockCtx, k, c))
	ts.Equal(v, *c)
}

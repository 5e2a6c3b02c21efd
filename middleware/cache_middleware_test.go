package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/atelierhq/marketapi/base/ctx"
)

type cacheMiddlewareSuite struct {
	suite.Suite
}

func (s *cacheMiddlewareSuite) SetupSuite() {
	// local layer only, the same shape the memory backend runs with
	SetupCache(nil)
}

func TestCacheMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(cacheMiddlewareSuite))
}

func (s *cacheMiddlewareSuite) TestCacheMiddleware() {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/listings?sort=latest", nil)
	rec := httptest.NewRecorder()
	res := `{"items":["walnut side table"]}`
	h := func(c echo.Context) error {
		return c.String(http.StatusOK, res)
	}

	c := e.NewContext(req, rec)
	cont := ctx.WithValue(ctx.Background(), "requestID", c.Response().Header().Get(echo.HeaderXRequestID))
	c.Set("ctx", cont)

	if s.NoError(CacheHttp(30 * time.Second)(h)(c)) {
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(res, rec.Body.String())
	}

	// the second handler never runs, the first response is replayed
	req2 := httptest.NewRequest(http.MethodGet, "/listings?sort=latest", nil)
	rec2 := httptest.NewRecorder()
	h2 := func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh body")
	}
	c2 := e.NewContext(req2, rec2)
	c2.Set("ctx", cont)

	if s.NoError(CacheHttp(30 * time.Second)(h2)(c2)) {
		s.Equal(http.StatusOK, rec2.Code)
		s.Equal(res, rec2.Body.String())
	}
}

func (s *cacheMiddlewareSuite) TestCacheMiddlewareSkipsErrors() {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/listings/missing", nil)
	rec := httptest.NewRecorder()
	h := func(c echo.Context) error {
		return c.String(http.StatusNotFound, "not found")
	}

	c := e.NewContext(req, rec)
	cont := ctx.WithValue(ctx.Background(), "requestID", c.Response().Header().Get(echo.HeaderXRequestID))
	c.Set("ctx", cont)

	if s.NoError(CacheHttp(30 * time.Second)(h)(c)) {
		s.Equal(http.StatusNotFound, rec.Code)
	}

	// error responses are not cached, the next request reaches the handler
	req2 := httptest.NewRequest(http.MethodGet, "/listings/missing", nil)
	rec2 := httptest.NewRecorder()
	h2 := func(c echo.Context) error {
		return c.String(http.StatusOK, "found now")
	}
	c2 := e.NewContext(req2, rec2)
	c2.Set("ctx", cont)

	if s.NoError(CacheHttp(30 * time.Second)(h2)(c2)) {
		s.Equal(http.StatusOK, rec2.Code)
		s.Equal("found now", rec2.Body.String())
	}
}

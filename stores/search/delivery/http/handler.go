package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/delivery"
	"github.com/atelierhq/marketapi/domain/search"
	"github.com/atelierhq/marketapi/middleware"
)

type handler struct {
	search search.Usecase
}

// New registers the faceted search pipeline and the showcase shelves.
func New(e *echo.Echo, search search.Usecase) {
	h := &handler{search: search}

	g := e.Group("/search")

	g.GET("", h.searchListings)

	g.GET("/featured", h.featured, middleware.CacheHttp(30*time.Second))

	g.GET("/trending", h.trending, middleware.CacheHttp(30*time.Second))

	g.GET("/similar/:id", h.similar)
}

func (h *handler) searchListings(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := search.Params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.search.Search(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) featured(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Limit int `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.search.Featured(ctx, p.Limit); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) trending(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Limit int `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.search.Trending(ctx, p.Limit); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) similar(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Id    string `param:"id"`
		Limit int    `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.search.SimilarTo(ctx, p.Id, p.Limit); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

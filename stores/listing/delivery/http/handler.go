package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/delivery"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/listing"
)

var met metrics.Service

type handler struct {
	listing listing.Usecase
}

// New registers listing lifecycle, query and engagement endpoints.
func New(e *echo.Echo, listingUC listing.Usecase) {
	met = metrics.New("listing")

	h := &handler{listingUC}

	gs := e.Group("/listings")

	gs.POST("", h.create)

	gs.GET("", h.getAll)

	g := e.Group("/listing/:id")

	g.GET("", h.get, h.listingRequestCount())

	g.PATCH("", h.update)

	g.POST("/submit-review", h.submitForReview)

	g.POST("/publish", h.publish)

	g.POST("/archive", h.archive)

	g.POST("/view", h.recordView)

	g.POST("/like", h.recordLike)

	g.DELETE("/like", h.recordUnlike)

	g.POST("/sale", h.recordSale)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := listing.CreateParams{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.listing.Create(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) getAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Status     *listing.Status   `query:"status"`
		SellerId   *string           `query:"sellerId"`
		DesignId   *string           `query:"designId"`
		Category   *listing.Category `query:"category"`
		IsFeatured *bool             `query:"isFeatured"`
		SortBy     string            `query:"sortBy"`
		SortDir    string            `query:"sortDir"`
		Offset     int32             `query:"offset"`
		Limit      int32             `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []listing.FindAllOptionsFunc{}

	if p.Status != nil {
		opts = append(opts, listing.WithStatus(*p.Status))
	}

	if p.SellerId != nil {
		opts = append(opts, listing.WithSellerId(*p.SellerId))
	}

	if p.DesignId != nil {
		opts = append(opts, listing.WithDesignId(*p.DesignId))
	}

	if p.Category != nil {
		opts = append(opts, listing.WithCategory(*p.Category))
	}

	if p.IsFeatured != nil {
		opts = append(opts, listing.WithIsFeatured(*p.IsFeatured))
	}

	if p.SortBy != "" {
		dir := domain.SortDirAsc
		if p.SortDir == "desc" {
			dir = domain.SortDirDesc
		}
		opts = append(opts, listing.WithSort(p.SortBy, dir))
	}

	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, listing.WithPagination(p.Offset, p.Limit))
	}

	if res, err := h.listing.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) listingRequestCount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			met.BumpSum("get.count", 1, "listing", c.Param("id"))
			return next(c)
		}
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.listing.FindOne(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := listing.Patchable{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.listing.Update(ctx, c.Param("id"), p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) submitForReview(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.listing.SubmitForReview(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) publish(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.listing.Publish(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) archive(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.listing.Archive(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) recordView(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if err := h.listing.RecordView(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "")
}

func (h *handler) recordLike(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if err := h.listing.RecordLike(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "")
}

func (h *handler) recordUnlike(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if err := h.listing.RecordUnlike(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "")
}

func (h *handler) recordSale(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if err := h.listing.RecordSale(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "")
}

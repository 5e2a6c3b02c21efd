package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/delivery"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/review"
)

var met metrics.Service

type handler struct {
	review review.Usecase
}

// New registers review posting, browsing and response endpoints.
func New(e *echo.Echo, reviewUC review.Usecase) {
	met = metrics.New("review")

	h := &handler{reviewUC}

	gs := e.Group("/reviews")

	gs.POST("", h.create, h.reviewPostCount())

	gs.GET("", h.getAll)

	g := e.Group("/review/:id")

	g.GET("", h.get)

	g.POST("/helpful", h.markHelpful)

	g.POST("/respond", h.respond)
}

func (h *handler) reviewPostCount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			met.BumpSum("post.count", 1)
			return next(c)
		}
	}
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := review.CreateParams{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.review.Create(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) getAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		ListingId  *string `query:"listingId"`
		ReviewerId *string `query:"reviewerId"`
		SellerId   *string `query:"sellerId"`
		SortBy     string  `query:"sortBy"`
		SortDir    string  `query:"sortDir"`
		Offset     int32   `query:"offset"`
		Limit      int32   `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []review.FindAllOptionsFunc{}

	if p.ListingId != nil {
		opts = append(opts, review.WithListingId(*p.ListingId))
	}

	if p.ReviewerId != nil {
		opts = append(opts, review.WithReviewerId(*p.ReviewerId))
	}

	if p.SellerId != nil {
		opts = append(opts, review.WithSellerId(*p.SellerId))
	}

	if p.SortBy != "" {
		dir := domain.SortDirAsc
		if p.SortDir == "desc" {
			dir = domain.SortDirDesc
		}
		opts = append(opts, review.WithSort(p.SortBy, dir))
	}

	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, review.WithPagination(p.Offset, p.Limit))
	}

	if res, err := h.review.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.review.FindOne(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) markHelpful(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.review.MarkHelpful(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) respond(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Content string `json:"content"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.review.RespondToReview(ctx, c.Param("id"), p.Content); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

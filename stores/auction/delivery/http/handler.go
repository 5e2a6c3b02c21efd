package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/delivery"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
)

var met metrics.Service

type handler struct {
	auction auction.Usecase
}

// New registers auction lifecycle and bidding endpoints.
func New(e *echo.Echo, auctionUC auction.Usecase) {
	met = metrics.New("auction")

	h := &handler{auctionUC}

	gs := e.Group("/auctions")

	gs.POST("", h.create)

	gs.GET("", h.getAll)

	g := e.Group("/auction/:id")

	g.GET("", h.get)

	g.POST("/bids", h.placeBid, h.bidRequestCount())

	g.GET("/bids", h.listBids)

	g.POST("/cancel", h.cancel)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := auction.CreateParams{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if res, err := h.auction.Create(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) getAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Status    *auction.Status `query:"status"`
		ListingId *string         `query:"listingId"`
		SellerId  *string         `query:"sellerId"`
		SortBy    string          `query:"sortBy"`
		SortDir   string          `query:"sortDir"`
		Offset    int32           `query:"offset"`
		Limit     int32           `query:"limit"`
	}

	p := params{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []auction.FindAllOptionsFunc{}

	if p.Status != nil {
		opts = append(opts, auction.WithStatus(*p.Status))
	}

	if p.ListingId != nil {
		opts = append(opts, auction.WithListingId(*p.ListingId))
	}

	if p.SellerId != nil {
		opts = append(opts, auction.WithSellerId(*p.SellerId))
	}

	if p.SortBy != "" {
		dir := domain.SortDirAsc
		if p.SortDir == "desc" {
			dir = domain.SortDirDesc
		}
		opts = append(opts, auction.WithSort(p.SortBy, dir))
	}

	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, auction.WithPagination(p.Offset, p.Limit))
	}

	if res, err := h.auction.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.FindOne(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) bidRequestCount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			met.BumpSum("bid.count", 1, "auction", c.Param("id"))
			return next(c)
		}
	}
}

func (h *handler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := auction.PlaceBidParams{}

	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	p.AuctionId = c.Param("id")

	if res, err := h.auction.PlaceBid(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) listBids(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.ListBids(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.Cancel(ctx, c.Param("id")); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

package api

import (
	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/ratings"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerRatingRoutes(s *webserver.Server, h *handlers) {
	s.ApiPOST("/ratings", h.submitRatings)
	s.ApiGET("/ratings/all", h.allRatings)
	s.ApiGET("/ratings/order/:orderId", h.orderRatings)
	s.ApiGET("/ratings/product/:id", h.productRating)
}

func (h *handlers) submitRatings(c echo.Context) error {
	var in ratings.SubmitInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	rows, err := h.Ratings.SubmitRatings(c.Request().Context(), in)
	if err != nil {
		return failErr(c, err, "Failed to save ratings")
	}
	return created(c, map[string]interface{}{"success": true, "ratings": rows})
}

func (h *handlers) orderRatings(c echo.Context) error {
	id, valid := paramID(c, "orderId")
	if !valid {
		return invalidID(c, "order")
	}
	rows, err := h.Ratings.ForOrder(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to fetch ratings")
	}
	return ok(c, rows)
}

func (h *handlers) productRating(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "product")
	}
	agg, err := h.Ratings.ProductAggregate(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to fetch ratings")
	}
	return ok(c, agg)
}

func (h *handlers) allRatings(c echo.Context) error {
	all, err := h.Ratings.AllAggregates(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to fetch ratings")
	}
	return ok(c, all)
}

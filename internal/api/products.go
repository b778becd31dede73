package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/catalog"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerProductRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/products", h.listProducts)
	s.ApiGET("/categories", h.listCategories)
	s.ApiGET("/products/:id", h.getProduct)
	s.ApiPOST("/products", h.createProduct, webserver.AdminAuthenticated)
	s.ApiPUT("/products/prices/bulk", h.bulkPrices, webserver.AdminAuthenticated)
	s.ApiPUT("/products/:id", h.updateProduct, webserver.AdminAuthenticated)
	s.ApiPUT("/products/:id/price", h.updatePrice, webserver.AdminAuthenticated)
}

func (h *handlers) listProducts(c echo.Context) error {
	includeHidden, _ := strconv.ParseBool(c.QueryParam("includeHidden"))
	return ok(c, h.Catalog.ListProducts(c.Request().Context(), c.QueryParam("category"), includeHidden))
}

func (h *handlers) listCategories(c echo.Context) error {
	return ok(c, h.Catalog.Categories(c.Request().Context()))
}

func (h *handlers) getProduct(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "product")
	}
	p, err := h.Catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to load product")
	}
	return ok(c, p)
}

func (h *handlers) updateProduct(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "product")
	}
	var patch domain.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return badBody(c, err)
	}
	p, err := h.Catalog.SetProductOverride(c.Request().Context(), id, patch)
	if err != nil {
		return failErr(c, err, "Failed to update product")
	}
	return ok(c, p)
}

func (h *handlers) updatePrice(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "product")
	}
	var body struct {
		Price interface{} `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	price, valid := catalog.ParsePrice(body.Price)
	if !valid {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid price", nil)
	}
	p, err := h.Catalog.SetPrice(c.Request().Context(), id, price)
	if err != nil {
		return failErr(c, err, "Failed to update price")
	}
	return ok(c, p)
}

func (h *handlers) createProduct(c echo.Context) error {
	var in catalog.CustomProductInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	p, err := h.Catalog.CreateCustomProduct(c.Request().Context(), in)
	if err != nil {
		return failErr(c, err, "Failed to create product")
	}
	return created(c, p)
}

func (h *handlers) bulkPrices(c echo.Context) error {
	var body struct {
		Prices map[string]interface{} `json:"prices"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	if body.Prices == nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Prices are required", nil)
	}
	res, err := h.Catalog.BulkSetPrices(c.Request().Context(), body.Prices)
	if err != nil {
		return failErr(c, err, "Failed to update prices")
	}
	return ok(c, map[string]interface{}{
		"success": true,
		"updated": res.Updated,
		"skipped": res.Skipped,
	})
}

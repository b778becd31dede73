package api

import (
	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/ratings"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerScreenshotRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/feedback-screenshots", h.listScreenshots)
	s.ApiGET("/feedback-screenshots/all", h.listAllScreenshots, webserver.AdminAuthenticated)
	s.ApiPOST("/feedback-screenshots", h.createScreenshot, webserver.AdminAuthenticated)
	s.ApiPUT("/feedback-screenshots/:id", h.updateScreenshot, webserver.AdminAuthenticated)
	s.ApiDELETE("/feedback-screenshots/:id", h.deleteScreenshot, webserver.AdminAuthenticated)
}

func (h *handlers) listScreenshots(c echo.Context) error {
	rows, err := h.Screenshots.ListActive(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to fetch screenshots")
	}
	return ok(c, rows)
}

func (h *handlers) listAllScreenshots(c echo.Context) error {
	rows, err := h.Screenshots.ListAll(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to fetch screenshots")
	}
	return ok(c, rows)
}

func (h *handlers) createScreenshot(c echo.Context) error {
	var in ratings.ScreenshotInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	row, err := h.Screenshots.Create(c.Request().Context(), in)
	if err != nil {
		return failErr(c, err, "Failed to create screenshot")
	}
	return created(c, row)
}

func (h *handlers) updateScreenshot(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "screenshot")
	}
	var in ratings.ScreenshotInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	row, err := h.Screenshots.Update(c.Request().Context(), id, in)
	if err != nil {
		return failErr(c, err, "Failed to update screenshot")
	}
	return ok(c, row)
}

func (h *handlers) deleteScreenshot(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "screenshot")
	}
	if err := h.Screenshots.Delete(c.Request().Context(), id); err != nil {
		return failErr(c, err, "Failed to delete screenshot")
	}
	return ok(c, map[string]interface{}{"success": true})
}

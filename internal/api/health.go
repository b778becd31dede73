package api

import (
	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerHealthRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/health", h.health)
}

func (h *handlers) health(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"status":   "ok",
		"shop":     h.Config.Shop.Name,
		"whatsapp": h.WhatsApp.State(),
	})
}
